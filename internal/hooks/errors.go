package hooks

import "errors"

var (
	ErrorHandlerUndefined = errors.New("handler_undefined")
	ErrorInvalidEvent     = errors.New("invalid_event")
	ErrorLoggerUndefined  = errors.New("logger_undefined")
	ErrorClientUndefined  = errors.New("client_undefined")
	ErrorQueueUndefined   = errors.New("queue_undefined")
	ErrorRetriesExhausted = errors.New("retries_exhausted")
	ErrorWebhookUndefined = errors.New("webhook_undefined")
)

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }

func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as one that a redelivery cannot fix
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
