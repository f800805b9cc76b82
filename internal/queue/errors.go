package queue

import "errors"

var (
	ErrorConnectionUndefined = errors.New("connection_undefined")
	ErrorHandlerUndefined    = errors.New("handler_undefined")
	ErrorQueueClosed         = errors.New("queue_closed")
	ErrorQueueUndefined      = errors.New("queue_undefined")
)
