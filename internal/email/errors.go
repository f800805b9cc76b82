package email

import "errors"

var ErrorInvalidMessage = errors.New("invalid_message")
