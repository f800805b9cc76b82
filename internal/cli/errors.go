package cli

import "errors"

var (
	ErrorInvalidInput  = errors.New("invalid_input")
	ErrorInvalidOutput = errors.New("invalid_output")
)
