package controller

import "errors"

var (
	ErrorAuthRequired      = errors.New("auth_required")
	ErrorForbidden         = errors.New("forbidden")
	ErrorInvalidBody       = errors.New("invalid_body")
	ErrorMissingAuth       = errors.New("missing_auth")
	ErrorMissingServiceLog = errors.New("missing_service_log")
)
