package api

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrorInvalidBaseUrl = errors.New("invalid_base_url")

// Error is returned for every non-2xx response from the backend
type Error struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %v (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %v: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an api 404
func IsNotFound(err error) bool {
	return HasStatus(err, http.StatusNotFound)
}

func HasStatus(err error, statusCode int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == statusCode
}

// IsRetryable reports whether a failed call may succeed if repeated:
// transport errors, 429 and 5xx
func IsRetryable(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err != nil
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
}
