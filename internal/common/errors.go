package common

import "errors"

var (
	ErrorInvalidCidrs = errors.New("invalid_cidrs")
	ErrorRateLimited  = errors.New("rate_limited")
)
