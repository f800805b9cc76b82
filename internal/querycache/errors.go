package querycache

import "errors"

var (
	ErrorEmptyKey         = errors.New("empty_key")
	ErrorFetcherUndefined = errors.New("fetcher_undefined")
	ErrorTypeMismatch     = errors.New("type_mismatch")
)
