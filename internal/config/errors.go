package config

import "errors"

var (
	ErrorMissingDatabaseUrl  = errors.New("missing_database_url")
	ErrorMissingSecret       = errors.New("missing_secret")
	ErrorWeakSecret          = errors.New("weak_secret")
	ErrorUnknownSessionCache = errors.New("unknown_session_cache")
	ErrorUnknownHooksQueue   = errors.New("unknown_hooks_queue")
)
