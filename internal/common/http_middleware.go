package common

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type HttpContextKey string

const (
	HttpContextRequestId HttpContextKey = "http-request-id"
	HttpContextLogger    HttpContextKey = "http-logger"
)

type HttpRequestLogger func(LogLevel, string)

func GetRequestLoggerMiddleware(serviceLogs chan<- ServiceLog) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			var requestId string
			if r.Header.Get("X-Trace-Id") != "" {
				requestId = r.Header.Get("X-Trace-Id")
			} else {
				requestId = uuid.New().String()
			}
			requestContext := context.WithValue(r.Context(), HttpContextRequestId, requestId)
			requestContext = context.WithValue(requestContext, HttpContextLogger, HttpRequestLogger(func(level LogLevel, message string) {
				serviceLogs <- ServiceLogf(level, "req[%s] %s", requestId, message)
			}))
			serviceLogs <- ServiceLogf(LogLevelDebug, "req[%s] received %s at %s", requestId, r.Method, r.RequestURI)
			next.ServeHTTP(w, r.WithContext(requestContext))
			serviceLogs <- ServiceLogf(LogLevelInfo, "req[%s] [%s %s %s %s] from remote[%s] completed in %v", requestId, r.Proto, r.Host, r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
		})
	}
}

type RateLimitOpts struct {
	// RequestsPerSecond is the sustained rate allowed per client ip
	RequestsPerSecond float64

	// Burst is the number of requests a client ip may send at once
	Burst int

	// IdleTimeout is how long a client's limiter is kept after its
	// last request
	IdleTimeout time.Duration
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// GetRateLimitMiddleware returns a per-ip token bucket limiter, requests
// over the limit are rejected with a 429
func GetRateLimitMiddleware(serviceLogs chan<- ServiceLog, opts RateLimitOpts) func(http.Handler) http.Handler {
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 20
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 5 * time.Minute
	}
	var mutex sync.Mutex
	limiters := map[string]*ipLimiter{}

	getLimiter := func(ip string) *rate.Limiter {
		mutex.Lock()
		defer mutex.Unlock()
		now := time.Now()
		for key, entry := range limiters {
			if now.Sub(entry.lastSeen) > opts.IdleTimeout {
				delete(limiters, key)
			}
		}
		entry, ok := limiters[ip]
		if !ok {
			entry = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst)}
			limiters[ip] = entry
		}
		entry.lastSeen = now
		return entry.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, err := extractRequestIp(r)
			key := "unknown"
			if err == nil {
				key = ip.String()
			}
			if !getLimiter(key).Allow() {
				serviceLogs <- ServiceLogf(LogLevelWarn, "rate limited remote[%s] on %s %s", key, r.Method, r.URL.Path)
				SendHttpFailResponse(w, r, http.StatusTooManyRequests, "too many requests", ErrorRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetIpAllowlistMiddleware(serviceLogs chan<- ServiceLog, allowedCidrs []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ipAddress, err := extractRequestIp(r)
			if err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			if !isIpAllowed(ipAddress, allowedCidrs) {
				serviceLogs <- ServiceLogf(LogLevelWarn, "blocked remote[%s] not in allowlist", ipAddress)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
