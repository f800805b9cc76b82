package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthcheckEndpoints(t *testing.T) {
	redisDown := errors.New("redis unreachable")
	var readinessErr error
	router := mux.NewRouter()
	RegisterCommonHttpEndpoints(CommonHttpEndpointsOpts{
		Router:          router,
		ServiceLogs:     GetNoopServiceLog(),
		LivenessChecks:  []func() error{func() error { return nil }},
		ReadinessChecks: []func() error{func() error { return readinessErr }, func() error { return nil }},
	})
	get := func(path string) (*httptest.ResponseRecorder, HttpResponse) {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
		var body HttpResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		return recorder, body
	}

	recorder, body := get("/readyz")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, map[string]any{"kind": "readiness", "checks": float64(2), "status": "ok"}, body.Data)

	readinessErr = redisDown
	recorder, body = get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "redis unreachable", body.Data)

	recorder, _ = get("/healthz")
	assert.Equal(t, http.StatusOK, recorder.Code)
}
