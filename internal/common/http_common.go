package common

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CommonHttpEndpointsOpts struct {
	Router      *mux.Router
	ServiceLogs chan<- ServiceLog

	// LivenessChecks fail /healthz with a 500 so the orchestrator
	// restarts the process, ReadinessChecks fail /readyz with a 503 so
	// traffic is drained while a backend recovers
	LivenessChecks  []func() error
	ReadinessChecks []func() error
}

func RegisterCommonHttpEndpoints(opts CommonHttpEndpointsOpts) {
	opts.Router.HandleFunc("/healthz", getHealthcheckHandler("liveness", opts.LivenessChecks, http.StatusInternalServerError)).Methods(http.MethodGet)
	opts.Router.HandleFunc("/readyz", getHealthcheckHandler("readiness", opts.ReadinessChecks, http.StatusServiceUnavailable)).Methods(http.MethodGet)
	opts.Router.Handle("/metrics", promhttp.Handler())
}

type handleHealthcheckOutput struct {
	Kind   string `json:"kind"`
	Checks int    `json:"checks"`
	Status string `json:"status"`
}

func getHealthcheckHandler(kind string, checks []func() error, failureStatus int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		issues := []error{}
		for _, check := range checks {
			if err := check(); err != nil {
				issues = append(issues, err)
			}
		}
		if len(issues) > 0 {
			SendHttpFailResponse(w, r, failureStatus, kind+" check failed", errors.Join(issues...))
			return
		}
		SendHttpSuccessResponse(w, r, http.StatusOK, "ok", handleHealthcheckOutput{
			Kind:   kind,
			Checks: len(checks),
			Status: "ok",
		})
	}
}
