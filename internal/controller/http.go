package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"dotmac/internal/authn"
	"dotmac/internal/common"

	"github.com/gorilla/mux"
)

const DefaultLoginPath = "/login"

type HttpApplicationOpts struct {
	// Auth is either the real service or the bypass mock, the handlers
	// do not tell them apart
	Auth authn.Auth

	// LivenessChecks are sequentially executed when the liveness probe endpoint is hit
	LivenessChecks []func() error

	// ReadinessChecks are sequentially executed when the readiness probe endpoint is hit
	ReadinessChecks []func() error

	// LoginPath is where browsers are sent when a request needs a session,
	// defaults to DefaultLoginPath
	LoginPath string

	// ServiceLogs is a centralised channel where logs get sent to
	ServiceLogs chan<- common.ServiceLog
}

func (o HttpApplicationOpts) Validate() error {
	errs := []error{}
	if o.Auth == nil {
		errs = append(errs, fmt.Errorf("failed to receive an auth service: %w", ErrorMissingAuth))
	}
	if o.ServiceLogs == nil {
		errs = append(errs, fmt.Errorf("failed to receive a service log: %w", ErrorMissingServiceLog))
	}
	return errors.Join(errs...)
}

type httpApplication struct {
	auth        authn.Auth
	loginPath   string
	serviceLogs chan<- common.ServiceLog
}

// GetHttpApplication returns the auth API mounted under /api/auth along
// with the health and metrics endpoints
func GetHttpApplication(opts HttpApplicationOpts) (http.Handler, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("failed to initialise http application: %w", err)
	}
	app := &httpApplication{
		auth:        opts.Auth,
		loginPath:   opts.LoginPath,
		serviceLogs: opts.ServiceLogs,
	}
	if app.loginPath == "" {
		app.loginPath = DefaultLoginPath
	}

	handler := mux.NewRouter()
	handler.NotFoundHandler = common.GetNotFoundHandler()
	common.RegisterCommonHttpEndpoints(common.CommonHttpEndpointsOpts{
		Router:          handler,
		ServiceLogs:     opts.ServiceLogs,
		LivenessChecks:  opts.LivenessChecks,
		ReadinessChecks: opts.ReadinessChecks,
	})

	api := handler.PathPrefix("/api/auth").Subrouter()
	app.registerSessionRoutes(api)
	app.registerTwoFactorRoutes(api)
	app.registerOrgRoutes(api)

	if err := handler.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		opts.ServiceLogs <- common.ServiceLogf(common.LogLevelDebug, "registered route[%s] with methods[%s]", pathTemplate, strings.Join(methods, "|"))
		return nil
	}); err != nil {
		return nil, err
	}

	return handler, nil
}
