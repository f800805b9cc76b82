package hooks

import "github.com/prometheus/client_golang/prometheus"

func init() {
	prometheus.MustRegister(publishFailuresCounter)
	prometheus.MustRegister(handledEventsCounter)
	prometheus.MustRegister(handlerFailuresCounter)
}

var publishFailuresCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hooks_publish_failures_total",
		Help: "Total number of events that could not be enqueued after commit",
	},
	[]string{"type"},
)

var handledEventsCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hooks_events_handled_total",
		Help: "Total number of event deliveries by handler and outcome",
	},
	[]string{"handler", "outcome"},
)

var handlerFailuresCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hooks_handler_failures_total",
		Help: "Total number of events a handler gave up on",
	},
	[]string{"handler", "reason"},
)
