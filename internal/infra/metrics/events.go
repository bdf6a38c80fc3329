package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(listenerInvocationsTotal) }

var listenerInvocationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "event_listener_invocations_total",
		Help: "Event listener runs, labeled by event, listener and outcome.",
	},
	[]string{"event", "listener", "outcome"}, // outcome: ok, panic
)

func IncListener(event, listener, outcome string) {
	listenerInvocationsTotal.WithLabelValues(norm(event), norm(listener), norm(outcome)).Inc()
}
