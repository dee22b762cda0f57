// Package metrics holds the Prometheus collectors for condobot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "condobot"

var (
	// inboundMessages counts routed inbound chat messages per workflow.
	inboundMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_messages_total",
			Help:      "Inbound chat messages routed to a workflow",
		},
		[]string{"workflow"}, // parcels, laundry, ignored
	)

	// handlerErrors counts engine invocations that returned an error or panicked.
	handlerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Dialogue engine invocations that failed",
		},
		[]string{"workflow"},
	)

	// messagesSent counts outbound sends by outcome.
	messagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound chat messages by outcome",
		},
		[]string{"status"}, // success, error
	)

	// sessionsExpired counts dialogue sessions removed by idle timeout.
	sessionsExpired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Dialogue sessions removed by the idle timeout",
		},
		[]string{"table"},
	)

	// reservationEvents counts laundry reservation transitions.
	reservationEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_events_total",
			Help:      "Washing machine reservation transitions",
		},
		[]string{"event"}, // started, finished, expired, handoff, enqueued, dequeued
	)

	allMetrics = []prometheus.Collector{
		inboundMessages,
		handlerErrors,
		messagesSent,
		sessionsExpired,
		reservationEvents,
	}
)

// RecordInbound records a routed inbound message.
func RecordInbound(workflow string) {
	inboundMessages.WithLabelValues(workflow).Inc()
}

// RecordHandlerError records a failed engine invocation.
func RecordHandlerError(workflow string) {
	handlerErrors.WithLabelValues(workflow).Inc()
}

// RecordSend records an outbound send outcome.
func RecordSend(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	messagesSent.WithLabelValues(status).Inc()
}

// RecordSessionExpired records an idle session expiry.
func RecordSessionExpired(table string) {
	sessionsExpired.WithLabelValues(table).Inc()
}

// RecordReservationEvent records a reservation transition.
func RecordReservationEvent(event string) {
	reservationEvents.WithLabelValues(event).Inc()
}

// NewRegistry returns a registry holding every condobot collector plus the
// Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	for _, c := range allMetrics {
		reg.MustRegister(c)
	}
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
