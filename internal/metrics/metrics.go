// Package metrics exposes Prometheus counters for the input pipeline.
//
// All collectors live on a private registry so that importing the package
// never touches prometheus.DefaultRegisterer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "xrinput"

// Drop reasons used with RecordEventDropped.
const (
	DropUnbound      = "unbound"
	DropTypeMismatch = "type_mismatch"
	DropRetries      = "retries_exhausted"
)

// Binding defect kinds used with RecordBindingDefect.
const (
	DefectMissingInput  = "missing_input"
	DefectUnknownAction = "unknown_action"
	DefectTypeMismatch  = "type_mismatch"
)

var registry = prometheus.NewRegistry()

var (
	eventsDetected = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "input_events_detected_total",
		Help:      "Raw input transitions emitted by the change detector.",
	})
	eventsDropped = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "input_events_dropped_total",
		Help:      "Input events that never reached the sink, by reason.",
	}, []string{"reason"})
	actionsDispatched = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "action_events_dispatched_total",
		Help:      "Action events accepted by the sink.",
	})
	dispatchFailures = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dispatch_failures_total",
		Help:      "Batches the sink refused or failed to accept.",
	})
	outboxDepth = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "outbox_depth",
		Help:      "Batches waiting in the dispatch outbox.",
	})
	bindingDefects = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "binding_defects_total",
		Help:      "Configuration defects found while registering or binding, by kind.",
	}, []string{"kind"})
	peerBatches = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "peer_batches_received_total",
		Help:      "Event batches received by the peer server, by outcome.",
	}, []string{"outcome"})
	peerEvents = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "peer_events_received_total",
		Help:      "Action events accepted by the peer server.",
	})
)

func RecordEventsDetected(n int) {
	if n > 0 {
		eventsDetected.Add(float64(n))
	}
}

func RecordEventDropped(reason string) { eventsDropped.WithLabelValues(reason).Inc() }

func RecordEventsDropped(reason string, n int) {
	if n > 0 {
		eventsDropped.WithLabelValues(reason).Add(float64(n))
	}
}

func RecordActionsDispatched(n int) {
	if n > 0 {
		actionsDispatched.Add(float64(n))
	}
}

func RecordDispatchFailure() { dispatchFailures.Inc() }

func SetOutboxDepth(n int) { outboxDepth.Set(float64(n)) }

func RecordBindingDefect(kind string) { bindingDefects.WithLabelValues(kind).Inc() }

// RecordPeerBatch counts one received batch. accepted is false when the
// batch handler refused it.
func RecordPeerBatch(events int, accepted bool) {
	if !accepted {
		peerBatches.WithLabelValues("rejected").Inc()
		return
	}
	peerBatches.WithLabelValues("accepted").Inc()
	peerEvents.Add(float64(events))
}

// Registry returns the registry holding every collector of this package.
func Registry() *prometheus.Registry { return registry }

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
