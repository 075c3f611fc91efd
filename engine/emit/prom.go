package emit

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PromEmitter implements Emitter by counting events per message type,
// labeled by flow id, trimmed from the teacher's PrometheusMetrics
// (graph/metrics.go) down to the one counter the flow engine's events
// actually warrant: there is no per-node latency histogram here because
// the engine does not report node durations, only discrete lifecycle
// events.
type PromEmitter struct {
	events *prometheus.CounterVec
}

// NewPromEmitter registers an "events_total" counter vector (labels: msg,
// flow_id) on registry and returns an Emitter backed by it.
func NewPromEmitter(registry prometheus.Registerer) *PromEmitter {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &PromEmitter{
		events: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowengine",
			Name:      "events_total",
			Help:      "Count of engine diagnostic events by message type and flow.",
		}, []string{"msg", "flow_id"}),
	}
}

// Emit increments the events_total counter for event.Msg/event.FlowID.
func (p *PromEmitter) Emit(event Event) {
	p.events.WithLabelValues(event.Msg, event.FlowID).Inc()
}

// EmitBatch emits each event in order.
func (p *PromEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		p.Emit(e)
	}
	return nil
}

// Flush is a no-op: Prometheus counters are scraped, not pushed.
func (p *PromEmitter) Flush(context.Context) error { return nil }
