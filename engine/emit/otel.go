package emit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by creating OpenTelemetry spans.
//
// Each event becomes a span:
//   - Span name: event.Msg (e.g. "node_enter", "trigger_match")
//   - Attributes: runID, step, flowID, nodeID, and all event.Meta fields
//   - Status: error if event.Meta["error"] is present
//
// Spans are point-in-time: created and ended immediately, since engine events
// represent instants rather than durations.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an Emitter that records spans via tracer.
//
//	tracer := otel.Tracer("flowengine")
//	emitter := emit.NewOTelEmitter(tracer)
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit creates and immediately ends a span for event.
func (o *OTelEmitter) Emit(event Event) {
	ctx := context.Background()
	_, span := o.tracer.Start(ctx, event.Msg)
	defer span.End()

	o.addStandardAttributes(span, event)
	o.addMetadataAttributes(span, event.Meta)

	if err, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, err)
		span.RecordError(fmt.Errorf("%s", err))
	}
}

// EmitBatch creates a span per event, in order.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		_, span := o.tracer.Start(ctx, event.Msg)
		o.addStandardAttributes(span, event)
		o.addMetadataAttributes(span, event.Meta)
		if err, ok := event.Meta["error"].(string); ok {
			span.SetStatus(codes.Error, err)
			span.RecordError(fmt.Errorf("%s", err))
		}
		span.End()
	}
	return nil
}

// Flush forces export of any pending spans via the global tracer provider,
// if it supports ForceFlush.
func (o *OTelEmitter) Flush(ctx context.Context) error {
	tp := otel.GetTracerProvider()

	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := tp.(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

func (o *OTelEmitter) addStandardAttributes(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("flowcore.run_id", event.RunID),
		attribute.Int("flowcore.step", event.Step),
		attribute.String("flowcore.flow_id", event.FlowID),
		attribute.String("flowcore.node_id", event.NodeID),
	)
}

// addMetadataAttributes converts event metadata to span attributes, mapping
// well-known keys to flowcore-namespaced attribute names.
func (o *OTelEmitter) addMetadataAttributes(span trace.Span, meta map[string]interface{}) {
	if meta == nil {
		return
	}

	for key, value := range meta {
		attrKey := key
		switch key {
		case "tokens_in":
			attrKey = "flowcore.llm.tokens_in"
		case "tokens_out":
			attrKey = "flowcore.llm.tokens_out"
		case "latency_ms":
			attrKey = "flowcore.node.latency_ms"
		case "model":
			attrKey = "flowcore.llm.model"
		case "device":
			attrKey = "flowcore.device.ref"
		case "abort_epoch":
			attrKey = "flowcore.abort_epoch"
		case "priority":
			attrKey = "flowcore.priority"
		}

		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(attrKey, v))
		case int:
			span.SetAttributes(attribute.Int(attrKey, v))
		case int64:
			span.SetAttributes(attribute.Int64(attrKey, v))
		case float64:
			span.SetAttributes(attribute.Float64(attrKey, v))
		case bool:
			span.SetAttributes(attribute.Bool(attrKey, v))
		case time.Duration:
			span.SetAttributes(attribute.Int64(attrKey, int64(v/time.Millisecond)))
		default:
			span.SetAttributes(attribute.String(attrKey, fmt.Sprintf("%v", v)))
		}
	}
}
