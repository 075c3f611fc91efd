package emit

import "context"

// NullEmitter implements Emitter by discarding all events.
//
// Useful for unit tests that don't assert on observability output and for
// embedding the engine in contexts where event emission is unwanted.
type NullEmitter struct{}

// NewNullEmitter creates an Emitter that discards everything it receives.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(Event) {}

// EmitBatch discards the events and returns nil.
func (n *NullEmitter) EmitBatch(_ context.Context, _ []Event) error {
	return nil
}

// Flush is a no-op.
func (n *NullEmitter) Flush(_ context.Context) error {
	return nil
}
