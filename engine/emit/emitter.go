package emit

import "context"

// Emitter receives and processes observability events from the engine.
//
// Emitters enable pluggable observability backends: plain logging, distributed
// tracing, metrics, in-memory capture for tests.
//
// Implementations should be non-blocking, thread-safe (the engine may emit
// from the executor goroutine and from collaborator callback goroutines), and
// resilient — a failing emitter must never cause the engine to fail a flow.
type Emitter interface {
	// Emit sends a single observability event to the configured backend.
	//
	// Emit must not block the engine's executor goroutine for long and must
	// not panic; backend errors should be swallowed or logged internally.
	Emit(event Event)

	// EmitBatch sends multiple events in one operation, preserving order.
	//
	// Returns error only on catastrophic failures (e.g. misconfiguration).
	// Individual event delivery failures should be handled internally.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush ensures all buffered events reach the backend.
	//
	// Call before shutdown and at the end of integration tests that assert
	// on emitted events. Safe to call multiple times.
	Flush(ctx context.Context) error
}
