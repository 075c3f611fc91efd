// Package device specifies the contract between the flow engine and the
// physical device layer, and provides adapters that implement it.
//
// The engine never speaks a device's wire protocol directly: it resolves an
// author-facing reference (an alias, a name, an IP, or "ip:childId") to a Ref
// via a Resolver, then calls a Driver. Brand-specific transport lives
// entirely inside a Driver implementation.
package device

import (
	"context"
	"time"
)

// Ref identifies one physical device (or one child output of a multi-output
// device) to a Driver call.
type Ref struct {
	Key        string // canonical device key ("ip" or "ip:childId"), as returned by String
	Name       string
	IP         string
	ChildID    string
	Brand      string
	DeviceType string
	IsPump     bool
}

// String returns the canonical device key: "ip" or "ip:childId".
func (r Ref) String() string {
	if r.ChildID == "" {
		return r.IP
	}
	return r.IP + ":" + r.ChildID
}

// Driver turns on/off and cycles a physical device. Implementations resolve
// brand-specific transport (HTTP, local protocol, mock) internally.
//
// All methods must respect ctx cancellation. The engine calls them
// synchronously on its executor goroutine with the executor's context (or
// context.Background during an emergency stop); preemption advances the
// engine's abort epoch and does not cancel that context.
type Driver interface {
	// TurnOn activates ref at full/default intensity.
	TurnOn(ctx context.Context, ref Ref) error

	// TurnOff deactivates ref.
	TurnOff(ctx context.Context, ref Ref) error

	// StartCycle begins a cycling pattern: on for duration, off for interval,
	// repeated cycles times (0 = run until StopCycle is called).
	StartCycle(ctx context.Context, ref Ref, duration, interval time.Duration, cycles int) error

	// StopCycle halts any in-progress cycle. hadActiveCycle reports whether
	// a cycle was actually running, so callers can decide whether a
	// follow-up TurnOff safety call is needed.
	StopCycle(ctx context.Context, ref Ref) (hadActiveCycle bool, err error)
}
