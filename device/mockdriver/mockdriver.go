// Package mockdriver provides an in-memory device.Driver for interpreter
// tests, grounded on the teacher's MockTool pattern: deterministic call
// history, optional error injection, no real I/O.
package mockdriver

import (
	"context"
	"sync"
	"time"

	"github.com/flowcore/flowengine/device"
)

// Call records a single Driver method invocation.
type Call struct {
	Method   string // TurnOn, TurnOff, StartCycle, StopCycle
	Ref      device.Ref
	Duration time.Duration
	Interval time.Duration
	Cycles   int
}

// Driver is a test double implementing device.Driver entirely in memory.
//
// Err, if set, is returned by every call instead of performing the
// operation. State tracks on/off and cycling per device key so tests can
// assert post-call device state without a real transport.
type Driver struct {
	Err error

	mu      sync.Mutex
	calls   []Call
	on      map[string]bool
	cycling map[string]bool
}

// New returns a ready-to-use mock driver.
func New() *Driver {
	return &Driver{
		on:      make(map[string]bool),
		cycling: make(map[string]bool),
	}
}

// Calls returns a copy of the recorded call history.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

// IsOn reports whether TurnOn was the last on/off call observed for key.
func (d *Driver) IsOn(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on[key]
}

// IsCycling reports whether a cycle is currently active for key.
func (d *Driver) IsCycling(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cycling[key]
}

func (d *Driver) record(c Call) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, c)
}

// TurnOn implements device.Driver.
func (d *Driver) TurnOn(ctx context.Context, ref device.Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.record(Call{Method: "TurnOn", Ref: ref})
	if d.Err != nil {
		return d.Err
	}
	d.mu.Lock()
	d.on[ref.Key] = true
	d.mu.Unlock()
	return nil
}

// TurnOff implements device.Driver.
func (d *Driver) TurnOff(ctx context.Context, ref device.Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.record(Call{Method: "TurnOff", Ref: ref})
	if d.Err != nil {
		return d.Err
	}
	d.mu.Lock()
	d.on[ref.Key] = false
	d.cycling[ref.Key] = false
	d.mu.Unlock()
	return nil
}

// StartCycle implements device.Driver.
func (d *Driver) StartCycle(ctx context.Context, ref device.Ref, duration, interval time.Duration, cycles int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.record(Call{Method: "StartCycle", Ref: ref, Duration: duration, Interval: interval, Cycles: cycles})
	if d.Err != nil {
		return d.Err
	}
	d.mu.Lock()
	d.cycling[ref.Key] = true
	d.mu.Unlock()
	return nil
}

// StopCycle implements device.Driver. hadActiveCycle reflects whether the
// mock believed a cycle was running for ref.
func (d *Driver) StopCycle(ctx context.Context, ref device.Ref) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.record(Call{Method: "StopCycle", Ref: ref})
	if d.Err != nil {
		return false, d.Err
	}
	d.mu.Lock()
	had := d.cycling[ref.Key]
	d.cycling[ref.Key] = false
	d.mu.Unlock()
	return had, nil
}
