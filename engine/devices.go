package engine

import "github.com/flowcore/flowengine/device"

// resolveDevice resolves a flow-authored device reference to a device.Ref
// via the engine's configured resolver, returning an error the caller
// should broadcast and treat as a failed action (per §7: "resolver
// returning 'no such device'").
func (e *Engine) resolveDevice(ref string) (device.Ref, error) {
	if e.resolver == nil {
		return device.Ref{}, &DeviceError{Device: ref, Reason: "no device resolver configured"}
	}
	rec, ok := e.resolver.Resolve(ref)
	if !ok {
		return device.Ref{}, &DeviceError{Device: ref, Reason: "no such device"}
	}
	return rec.Ref(), nil
}
