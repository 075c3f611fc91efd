// Package httpdriver implements device.Driver over a per-brand HTTP API,
// grounded on the teacher's HTTPTool request/response shape.
package httpdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/flowcore/flowengine/device"
)

// Driver issues JSON HTTP requests to "http://<ip>/api/<brand>/..." for each
// device action. One Driver serves every brand configured in the catalog;
// brand-specific path shaping lives in endpointFor.
type Driver struct {
	client *http.Client
}

// New returns an httpdriver.Driver with sane request timeouts handled via
// context rather than a client-level Timeout, matching the teacher's HTTP
// tool convention of leaving cancellation to the caller.
func New() *Driver {
	return &Driver{client: &http.Client{}}
}

func endpointFor(ref device.Ref, action string) string {
	base := fmt.Sprintf("http://%s/api/%s", ref.IP, ref.Brand)
	if ref.ChildID != "" {
		return fmt.Sprintf("%s/%s/%s", base, ref.ChildID, action)
	}
	return fmt.Sprintf("%s/%s", base, action)
}

func (d *Driver) post(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("httpdriver: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("httpdriver: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("httpdriver: request to %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("httpdriver: %s returned status %d", url, resp.StatusCode)
	}
	return nil
}

// TurnOn implements device.Driver.
func (d *Driver) TurnOn(ctx context.Context, ref device.Ref) error {
	return d.post(ctx, endpointFor(ref, "on"), map[string]any{})
}

// TurnOff implements device.Driver.
func (d *Driver) TurnOff(ctx context.Context, ref device.Ref) error {
	return d.post(ctx, endpointFor(ref, "off"), map[string]any{})
}

// StartCycle implements device.Driver.
func (d *Driver) StartCycle(ctx context.Context, ref device.Ref, duration, interval time.Duration, cycles int) error {
	return d.post(ctx, endpointFor(ref, "cycle"), map[string]any{
		"durationMs": duration.Milliseconds(),
		"intervalMs": interval.Milliseconds(),
		"cycles":     cycles,
	})
}

// StopCycle implements device.Driver. The HTTP transport cannot report
// whether a cycle was genuinely active, so hadActiveCycle is always true;
// callers relying on the safety-net turn-off still get a harmless extra
// TurnOff in the no-cycle case.
func (d *Driver) StopCycle(ctx context.Context, ref device.Ref) (bool, error) {
	if err := d.post(ctx, endpointFor(ref, "stop"), map[string]any{}); err != nil {
		return false, err
	}
	return true, nil
}
