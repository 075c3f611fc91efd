package httpdriver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/flowcore/flowengine/device"
)

func newTestRef(t *testing.T, srv *httptest.Server, brand, childID string) device.Ref {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	return device.Ref{IP: u.Host, Brand: brand, ChildID: childID}
}

func TestTurnOnPostsToBrandEndpoint(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New()
	ref := newTestRef(t, srv, "hue", "")
	if err := d.TurnOn(t.Context(), ref); err != nil {
		t.Fatalf("TurnOn: %v", err)
	}
	if gotPath != "/api/hue/on" {
		t.Errorf("path = %q, want /api/hue/on", gotPath)
	}
}

func TestTurnOnWithChildIDIncludesItInPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New()
	ref := newTestRef(t, srv, "kasa", "outlet-2")
	if err := d.TurnOff(t.Context(), ref); err != nil {
		t.Fatalf("TurnOff: %v", err)
	}
	if gotPath != "/api/kasa/outlet-2/off" {
		t.Errorf("path = %q, want /api/kasa/outlet-2/off", gotPath)
	}
}

func TestStartCycleSendsDurationIntervalAndCycles(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New()
	ref := newTestRef(t, srv, "govee", "")
	if err := d.StartCycle(t.Context(), ref, 5*time.Second, 10*time.Second, 3); err != nil {
		t.Fatalf("StartCycle: %v", err)
	}
	if body["durationMs"] != float64(5000) || body["intervalMs"] != float64(10000) || body["cycles"] != float64(3) {
		t.Errorf("body = %+v, want durationMs=5000 intervalMs=10000 cycles=3", body)
	}
}

func TestStopCycleAlwaysReportsHadActiveCycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New()
	had, err := d.StopCycle(t.Context(), newTestRef(t, srv, "govee", ""))
	if err != nil {
		t.Fatalf("StopCycle: %v", err)
	}
	if !had {
		t.Error("had = false, want true: HTTP transport cannot distinguish no-op stops")
	}
}

func TestNon2xxStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := New()
	if err := d.TurnOn(t.Context(), newTestRef(t, srv, "hue", "")); err == nil {
		t.Fatal("expected error for 503 response")
	}
}
