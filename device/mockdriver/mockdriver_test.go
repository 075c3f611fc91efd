package mockdriver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowcore/flowengine/device"
)

func TestTurnOnRecordsCallAndState(t *testing.T) {
	d := New()
	ref := device.Ref{Key: "lamp-1"}

	if err := d.TurnOn(context.Background(), ref); err != nil {
		t.Fatalf("TurnOn: %v", err)
	}
	if !d.IsOn("lamp-1") {
		t.Error("IsOn = false, want true after TurnOn")
	}

	calls := d.Calls()
	if len(calls) != 1 || calls[0].Method != "TurnOn" || calls[0].Ref != ref {
		t.Errorf("calls = %+v, want single TurnOn(lamp-1)", calls)
	}
}

func TestTurnOffClearsCycling(t *testing.T) {
	d := New()
	ref := device.Ref{Key: "fan-1"}
	ctx := context.Background()

	if err := d.StartCycle(ctx, ref, time.Second, time.Minute, 3); err != nil {
		t.Fatalf("StartCycle: %v", err)
	}
	if !d.IsCycling("fan-1") {
		t.Fatal("expected fan-1 to be cycling")
	}

	if err := d.TurnOff(ctx, ref); err != nil {
		t.Fatalf("TurnOff: %v", err)
	}
	if d.IsOn("fan-1") {
		t.Error("IsOn = true, want false after TurnOff")
	}
	if d.IsCycling("fan-1") {
		t.Error("IsCycling = true, want false after TurnOff")
	}
}

func TestStopCycleReportsPriorState(t *testing.T) {
	d := New()
	ref := device.Ref{Key: "pump-1"}
	ctx := context.Background()

	had, err := d.StopCycle(ctx, ref)
	if err != nil {
		t.Fatalf("StopCycle: %v", err)
	}
	if had {
		t.Error("had = true, want false for a device that never cycled")
	}

	if err := d.StartCycle(ctx, ref, time.Second, time.Second, 1); err != nil {
		t.Fatalf("StartCycle: %v", err)
	}
	had, err = d.StopCycle(ctx, ref)
	if err != nil {
		t.Fatalf("StopCycle: %v", err)
	}
	if !had {
		t.Error("had = false, want true for a device that was cycling")
	}
	if d.IsCycling("pump-1") {
		t.Error("IsCycling = true after StopCycle")
	}
}

func TestErrInjectionSkipsStateChange(t *testing.T) {
	d := New()
	d.Err = errors.New("transport down")
	ref := device.Ref{Key: "lamp-2"}

	if err := d.TurnOn(context.Background(), ref); err == nil {
		t.Fatal("expected injected error")
	}
	if d.IsOn("lamp-2") {
		t.Error("IsOn = true, want false when TurnOn returned an error")
	}
}

func TestCanceledContextShortCircuits(t *testing.T) {
	d := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.TurnOn(ctx, device.Ref{Key: "x"}); err == nil {
		t.Fatal("expected context error")
	}
	if len(d.Calls()) != 0 {
		t.Error("expected no call recorded for an already-canceled context")
	}
}
