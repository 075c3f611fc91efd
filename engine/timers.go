package engine

import "time"

// scheduleAfter runs fn on the executor goroutine after d, provided the
// engine's abort epoch hasn't advanced since the call was made. This is the
// engine's only source of wall-clock suspension: delay nodes, cycle
// completions, and until-timers all route through it.
//
// The Driver contract (device.Driver) has no push-style completion
// callback, so cycle and until-timer completions are computed here from the
// duration/interval/cycles the flow author configured, rather than reported
// by the driver.
func (e *Engine) scheduleAfter(d time.Duration, fn func()) {
	epoch := e.abortEpoch
	time.AfterFunc(d, func() {
		e.postContinuation(continuation{epoch: epoch, run: fn})
	})
}

// cycleTotalDuration computes the wall-clock span of a start_cycle action:
// cycles * (duration + interval), matching §8 scenario 3's "~9 seconds for
// 3 cycles of 2s on / 1s off".
func cycleTotalDuration(duration, interval time.Duration, cycles int) time.Duration {
	if cycles <= 0 {
		return 0
	}
	return time.Duration(cycles) * (duration + interval)
}

// isIdle reports whether the engine has handled no event other than a
// synthetic "idle" event for at least threshold. Idle triggers are checked
// against this whenever an "idle" event is dispatched; StartIdleChecker below
// posts such events on a schedule for callers who do not feed them in
// themselves.
func (e *Engine) isIdle(threshold time.Duration) bool {
	return time.Since(e.lastActivity) >= threshold
}

// StartIdleChecker spawns a goroutine that posts a synthetic "idle" event
// into the mailbox every interval, letting idle-triggered flows fire without
// the caller having to drive a ticker of its own. Stops when the returned
// stop function is called.
func (e *Engine) StartIdleChecker(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				e.mailbox <- engineMessage{
					kind:    msgHandleEvent,
					payload: handleEventPayload{eventType: "idle", data: EventData{}},
				}
			}
		}
	}()
	return func() { close(done) }
}
