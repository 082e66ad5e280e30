/*
 * MIT License
 *
 * Copyright (c) 2026 Pode authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package scheduler

import (
	"context"
	"sync/atomic"
	"time"
)

// TimerFunc is a timer's tick handler.
type TimerFunc func(ctx context.Context) error

// Timer is a fixed-interval job with an optional skip-count and limit, not
// reentrant: if the previous tick is still running when the next one is
// due, the tick is skipped, per spec.md §4.7 "Timers". Grounded on
// nabbar-golib/runner/ticker's New/Start/Stop/IsRunning/Uptime shape.
type Timer struct {
	Name     string
	Interval time.Duration
	Skip     int // number of initial ticks to skip before firing
	Limit    int // 0 = unlimited

	fn TimerFunc

	running  int32
	inFlight int32
	fired    int32
	skipped  int32
	started  time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewTimer builds a Timer. A nil fn is accepted (it simply never fires),
// matching the teacher's "nil function without panic" construction
// contract.
func NewTimer(name string, interval time.Duration, skip, limit int, fn TimerFunc) *Timer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Timer{Name: name, Interval: interval, Skip: skip, Limit: limit, fn: fn}
}

// IsRunning reports whether the timer's goroutine is active.
func (t *Timer) IsRunning() bool {
	return atomic.LoadInt32(&t.running) == 1
}

// Uptime reports how long the timer has been running, zero if stopped.
func (t *Timer) Uptime() time.Duration {
	if !t.IsRunning() {
		return 0
	}
	return time.Since(t.started)
}

// Start begins ticking. If already running, it is stopped and restarted
// first, mirroring the teacher's "Start stops an existing instance first".
func (t *Timer) Start(ctx context.Context) {
	if t.IsRunning() {
		t.Stop()
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.started = time.Now()
	atomic.StoreInt32(&t.running, 1)
	atomic.StoreInt32(&t.skipped, 0)
	atomic.StoreInt32(&t.fired, 0)

	go t.loop(runCtx)
}

func (t *Timer) loop(ctx context.Context) {
	defer close(t.done)
	defer atomic.StoreInt32(&t.running, 0)

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx)
			// drop a tick that came due while this one was running.
			select {
			case <-ticker.C:
			default:
			}
			if t.Limit > 0 && int(atomic.LoadInt32(&t.fired)) >= t.Limit {
				return
			}
		}
	}
}

func (t *Timer) tick(ctx context.Context) {
	if int(atomic.LoadInt32(&t.skipped)) < t.Skip {
		atomic.AddInt32(&t.skipped, 1)
		return
	}

	if !atomic.CompareAndSwapInt32(&t.inFlight, 0, 1) {
		// previous tick still running; skip per the not-reentrant invariant.
		return
	}
	defer atomic.StoreInt32(&t.inFlight, 0)

	atomic.AddInt32(&t.fired, 1)

	if t.fn != nil {
		_ = t.fn(ctx)
	}
}

// Stop cancels the timer and waits for its goroutine to exit.
func (t *Timer) Stop() {
	if !t.IsRunning() {
		return
	}
	if t.cancel != nil {
		t.cancel()
	}
	if t.done != nil {
		<-t.done
	}
}

// Restart is an atomic stop-then-start.
func (t *Timer) Restart(ctx context.Context) {
	t.Stop()
	t.Start(ctx)
}

// FireCount reports how many ticks actually ran the handler (excluding
// skipped and not-reentrant-dropped ticks).
func (t *Timer) FireCount() int {
	return int(atomic.LoadInt32(&t.fired))
}
