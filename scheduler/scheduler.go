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
	"sync"
	"time"

	liberr "github.com/pode-server/pode/errors"
	"github.com/pode-server/pode/state"
)

// Registry owns the timer/schedule tables, guarded by the shared Lockable
// per spec.md §5 "timer/schedule registries" mutation policy.
type Registry struct {
	lock      *state.Lockable
	timers    map[string]*Timer
	schedules map[string]*Schedule

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

func NewRegistry(lockable *state.Lockable) *Registry {
	if lockable == nil {
		lockable = &state.Lockable{}
	}
	return &Registry{
		lock:      lockable,
		timers:    make(map[string]*Timer),
		schedules: make(map[string]*Schedule),
	}
}

// AddTimer registers a Timer under its Name, rejecting duplicates.
func (r *Registry) AddTimer(t *Timer) liberr.Error {
	release := r.lock.Acquire()
	defer release()

	if _, exists := r.timers[t.Name]; exists {
		return ErrorDuplicateTimer.Error(nil)
	}
	r.timers[t.Name] = t
	return nil
}

// AddSchedule registers a Schedule under its Name, rejecting duplicates.
func (r *Registry) AddSchedule(s *Schedule) liberr.Error {
	release := r.lock.Acquire()
	defer release()

	if _, exists := r.schedules[s.Name]; exists {
		return ErrorDuplicateSchedule.Error(nil)
	}
	r.schedules[s.Name] = s
	return nil
}

// RemoveTimer stops and removes a timer by name, if present.
func (r *Registry) RemoveTimer(name string) {
	release := r.lock.Acquire()
	defer release()

	if t, ok := r.timers[name]; ok {
		t.Stop()
		delete(r.timers, name)
	}
}

// RemoveSchedule removes a schedule by name, if present.
func (r *Registry) RemoveSchedule(name string) {
	release := r.lock.Acquire()
	defer release()
	delete(r.schedules, name)
}

// Timer returns a registered timer by name.
func (r *Registry) Timer(name string) (*Timer, bool) {
	release := r.lock.AcquireRead()
	defer release()
	t, ok := r.timers[name]
	return t, ok
}

// Start starts every registered timer and begins the schedule-evaluation
// loop, which polls every schedule once a second (Schedule.Tick fires at
// most once per minute).
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	release := r.lock.AcquireRead()
	for _, t := range r.timers {
		t.Start(runCtx)
	}
	release()

	go r.scheduleLoop(runCtx)
}

func (r *Registry) scheduleLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			release := r.lock.AcquireRead()
			for _, s := range r.schedules {
				s.Tick(ctx, now)
			}
			release()
		}
	}
}

// Stop stops every timer and the schedule loop.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	if r.cancel != nil {
		r.cancel()
	}

	release := r.lock.AcquireRead()
	for _, t := range r.timers {
		t.Stop()
	}
	release()

	r.running = false
}
