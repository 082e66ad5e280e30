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

// Package scheduler implements the Scheduler runtime of spec.md §4.7: a
// cooperative worker pool draining a request-context queue, fixed-interval
// timers, cron/wall-clock schedules, and auto-restart wiring, grounded on
// nabbar-golib/runner/startStop's Start/Stop/IsRunning/Uptime lifecycle and
// nabbar-golib/runner/ticker's interval-tick idiom.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	liberr "github.com/pode-server/pode/errors"
)

const (
	ErrorAlreadyRunning liberr.CodeError = iota + liberr.MinPkgScheduler
	ErrorNotRunning
	ErrorDuplicateTimer
	ErrorDuplicateSchedule
	ErrorBadCronExpression
)

func init() {
	liberr.RegisterMessage(liberr.MinPkgScheduler, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorAlreadyRunning:
		return "scheduler already running"
	case ErrorNotRunning:
		return "scheduler not running"
	case ErrorDuplicateTimer:
		return "a timer with this name already exists"
	case ErrorDuplicateSchedule:
		return "a schedule with this name already exists"
	case ErrorBadCronExpression:
		return "invalid cron expression"
	default:
		return ""
	}
}

// Job is a unit of work dispatched either by the worker pool draining the
// Listener's connection queue, or by a Timer/Schedule tick.
type Job func(ctx context.Context)

// Pool is the Threads cooperative executor set of spec.md §4.7 "Worker
// pool": each executor drains jobs off a shared channel one at a time,
// running the full per-request pipeline to completion before picking up
// the next (spec.md §5's "single-owner for its lifetime").
type Pool struct {
	threads int
	queue   chan Job

	running int32
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewPool builds a Pool with the given thread count and queue depth.
func NewPool(threads, queueDepth int) *Pool {
	if threads <= 0 {
		threads = 1
	}
	if queueDepth <= 0 {
		queueDepth = threads * 4
	}
	return &Pool{threads: threads, queue: make(chan Job, queueDepth)}
}

// Start spins up the pool's executors, each looping until ctx is
// cancelled or Stop is called.
func (p *Pool) Start(ctx context.Context) liberr.Error {
	if !atomic.CompareAndSwapInt32(&p.running, 0, 1) {
		return ErrorAlreadyRunning.Error(nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.threads; i++ {
		p.wg.Add(1)
		go p.loop(runCtx)
	}

	return nil
}

func (p *Pool) loop(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			job(ctx)
		}
	}
}

// Submit enqueues a job. It blocks if the queue is full, applying natural
// backpressure to the Listener's accept loop.
func (p *Pool) Submit(job Job) {
	p.queue <- job
}

// Stop cancels all executors and waits, up to grace, for in-flight jobs to
// finish — the worker-pool half of spec.md §4.7's "Graceful shutdown".
func (p *Pool) Stop(grace time.Duration) liberr.Error {
	if !atomic.CompareAndSwapInt32(&p.running, 1, 0) {
		return ErrorNotRunning.Error(nil)
	}

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
	}

	return nil
}

// IsRunning reports whether the pool is currently draining its queue.
func (p *Pool) IsRunning() bool {
	return atomic.LoadInt32(&p.running) == 1
}

// QueueLen reports the number of jobs currently buffered, used by tests
// and diagnostics.
func (p *Pool) QueueLen() int {
	return len(p.queue)
}
