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

package scheduler_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pode-server/pode/scheduler"
)

var _ = Describe("Timer", func() {
	It("is not running until started", func() {
		tm := scheduler.NewTimer("t1", 10*time.Millisecond, 0, 0, nil)
		Expect(tm.IsRunning()).To(BeFalse())
		Expect(tm.Uptime()).To(Equal(time.Duration(0)))
	})

	It("accepts a nil function without panic", func() {
		Expect(func() {
			tm := scheduler.NewTimer("t1", 10*time.Millisecond, 0, 0, nil)
			tm.Start(context.Background())
			time.Sleep(20 * time.Millisecond)
			tm.Stop()
		}).ToNot(Panic())
	})

	It("fires on its interval", func() {
		var count int32
		tm := scheduler.NewTimer("t1", 20*time.Millisecond, 0, 0, func(ctx context.Context) error {
			atomic.AddInt32(&count, 1)
			return nil
		})

		tm.Start(context.Background())
		Expect(tm.IsRunning()).To(BeTrue())
		time.Sleep(100 * time.Millisecond)
		tm.Stop()

		Expect(atomic.LoadInt32(&count)).To(BeNumerically(">=", 2))
		Expect(tm.IsRunning()).To(BeFalse())
	})

	It("skips the configured number of initial ticks", func() {
		var count int32
		tm := scheduler.NewTimer("t1", 15*time.Millisecond, 2, 0, func(ctx context.Context) error {
			atomic.AddInt32(&count, 1)
			return nil
		})

		tm.Start(context.Background())
		time.Sleep(50 * time.Millisecond)
		tm.Stop()

		Expect(tm.FireCount()).To(BeNumerically("<", 3))
	})

	It("stops firing once limit is reached", func() {
		tm := scheduler.NewTimer("t1", 10*time.Millisecond, 0, 2, func(ctx context.Context) error {
			return nil
		})

		tm.Start(context.Background())
		time.Sleep(80 * time.Millisecond)

		Expect(tm.FireCount()).To(Equal(2))
	})

	It("skips a tick if the previous one is still running", func() {
		var concurrent int32
		var maxConcurrent int32

		tm := scheduler.NewTimer("t1", 10*time.Millisecond, 0, 0, func(ctx context.Context) error {
			n := atomic.AddInt32(&concurrent, 1)
			if n > atomic.LoadInt32(&maxConcurrent) {
				atomic.StoreInt32(&maxConcurrent, n)
			}
			time.Sleep(40 * time.Millisecond)
			atomic.AddInt32(&concurrent, -1)
			return nil
		})

		tm.Start(context.Background())
		time.Sleep(120 * time.Millisecond)
		tm.Stop()

		Expect(atomic.LoadInt32(&maxConcurrent)).To(Equal(int32(1)))
	})
})

var _ = Describe("Pool", func() {
	It("drains submitted jobs across its threads", func() {
		p := scheduler.NewPool(4, 16)
		Expect(p.Start(context.Background())).To(BeNil())

		var count int32
		for i := 0; i < 10; i++ {
			p.Submit(func(ctx context.Context) {
				atomic.AddInt32(&count, 1)
			})
		}

		Eventually(func() int32 { return atomic.LoadInt32(&count) }, time.Second).Should(Equal(int32(10)))
		Expect(p.Stop(time.Second)).To(BeNil())
		Expect(p.IsRunning()).To(BeFalse())
	})

	It("rejects a second Start while running", func() {
		p := scheduler.NewPool(1, 1)
		Expect(p.Start(context.Background())).To(BeNil())
		err := p.Start(context.Background())
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(scheduler.ErrorAlreadyRunning)).To(BeTrue())
		_ = p.Stop(time.Second)
	})
})
