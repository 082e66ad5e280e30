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

package listener_test

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pode-server/pode/endpoint"
	"github.com/pode-server/pode/listener"
	"github.com/pode-server/pode/reqctx"
)

var _ = Describe("Listener", func() {
	It("accepts a connection, transitions it to Open, and dispatches it to the handler", func() {
		ep, err := endpoint.New(endpoint.TCP, "127.0.0.1", 0, "test-tcp", "")
		Expect(err).To(BeNil())

		var handled int32
		var gotState reqctx.State

		l := listener.New(ep, func(ctx context.Context, rc *reqctx.Context) {
			atomic.AddInt32(&handled, 1)
			gotState = rc.State()
			_ = rc.Close()
		}, nil)

		Expect(l.Start(context.Background(), nil)).To(BeNil())
		defer l.Stop()

		Expect(l.IsRunning()).To(BeTrue())

		conn, derr := net.Dial("tcp", l.Addr().String())
		Expect(derr).To(BeNil())
		defer conn.Close()

		Eventually(func() int32 { return atomic.LoadInt32(&handled) }, time.Second).Should(Equal(int32(1)))
		Expect(gotState).To(Equal(reqctx.StateOpen))
	})

	It("routes accepted connections through a supplied submit function", func() {
		ep, err := endpoint.New(endpoint.TCP, "127.0.0.1", 0, "test-tcp-submit", "")
		Expect(err).To(BeNil())

		var submitted int32
		submit := func(job func(context.Context)) {
			atomic.AddInt32(&submitted, 1)
			job(context.Background())
		}

		l := listener.New(ep, func(ctx context.Context, rc *reqctx.Context) {
			_ = rc.Close()
		}, submit)

		Expect(l.Start(context.Background(), nil)).To(BeNil())
		defer l.Stop()

		conn, derr := net.Dial("tcp", l.Addr().String())
		Expect(derr).To(BeNil())
		defer conn.Close()

		Eventually(func() int32 { return atomic.LoadInt32(&submitted) }, time.Second).Should(Equal(int32(1)))
	})

	It("stops cleanly and reports not running", func() {
		ep, err := endpoint.New(endpoint.TCP, "127.0.0.1", 0, "test-tcp-stop", "")
		Expect(err).To(BeNil())

		l := listener.New(ep, func(ctx context.Context, rc *reqctx.Context) {}, nil)
		Expect(l.Start(context.Background(), nil)).To(BeNil())
		Expect(l.Stop()).To(BeNil())
		Expect(l.IsRunning()).To(BeFalse())
	})

	It("rejects a second Start call while already running", func() {
		ep, err := endpoint.New(endpoint.TCP, "127.0.0.1", 0, "test-tcp-double-start", "")
		Expect(err).To(BeNil())

		l := listener.New(ep, func(ctx context.Context, rc *reqctx.Context) {}, nil)
		Expect(l.Start(context.Background(), nil)).To(BeNil())
		defer l.Stop()

		err2 := l.Start(context.Background(), nil)
		Expect(err2).ToNot(BeNil())
		Expect(err2.IsCode(listener.ErrorAlreadyRunning)).To(BeTrue())
	})
})
