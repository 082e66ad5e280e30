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

package reqctx_test

import (
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pode-server/pode/reqctx"
)

var _ = Describe("Context", func() {
	It("starts in state New with a fresh id and unknown type", func() {
		c := reqctx.New(nil, "ep1")
		Expect(c.State()).To(Equal(reqctx.StateNew))
		Expect(c.ID).ToNot(BeEmpty())
		Expect(c.Type).To(Equal(reqctx.TypeUnknown))
	})

	It("walks the documented lifecycle New -> Open -> Receiving -> Received -> Processing", func() {
		c := reqctx.New(nil, "ep1")
		Expect(c.Transition(reqctx.StateOpen)).To(BeNil())
		Expect(c.Transition(reqctx.StateReceiving)).To(BeNil())
		Expect(c.Transition(reqctx.StateReceived)).To(BeNil())
		Expect(c.Transition(reqctx.StateProcessing)).To(BeNil())
		Expect(c.State()).To(Equal(reqctx.StateProcessing))
	})

	It("loops back from Processing to Receiving on keep-alive", func() {
		c := reqctx.New(nil, "ep1")
		_ = c.Transition(reqctx.StateOpen)
		_ = c.Transition(reqctx.StateReceiving)
		_ = c.Transition(reqctx.StateReceived)
		_ = c.Transition(reqctx.StateProcessing)
		Expect(c.Transition(reqctx.StateReceiving)).To(BeNil())
		Expect(c.State()).To(Equal(reqctx.StateReceiving))
	})

	It("rejects an illegal transition", func() {
		c := reqctx.New(nil, "ep1")
		err := c.Transition(reqctx.StateProcessing)
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(reqctx.ErrorBadTransition)).To(BeTrue())
		Expect(c.State()).To(Equal(reqctx.StateNew))
	})

	It("allows Error/SslError from Open and only allows Closed after", func() {
		c := reqctx.New(nil, "ep1")
		_ = c.Transition(reqctx.StateOpen)
		Expect(c.Transition(reqctx.StateSslError)).To(BeNil())
		Expect(c.Transition(reqctx.StateReceiving)).ToNot(BeNil())
		Expect(c.Transition(reqctx.StateClosed)).To(BeNil())
	})

	It("never allows a transition out of Closed", func() {
		c := reqctx.New(nil, "ep1")
		_ = c.Transition(reqctx.StateClosed)
		Expect(c.Transition(reqctx.StateOpen)).ToNot(BeNil())
	})

	It("stores and retrieves values in the data bag", func() {
		c := reqctx.New(nil, "ep1")
		_, ok := c.Get("missing")
		Expect(ok).To(BeFalse())

		c.Set("user", "alice")
		v, ok := c.Get("user")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("alice"))
	})

	It("queues a cookie on the response builder", func() {
		c := reqctx.New(nil, "ep1")
		c.Response.SetCookie(reqctx.Cookie{Name: "sid", Value: "abc"})
		Expect(c.Response.Cookies).To(HaveLen(1))
		Expect(c.Response.Cookies[0].Name).To(Equal("sid"))
	})

	It("closes the underlying connection and transitions to Closed", func() {
		server, client := net.Pipe()
		defer client.Close()

		c := reqctx.New(server, "ep1")
		Expect(c.Close()).To(BeNil())
		Expect(c.State()).To(Equal(reqctx.StateClosed))
	})
})
