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

package middleware_test

import (
	"net/http"
	"net/http/httptest"

	ginsdk "github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pode-server/pode/middleware"
)

func runChain(h ginsdk.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := ginsdk.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	h(c)
	return w
}

var _ = Describe("Pipeline", func() {
	It("runs built-ins, global, auth, route middleware and handler in order", func() {
		var order []string

		p := middleware.NewPipeline()
		p.PrependBuiltins(func(c *ginsdk.Context) bool { order = append(order, "builtin"); return true })
		p.Use(func(c *ginsdk.Context) bool { order = append(order, "global"); return true })

		auth := func(c *ginsdk.Context) bool { order = append(order, "auth"); return true }
		routeMw := []middleware.Stage{func(c *ginsdk.Context) bool { order = append(order, "route"); return true }}
		handler := func(c *ginsdk.Context) bool { order = append(order, "handler"); return true }

		runChain(p.Build(auth, routeMw, handler))

		Expect(order).To(Equal([]string{"builtin", "global", "auth", "route", "handler"}))
	})

	It("short-circuits when a stage returns false", func() {
		var order []string

		p := middleware.NewPipeline()
		p.Use(func(c *ginsdk.Context) bool { order = append(order, "global"); return false })

		handler := func(c *ginsdk.Context) bool { order = append(order, "handler"); return true }

		runChain(p.Build(nil, nil, handler))

		Expect(order).To(Equal([]string{"global"}))
	})

	It("is idempotent when PrependBuiltins is called twice", func() {
		var count int

		p := middleware.NewPipeline()
		p.PrependBuiltins(func(c *ginsdk.Context) bool { count++; return true })
		p.PrependBuiltins(func(c *ginsdk.Context) bool { count += 100; return true })

		runChain(p.Build(nil, nil, func(c *ginsdk.Context) bool { return true }))

		Expect(count).To(Equal(1))
	})

	It("flushes registered and request-queued endware after the handler", func() {
		var order []string

		p := middleware.NewPipeline()
		p.UseEndware(func(c *ginsdk.Context) bool { order = append(order, "registered-end"); return true })

		handler := func(c *ginsdk.Context) bool {
			order = append(order, "handler")
			middleware.QueueEndware(c, func(c *ginsdk.Context) bool {
				order = append(order, "queued-end")
				return true
			})
			return true
		}

		runChain(p.Build(nil, nil, handler))

		Expect(order).To(Equal([]string{"handler", "registered-end", "queued-end"}))
	})

	It("still flushes endware when the pipeline short-circuited", func() {
		var order []string

		p := middleware.NewPipeline()
		p.Use(func(c *ginsdk.Context) bool { order = append(order, "global"); return false })
		p.UseEndware(func(c *ginsdk.Context) bool { order = append(order, "end"); return true })

		runChain(p.Build(nil, nil, func(c *ginsdk.Context) bool { return true }))

		Expect(order).To(Equal([]string{"global", "end"}))
	})
})
