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

package route_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pode-server/pode/route"
)

var _ = Describe("Table", func() {
	var tbl *route.Table

	BeforeEach(func() {
		tbl = route.NewTable(nil)
	})

	It("registers a route without error", func() {
		r := &route.Route{Method: http.MethodGet, Pattern: route.CompilePattern("/users/:id")}
		Expect(tbl.Register(r)).To(BeNil())
	})

	It("rejects a duplicate (method, pattern, endpoint) triple", func() {
		r1 := &route.Route{Method: http.MethodGet, Pattern: route.CompilePattern("/x")}
		r2 := &route.Route{Method: http.MethodGet, Pattern: route.CompilePattern("/x")}
		Expect(tbl.Register(r1)).To(BeNil())
		err := tbl.Register(r2)
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(route.ErrorDuplicateRoute)).To(BeTrue())
	})

	It("prefers exact method + exact pattern over method='*'", func() {
		star := &route.Route{Method: route.AnyMethod, Pattern: route.CompilePattern("/x")}
		get := &route.Route{Method: http.MethodGet, Pattern: route.CompilePattern("/x")}
		Expect(tbl.Register(star)).To(BeNil())
		Expect(tbl.Register(get)).To(BeNil())

		matched, _, err := tbl.Match(http.MethodGet, "/x", "")
		Expect(err).To(BeNil())
		Expect(matched).To(BeIdenticalTo(get))
	})

	It("prefers a literal segment over a :param segment", func() {
		param := &route.Route{Method: http.MethodGet, Pattern: route.CompilePattern("/users/:id")}
		lit := &route.Route{Method: http.MethodGet, Pattern: route.CompilePattern("/users/me")}
		Expect(tbl.Register(param)).To(BeNil())
		Expect(tbl.Register(lit)).To(BeNil())

		matched, _, err := tbl.Match(http.MethodGet, "/users/me", "")
		Expect(err).To(BeNil())
		Expect(matched).To(BeIdenticalTo(lit))
	})

	It("binds :param segments, URL-decoded by the caller", func() {
		r := &route.Route{Method: http.MethodGet, Pattern: route.CompilePattern("/users/:id")}
		Expect(tbl.Register(r)).To(BeNil())

		_, params, err := tbl.Match(http.MethodGet, "/users/42", "")
		Expect(err).To(BeNil())
		Expect(params["id"]).To(Equal("42"))
	})

	It("matches * as exactly one segment and ** as the remainder", func() {
		one := &route.Route{Method: http.MethodGet, Pattern: route.CompilePattern("/files/*")}
		Expect(tbl.Register(one)).To(BeNil())

		_, _, err := tbl.Match(http.MethodGet, "/files/a/b", "")
		Expect(err).To(BeNil())

		rest := &route.Route{Method: http.MethodGet, Pattern: route.CompilePattern("/assets/**")}
		Expect(tbl.Register(rest)).To(BeNil())

		matched, _, err := tbl.Match(http.MethodGet, "/assets/a/b/c", "")
		Expect(err).To(BeNil())
		Expect(matched).To(BeIdenticalTo(rest))
	})

	It("filters on endpoint name", func() {
		r := &route.Route{Method: http.MethodGet, Pattern: route.CompilePattern("/x"), EndpointName: "admin"}
		Expect(tbl.Register(r)).To(BeNil())

		matched, _, err := tbl.Match(http.MethodGet, "/x", "public")
		Expect(err).To(BeNil())
		Expect(matched).To(BeNil())

		matched, _, err = tbl.Match(http.MethodGet, "/x", "admin")
		Expect(err).To(BeNil())
		Expect(matched).To(BeIdenticalTo(r))
	})

	It("returns no match for an unregistered path", func() {
		matched, _, err := tbl.Match(http.MethodGet, "/nope", "")
		Expect(err).To(BeNil())
		Expect(matched).To(BeNil())
	})
})
