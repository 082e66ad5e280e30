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

// Package route implements the Router of spec.md §4.3 on top of
// github.com/gin-gonic/gin, grounded on nabbar-golib/router's
// RouterList.Register/RegisterInGroup/Engine/Handler shape.
package route

import (
	"net/http"
	"strings"

	ginsdk "github.com/gin-gonic/gin"

	liberr "github.com/pode-server/pode/errors"
)

const (
	ErrorDuplicateRoute liberr.CodeError = iota + liberr.MinPkgRoute
	ErrorAmbiguousRoute
)

func init() {
	liberr.RegisterMessage(liberr.MinPkgRoute, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorDuplicateRoute:
		return "a route with this method, pattern and endpoint already exists"
	case ErrorAmbiguousRoute:
		return "two routes of equal specificity match the same request"
	default:
		return ""
	}
}

// AnyMethod is the '*' method wildcard: matches any method but loses to a
// specific method match per spec.md §4.3.
const AnyMethod = "*"

// Handler is the user route handler, endware and middleware signature.
type Handler func(c *ginsdk.Context)

// Route is one registered (method, pattern, endpoint-name) binding.
type Route struct {
	Method       string
	Pattern      Pattern
	EndpointName string // empty = matches any endpoint

	Middleware []Handler
	Handler    Handler
	AuthName   string
	Login      bool
	Logout     bool
	Static     *StaticDescriptor
}

// StaticDescriptor configures a route as a static-content server, wired
// from web.static.cache.* config keys (spec.md §6).
type StaticDescriptor struct {
	Root         string
	CacheEnable  bool
	CacheMaxAge  int
}

// Table is the server-wide route table. Mutated only during setup (configure-
// once, read-many per spec.md §5), it layers duplicate-route detection and
// endpoint-name filtering on top of a *gin.Engine.
type Table struct {
	engine *ginsdk.Engine
	routes []*Route
}

// DefaultGinInit builds the gin.Engine the way nabbar-golib/router does:
// release mode, recovery middleware, no default logger (Pode's own
// middleware pipeline owns request logging).
func DefaultGinInit() *ginsdk.Engine {
	ginsdk.SetMode(ginsdk.ReleaseMode)
	e := ginsdk.New()
	e.Use(ginsdk.Recovery())
	return e
}

func NewTable(init func() *ginsdk.Engine) *Table {
	if init == nil {
		init = DefaultGinInit
	}
	return &Table{engine: init()}
}

func (t *Table) Engine() *ginsdk.Engine {
	return t.engine
}

// Register adds a route, enforcing the no-duplicate-triple invariant of
// spec.md §3 "Route". Returns ErrorDuplicateRoute on a (method, pattern,
// endpoint-name) collision.
func (t *Table) Register(r *Route) liberr.Error {
	for _, existing := range t.routes {
		if existing.Method == r.Method &&
			existing.Pattern.String() == r.Pattern.String() &&
			existing.EndpointName == r.EndpointName {
			return ErrorDuplicateRoute.Error(nil)
		}
	}

	t.routes = append(t.routes, r)
	return nil
}

// Match implements spec.md §4.3's match order: exact method + exact
// pattern wins over exact method + wildcard pattern wins over method='*'.
// Ties across equally-specific matches are reported as a configuration
// error (spec.md §4.3) rather than resolved silently.
func (t *Table) Match(method, path, endpointName string) (*Route, map[string]string, liberr.Error) {
	type candidate struct {
		route  *Route
		params map[string]string
		rank   int // 2 = exact method, 1 = wildcard method
	}

	var best []candidate

	for _, r := range t.routes {
		if r.EndpointName != "" && endpointName != "" && r.EndpointName != endpointName {
			continue
		}

		methodMatches := false
		rank := 0
		if strings.EqualFold(r.Method, method) {
			methodMatches = true
			rank = 2
		} else if r.Method == AnyMethod {
			methodMatches = true
			rank = 1
		}

		if !methodMatches {
			continue
		}

		params, ok := r.Pattern.Match(path)
		if !ok {
			continue
		}

		best = append(best, candidate{route: r, params: params, rank: rank})
	}

	if len(best) == 0 {
		return nil, nil, nil
	}

	// highest rank first, then highest pattern specificity.
	top := best[0]
	for _, c := range best[1:] {
		if c.rank > top.rank ||
			(c.rank == top.rank && c.route.Pattern.Specificity() > top.route.Pattern.Specificity()) {
			top = c
		}
	}

	for _, c := range best {
		if c.route == top.route {
			continue
		}
		if c.rank == top.rank && c.route.Pattern.Specificity() == top.route.Pattern.Specificity() {
			return nil, nil, ErrorAmbiguousRoute.Error(nil)
		}
	}

	return top.route, top.params, nil
}

// RegisterGin wires handlers onto the gin engine directly (used for static/built-in
// fast paths that don't need Pode's own match-order resolution, grounded
// on RouterList.Register).
func (t *Table) RegisterGin(method, pattern string, handlers ...ginsdk.HandlerFunc) {
	t.engine.Handle(method, pattern, handlers...)
}

// RegisterInGroup mirrors RouterList.RegisterInGroup: an empty group is
// treated as no group.
func (t *Table) RegisterInGroup(group, method, pattern string, handlers ...ginsdk.HandlerFunc) {
	if group == "" {
		t.RegisterGin(method, pattern, handlers...)
		return
	}
	t.engine.Group(group).Handle(method, pattern, handlers...)
}

// ServeHTTP lets a Table be used directly as an http.Handler.
func (t *Table) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.engine.ServeHTTP(w, r)
}
