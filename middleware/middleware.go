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

// Package middleware implements the Middleware pipeline of spec.md §4.4 on
// top of gin: built-ins -> global -> auth-as-middleware -> route middleware
// -> handler -> endware, each stage returning a boolean continue/
// short-circuit signal, grounded on nabbar-golib/router's middleware
// composition and gin's own "code after c.Next()" idiom for endware.
package middleware

import (
	"sync"

	ginsdk "github.com/gin-gonic/gin"
)

// Stage is one pipeline step: true continues to the next stage, false
// short-circuits the pipeline (the response is treated as already set).
type Stage func(c *ginsdk.Context) bool

const endwareKey = "pode.onend"

// QueueEndware appends a Stage to the current request's endware list,
// per spec.md §4.4 "endware... queued onto the event's OnEnd list during
// processing". Safe to call from within a handler or route middleware.
func QueueEndware(c *ginsdk.Context, stage Stage) {
	existing, _ := c.Get(endwareKey)
	list, _ := existing.([]Stage)
	list = append(list, stage)
	c.Set(endwareKey, list)
}

// Pipeline is the server-wide middleware composition: a one-time set of
// built-ins, prepended at most once, and global middleware accumulated in
// registration order.
type Pipeline struct {
	mu             sync.Mutex
	builtinsOnce   bool
	builtins       []Stage
	global         []Stage
	registeredEnd  []Stage // endware registered up front, not queued mid-request
}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// PrependBuiltins installs the built-in stages (static serve, route
// validate, body-parse, cookie-parse) ahead of everything else. It is
// idempotent: a second call is a no-op, so a cloud-function adapter layered
// on top of this core can call it unconditionally and still get
// "prepend exactly once" (spec.md §9 Open Question).
func (p *Pipeline) PrependBuiltins(stages ...Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.builtinsOnce {
		return
	}
	p.builtins = append([]Stage{}, stages...)
	p.builtinsOnce = true
}

// Use registers global middleware, run in registration order after the
// built-ins and before auth.
func (p *Pipeline) Use(stage Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.global = append(p.global, stage)
}

// UseEndware registers endware that always runs (in registration order,
// ahead of anything queued mid-request via QueueEndware), regardless of
// which route matched.
func (p *Pipeline) UseEndware(stage Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registeredEnd = append(p.registeredEnd, stage)
}

// Build composes the full per-route handler chain: built-ins, global, auth
// (if non-nil), route middleware, handler, then endware (registered +
// queued), per spec.md §4.4's documented order.
func (p *Pipeline) Build(auth Stage, routeMiddleware []Stage, handler Stage) ginsdk.HandlerFunc {
	p.mu.Lock()
	builtins := append([]Stage{}, p.builtins...)
	global := append([]Stage{}, p.global...)
	registeredEnd := append([]Stage{}, p.registeredEnd...)
	p.mu.Unlock()

	return func(c *ginsdk.Context) {
		stages := make([]Stage, 0, len(builtins)+len(global)+1+len(routeMiddleware)+1)
		stages = append(stages, builtins...)
		stages = append(stages, global...)
		if auth != nil {
			stages = append(stages, auth)
		}
		stages = append(stages, routeMiddleware...)
		stages = append(stages, handler)

		for _, stage := range stages {
			if !stage(c) {
				c.Abort()
				break
			}
		}

		end := append([]Stage{}, registeredEnd...)
		if queued, ok := c.Get(endwareKey); ok {
			if list, ok := queued.([]Stage); ok {
				end = append(end, list...)
			}
		}

		for _, stage := range end {
			stage(c)
		}
	}
}
