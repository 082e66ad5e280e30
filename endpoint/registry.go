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

package endpoint

import (
	"os"
	"runtime"
	"sync"

	liberr "github.com/pode-server/pode/errors"
)

const (
	ErrorDuplicateName liberr.CodeError = iota + liberr.MinPkgEndpoint
	ErrorFamilyConflict
	ErrorPrivilegeRequired
	ErrorUnknownProtocol
)

func init() {
	liberr.RegisterMessage(liberr.MinPkgEndpoint, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorDuplicateName:
		return "an endpoint with this name is already registered"
	case ErrorFamilyConflict:
		return "cannot add endpoint: protocol family conflicts with already registered endpoints"
	case ErrorPrivilegeRequired:
		return "binding to this port requires elevated privileges"
	case ErrorUnknownProtocol:
		return "unknown protocol"
	default:
		return ""
	}
}

// Registry holds the server-wide set of registered endpoints and enforces
// spec.md §4.1/§8's uniqueness and protocol-family-exclusivity invariants.
// Mutated only during setup, read by the listener thereafter (spec.md §5).
type Registry struct {
	mu   sync.RWMutex
	byKy map[string]Endpoint // by (protocol,address,port)
	list []Endpoint
}

func NewRegistry() *Registry {
	return &Registry{byKy: make(map[string]Endpoint)}
}

// Add registers ep, enforcing: re-adding an identical (protocol, address,
// port) is a no-op; a duplicate name fails; family exclusivity is
// enforced across the whole registry; low ports require privilege.
func (r *Registry) Add(ep Endpoint) liberr.Error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byKy[ep.Key()]; ok {
		// identical (protocol, address, port): no-op.
		return nil
	}

	for _, e := range r.list {
		if e.Name == ep.Name {
			return ErrorDuplicateName.Error(nil)
		}
	}

	if !r.familyCompatible(ep.Protocol) {
		return ErrorFamilyConflict.Error(nil)
	}

	if ep.RequiresPrivilege() && !hasPrivilege() {
		return ErrorPrivilegeRequired.Error(nil)
	}

	r.byKy[ep.Key()] = ep
	r.list = append(r.list, ep)

	return nil
}

// familyCompatible enforces spec.md §3's invariant (a): the server as a
// whole has at most one family {HTTP|HTTPS|WS|WSS}, or exactly one SMTP
// endpoint, or exactly one TCP endpoint.
func (r *Registry) familyCompatible(p Protocol) bool {
	if len(r.list) == 0 {
		return true
	}

	existingFamily := r.list[0].Protocol.family()
	newFamily := p.family()

	if existingFamily != newFamily {
		return false
	}

	if newFamily == "smtp" || newFamily == "tcp" {
		// at most one SMTP / one TCP endpoint total.
		return false
	}

	return true
}

func hasPrivilege() bool {
	if runtime.GOOS == "windows" {
		return true
	}
	return os.Geteuid() == 0
}

// List returns a copy of all registered endpoints, in registration order.
func (r *Registry) List() []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Endpoint, len(r.list))
	copy(out, r.list)
	return out
}

func (r *Registry) ByName(name string) (Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.list {
		if e.Name == name {
			return e, true
		}
	}
	return Endpoint{}, false
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.list)
}
