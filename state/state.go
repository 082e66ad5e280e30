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

// Package state implements the Shared State of spec.md §3: a keyed
// mapping from string to arbitrary value with an optional scope tag per
// entry, guarded by the single server-wide Lockable named in the
// GLOSSARY, with JSON persistence (spec.md §6 "Persisted state").
package state

import (
	"encoding/json"
	"sync"
)

// Entry is one shared-state value plus its optional scope tag.
type Entry struct {
	Value interface{} `json:"value"`
	Scope string      `json:"scope,omitempty"`
}

// Lockable is the single server-wide mutual-exclusion primitive named in
// the GLOSSARY. Acquire returns a release function so callers can use it
// as a scoped acquisition that always releases, even on panic/early return:
//
//	release := lockable.Acquire()
//	defer release()
type Lockable struct {
	mu sync.RWMutex
}

func (l *Lockable) Acquire() (release func()) {
	l.mu.Lock()
	return l.mu.Unlock
}

func (l *Lockable) AcquireRead() (release func()) {
	l.mu.RLock()
	return l.mu.RUnlock
}

// State is the shared-state keyed map, guarded by a Lockable. All
// mutation goes through it; reads may use the read-lock path.
type State struct {
	lock *Lockable
	data map[string]Entry
}

func New() *State {
	return &State{lock: &Lockable{}, data: make(map[string]Entry)}
}

// Lockable exposes the server-wide lock so other subsystems (session
// store, timer/schedule registries) can share the same mutual exclusion,
// per spec.md §5 "Shared-resource policy".
func (s *State) Lockable() *Lockable {
	return s.lock
}

func (s *State) Set(name string, value interface{}, scope string) {
	release := s.lock.Acquire()
	defer release()

	s.data[name] = Entry{Value: value, Scope: scope}
}

func (s *State) Get(name string) (Entry, bool) {
	release := s.lock.AcquireRead()
	defer release()

	e, ok := s.data[name]
	return e, ok
}

func (s *State) Delete(name string) {
	release := s.lock.Acquire()
	defer release()

	delete(s.data, name)
}

func (s *State) Keys() []string {
	release := s.lock.AcquireRead()
	defer release()

	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	return out
}

// Save serializes the whole map as the state.json document described in
// spec.md §6: { name: { value, scope } }.
func (s *State) Save() ([]byte, error) {
	release := s.lock.AcquireRead()
	defer release()

	return json.Marshal(s.data)
}

// Restore replaces the map's contents from a previously Saved document.
// Entries may be a raw value or a {value, scope} object; a raw value is
// treated as scope "".
func (s *State) Restore(raw []byte) error {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}

	data := make(map[string]Entry, len(generic))

	for k, v := range generic {
		var shape map[string]json.RawMessage
		if err := json.Unmarshal(v, &shape); err == nil {
			if _, hasValue := shape["value"]; hasValue {
				var e Entry
				if err := json.Unmarshal(v, &e); err != nil {
					return err
				}
				data[k] = e
				continue
			}
		}

		var raw interface{}
		if err := json.Unmarshal(v, &raw); err != nil {
			return err
		}
		data[k] = Entry{Value: raw}
	}

	release := s.lock.Acquire()
	defer release()

	s.data = data
	return nil
}
