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

// Package watcher implements the optional File watcher of spec.md §4.7:
// observes configured source paths and triggers a debounced restart
// callback on change, using github.com/fsnotify/fsnotify — carried from
// the teacher's dependency set even though no teacher source file imports
// it directly (see DESIGN.md).
package watcher

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	liberr "github.com/pode-server/pode/errors"
)

const (
	ErrorOpenWatcher liberr.CodeError = iota + liberr.MinPkgWatcher
	ErrorAddPath
)

func init() {
	liberr.RegisterMessage(liberr.MinPkgWatcher, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorOpenWatcher:
		return "unable to open file watcher"
	case ErrorAddPath:
		return "unable to watch path"
	default:
		return ""
	}
}

// DefaultDebounce is spec.md §4.7's "debounce (default ~1s)".
const DefaultDebounce = time.Second

// Watcher debounces fsnotify events for a set of paths before invoking a
// single trigger callback.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onChange func()

	mu      sync.Mutex
	timer   *time.Timer
	stop    chan struct{}
	stopped bool
}

// New opens an fsnotify watcher over paths. onChange is invoked at most
// once per debounce window regardless of how many events arrive within it.
func New(paths []string, debounce time.Duration, onChange func()) (*Watcher, liberr.Error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ErrorOpenWatcher.Error(err)
	}

	for _, p := range paths {
		if err := fsw.Add(p); err != nil {
			fsw.Close()
			return nil, ErrorAddPath.Error(err)
		}
	}

	w := &Watcher{fsw: fsw, debounce: debounce, onChange: onChange, stop: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.scheduleTrigger()
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) scheduleTrigger() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if w.onChange != nil {
			w.onChange()
		}
	})
}

// AddPath watches an additional path while running.
func (w *Watcher) AddPath(path string) liberr.Error {
	if err := w.fsw.Add(path); err != nil {
		return ErrorAddPath.Error(err)
	}
	return nil
}

// Close stops the watcher and releases its underlying fsnotify handle.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	if !w.stopped {
		w.stopped = true
		close(w.stop)
	}
	w.mu.Unlock()

	return w.fsw.Close()
}
