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

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error is the interface implemented by every Pode error value: a normal
// Go error plus a numeric code and an optional chain of parent errors.
type Error interface {
	error

	IsCode(code CodeError) bool
	HasCode(code CodeError) bool
	GetCode() CodeError

	Is(e error) bool
	HasParent() bool
	GetParent() []error
	Add(parent ...error)
}

type codeErr struct {
	code   CodeError
	parent []error
}

// Error constructs a new Error value for this code, optionally wrapping a
// parent error (nil is allowed and means "no parent yet").
func (c CodeError) Error(parent error) Error {
	e := &codeErr{code: c}
	if parent != nil {
		e.parent = append(e.parent, parent)
	}
	return e
}

// ErrorParent is a convenience alias for Error, used when the intent at
// the call site is specifically "wrap this lower-level error".
func (c CodeError) ErrorParent(parent error) Error {
	return c.Error(parent)
}

func message(code CodeError) string {
	for first, fct := range idMessage {
		if code < first {
			continue
		}
		if msg := fct(code); msg != "" {
			return msg
		}
	}
	return ""
}

func (e *codeErr) Error() string {
	msg := message(e.code)
	if msg == "" {
		msg = fmt.Sprintf("error code %d", e.code.Uint16())
	}

	if len(e.parent) == 0 {
		return msg
	}

	parts := make([]string, 0, len(e.parent)+1)
	parts = append(parts, msg)
	for _, p := range e.parent {
		parts = append(parts, p.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *codeErr) IsCode(code CodeError) bool {
	return e.code == code
}

func (e *codeErr) HasCode(code CodeError) bool {
	if e.code == code {
		return true
	}
	for _, p := range e.parent {
		var ce *codeErr
		if errors.As(p, &ce) && ce.HasCode(code) {
			return true
		}
	}
	return false
}

func (e *codeErr) GetCode() CodeError {
	return e.code
}

func (e *codeErr) Is(target error) bool {
	var ce *codeErr
	if errors.As(target, &ce) {
		return ce.code == e.code
	}
	for _, p := range e.parent {
		if errors.Is(p, target) {
			return true
		}
	}
	return false
}

func (e *codeErr) HasParent() bool {
	return len(e.parent) > 0
}

func (e *codeErr) GetParent() []error {
	return e.parent
}

func (e *codeErr) Add(parent ...error) {
	for _, p := range parent {
		if p != nil {
			e.parent = append(e.parent, p)
		}
	}
}
