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

// Package errors provides a small HTTP-status-like error classification
// scheme shared by every Pode package: a numeric CodeError, an Error value
// that can carry a chain of parent errors, and per-package code ranges so
// two packages never collide on the same code.
package errors

import "math"

// CodeError is a numeric classification similar to an HTTP status code.
type CodeError uint16

const (
	// UnknownError is the zero-value fallback code.
	UnknownError CodeError = 0
)

// Per-package code ranges. Each package reserves a 100-wide block and
// declares its own CodeError constants starting at iota + <its MinPkg*>.
const (
	MinPkgEndpoint   CodeError = 100
	MinPkgRoute      CodeError = 200
	MinPkgMiddleware CodeError = 300
	MinPkgAuth       CodeError = 400
	MinPkgSession    CodeError = 500
	MinPkgScheduler  CodeError = 600
	MinPkgWatcher    CodeError = 700
	MinPkgState      CodeError = 800
	MinPkgUserStore  CodeError = 900
	MinPkgReqCtx     CodeError = 1000
	MinPkgProtocol   CodeError = 1100
	MinPkgListener   CodeError = 1200
	MinPkgServer     CodeError = 1300
	MinPkgConfig     CodeError = 1400
	MinPkgCerts      CodeError = 1500

	MinAvailable CodeError = 2000
)

var idMessage = make(map[CodeError]func(CodeError) string)

// RegisterMessage registers a message function for a contiguous block of
// codes. Each package calls this once from an init() with the first code
// of its own block; Error() resolves any code's text by trying every
// registered block at or below the code until one returns a non-empty string.
func RegisterMessage(first CodeError, fct func(CodeError) string) {
	idMessage[first] = fct
}

// ParseCodeError clamps an arbitrary int64 into the CodeError range.
func ParseCodeError(i int64) CodeError {
	if i < 0 {
		return UnknownError
	} else if i >= int64(math.MaxUint16) {
		return CodeError(math.MaxUint16)
	}
	return CodeError(i)
}

func (c CodeError) Uint16() uint16 {
	return uint16(c)
}
