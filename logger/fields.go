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

package logger

import "github.com/sirupsen/logrus"

// Fields carries structured key/value attachments for a log entry.
type Fields map[string]interface{}

// Add merges another Fields set into a copy of the receiver, the other
// set winning on key collision.
func (f Fields) Add(other Fields) Fields {
	r := make(Fields, len(f)+len(other))
	for k, v := range f {
		r[k] = v
	}
	for k, v := range other {
		r[k] = v
	}
	return r
}

// Logrus converts Fields into the logrus.Fields type expected by the
// underlying logrus.Entry.
func (f Fields) Logrus() logrus.Fields {
	r := make(logrus.Fields, len(f))
	for k, v := range f {
		r[k] = v
	}
	return r
}
