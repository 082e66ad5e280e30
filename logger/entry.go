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

// Entry is one in-flight log record, built incrementally then flushed with
// Log(). It mirrors the teacher's message/data/fields/error accumulation
// idiom instead of logging directly on every call.
type Entry struct {
	lvl    Level
	msg    string
	err    error
	fields Fields
	log    *Logger
}

func (e *Entry) WithField(key string, val interface{}) *Entry {
	if e.fields == nil {
		e.fields = make(Fields, 1)
	}
	e.fields[key] = val
	return e
}

func (e *Entry) WithFields(f Fields) *Entry {
	e.fields = e.fields.Add(f)
	return e
}

func (e *Entry) WithError(err error) *Entry {
	e.err = err
	return e
}

// Log flushes the entry to the underlying logrus logger at its level.
func (e *Entry) Log() {
	if e.log == nil || e.log.lg == nil {
		return
	}

	f := e.fields
	if e.err != nil {
		f = f.Add(Fields{"error": e.err.Error()})
	}

	ent := e.log.lg.WithFields(f.Logrus())

	switch e.lvl {
	case DebugLevel:
		ent.Debug(e.msg)
	case InfoLevel:
		ent.Info(e.msg)
	case WarnLevel:
		ent.Warn(e.msg)
	case ErrorLevel:
		ent.Error(e.msg)
	case FatalLevel:
		ent.Error(e.msg)
	}
}
