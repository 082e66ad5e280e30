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

// Package logger wraps github.com/sirupsen/logrus with the level/fields/
// entry vocabulary used across Pode: components hold a *Logger and build
// entries with WithField/WithError before flushing with Log().
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// FuncLog returns a Logger instance; used for deferred/injected logger
// construction the way components are wired during server setup.
type FuncLog func() *Logger

type Logger struct {
	lg   *logrus.Logger
	name string
}

// New builds a Logger named component, writing to w (os.Stdout if nil) at
// the given minimal level, formatted as JSON when asJSON is true.
func New(component string, w io.Writer, lvl Level, asJSON bool) *Logger {
	if w == nil {
		w = os.Stdout
	}

	lg := logrus.New()
	lg.SetOutput(w)
	lg.SetLevel(lvl.logrus())

	if asJSON {
		lg.SetFormatter(&logrus.JSONFormatter{})
	} else {
		lg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Logger{lg: lg, name: component}
}

// AddFileHook attaches an additional output destination (e.g. a rotated
// log file) without replacing the primary writer.
func (l *Logger) AddFileHook(w io.Writer, lvl Level) {
	if l == nil || l.lg == nil || w == nil {
		return
	}
	l.lg.AddHook(&writerHook{writer: w, levels: logrus.AllLevels[:lvl.logrus()+1]})
}

func (l *Logger) SetLevel(lvl Level) {
	if l != nil && l.lg != nil {
		l.lg.SetLevel(lvl.logrus())
	}
}

func (l *Logger) newEntry(lvl Level, msg string) *Entry {
	return &Entry{lvl: lvl, msg: msg, log: l, fields: Fields{"component": l.name}}
}

func (l *Logger) Debug(msg string) *Entry { return l.newEntry(DebugLevel, msg) }
func (l *Logger) Info(msg string) *Entry  { return l.newEntry(InfoLevel, msg) }
func (l *Logger) Warn(msg string) *Entry  { return l.newEntry(WarnLevel, msg) }
func (l *Logger) Error(msg string) *Entry { return l.newEntry(ErrorLevel, msg) }
func (l *Logger) Fatal(msg string) *Entry { return l.newEntry(FatalLevel, msg) }

type writerHook struct {
	writer io.Writer
	levels []logrus.Level
}

func (h *writerHook) Levels() []logrus.Level { return h.levels }

func (h *writerHook) Fire(e *logrus.Entry) error {
	line, err := e.Bytes()
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}
