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

package scheduler

import (
	"context"
	"strconv"
	"strings"
	"time"

	liberr "github.com/pode-server/pode/errors"
)

// WallClock is an HH:MM time-of-day list, the second schedule kind of
// spec.md §4.7.
type WallClock struct {
	times []struct{ hour, minute int }
}

// ParseWallClock compiles a list of "HH:MM" strings.
func ParseWallClock(entries []string) (*WallClock, liberr.Error) {
	wc := &WallClock{}

	for _, e := range entries {
		parts := strings.SplitN(strings.TrimSpace(e), ":", 2)
		if len(parts) != 2 {
			return nil, ErrorBadCronExpression.Error(nil)
		}

		h, errH := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		if errH != nil || errM != nil || h < 0 || h > 23 || m < 0 || m > 59 {
			return nil, ErrorBadCronExpression.Error(nil)
		}

		wc.times = append(wc.times, struct{ hour, minute int }{h, m})
	}

	return wc, nil
}

// Matches reports whether t's hour:minute is in the configured list.
func (wc *WallClock) Matches(t time.Time) bool {
	for _, e := range wc.times {
		if t.Hour() == e.hour && t.Minute() == e.minute {
			return true
		}
	}
	return false
}

// Schedule pairs a compiled matcher (Cron or WallClock) with a name and
// job, polled once a second by the Registry's schedule loop.
type Schedule struct {
	Name    string
	matcher interface{ Matches(time.Time) bool }
	fn      TimerFunc
	lastRun time.Time
}

// NewCronSchedule builds a Schedule backed by a Cron expression.
func NewCronSchedule(name, expr string, fn TimerFunc) (*Schedule, liberr.Error) {
	c, err := ParseCron(expr)
	if err != nil {
		return nil, err
	}
	return &Schedule{Name: name, matcher: c, fn: fn}, nil
}

// cronSet matches if any of its member Cron expressions matches, used to
// back a single named schedule driven by an array of cron strings
// (spec.md §4.7 "crons" restart key).
type cronSet []*Cron

func (cs cronSet) Matches(t time.Time) bool {
	for _, c := range cs {
		if c.Matches(t) {
			return true
		}
	}
	return false
}

// NewCronSetSchedule builds a Schedule that fires if any of exprs matches.
func NewCronSetSchedule(name string, exprs []string, fn TimerFunc) (*Schedule, liberr.Error) {
	set := make(cronSet, 0, len(exprs))
	for _, expr := range exprs {
		c, err := ParseCron(expr)
		if err != nil {
			return nil, err
		}
		set = append(set, c)
	}
	return &Schedule{Name: name, matcher: set, fn: fn}, nil
}

// NewWallClockSchedule builds a Schedule backed by an HH:MM time list.
func NewWallClockSchedule(name string, times []string, fn TimerFunc) (*Schedule, liberr.Error) {
	wc, err := ParseWallClock(times)
	if err != nil {
		return nil, err
	}
	return &Schedule{Name: name, matcher: wc, fn: fn}, nil
}

// Tick evaluates the schedule against now, firing at most once per minute.
func (s *Schedule) Tick(ctx context.Context, now time.Time) {
	truncated := now.Truncate(time.Minute)
	if truncated.Equal(s.lastRun) {
		return
	}

	if s.matcher.Matches(now) {
		s.lastRun = truncated
		if s.fn != nil {
			_ = s.fn(ctx)
		}
	}
}
