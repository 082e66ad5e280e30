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
	"strconv"
	"strings"
	"time"

	liberr "github.com/pode-server/pode/errors"
)

// cronField is one of the five standard fields: minute, hour, day-of-month,
// month, day-of-week. A nil set means "every value matches".
type cronField map[int]struct{}

func (f cronField) matches(v int) bool {
	if f == nil {
		return true
	}
	_, ok := f[v]
	return ok
}

// Cron is a compiled five-field cron expression, plus the
// @minutely/@hourly/@daily/@weekly/@monthly/@yearly named shorthands of
// spec.md §4.7. No cron library appears in the retrieved example pack, so
// the field matcher is hand-rolled, small and table-driven.
type Cron struct {
	raw                                    string
	minute, hour, dayOfMonth, month, dow cronField
}

var namedSchedules = map[string]string{
	"@minutely": "* * * * *",
	"@hourly":   "0 * * * *",
	"@daily":    "0 0 * * *",
	"@weekly":   "0 0 * * 0",
	"@monthly":  "0 0 1 * *",
	"@yearly":   "0 0 1 1 *",
}

// ParseCron compiles a cron expression (standard five-field, or one of the
// named shorthands) into a Cron.
func ParseCron(expr string) (*Cron, liberr.Error) {
	expr = strings.TrimSpace(expr)

	if alias, ok := namedSchedules[expr]; ok {
		expr = alias
	}

	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, ErrorBadCronExpression.Error(nil)
	}

	minute, err := parseCronField(fields[0], 0, 59)
	if err != nil {
		return nil, err
	}
	hour, err := parseCronField(fields[1], 0, 23)
	if err != nil {
		return nil, err
	}
	dom, err := parseCronField(fields[2], 1, 31)
	if err != nil {
		return nil, err
	}
	month, err := parseCronField(fields[3], 1, 12)
	if err != nil {
		return nil, err
	}
	dow, err := parseCronField(fields[4], 0, 7)
	if err != nil {
		return nil, err
	}

	return &Cron{raw: expr, minute: minute, hour: hour, dayOfMonth: dom, month: month, dow: dow}, nil
}

func parseCronField(s string, min, max int) (cronField, liberr.Error) {
	if s == "*" {
		return nil, nil
	}

	out := make(cronField)

	for _, part := range strings.Split(s, ",") {
		step := 1
		rng := part
		if idx := strings.Index(part, "/"); idx >= 0 {
			rng = part[:idx]
			n, err := strconv.Atoi(part[idx+1:])
			if err != nil || n <= 0 {
				return nil, ErrorBadCronExpression.Error(nil)
			}
			step = n
		}

		lo, hi := min, max
		if rng != "*" {
			if idx := strings.Index(rng, "-"); idx >= 0 {
				a, errA := strconv.Atoi(rng[:idx])
				b, errB := strconv.Atoi(rng[idx+1:])
				if errA != nil || errB != nil || a < min || b > max || a > b {
					return nil, ErrorBadCronExpression.Error(nil)
				}
				lo, hi = a, b
			} else {
				v, err := strconv.Atoi(rng)
				if err != nil || v < min || v > max {
					return nil, ErrorBadCronExpression.Error(nil)
				}
				lo, hi = v, v
			}
		}

		for v := lo; v <= hi; v += step {
			out[v] = struct{}{}
		}
	}

	return out, nil
}

// Matches reports whether t satisfies the compiled expression. Day-of-week
// 7 is treated as Sunday, same as 0, per common cron convention.
func (c *Cron) Matches(t time.Time) bool {
	dow := int(t.Weekday())

	if !c.minute.matches(t.Minute()) {
		return false
	}
	if !c.hour.matches(t.Hour()) {
		return false
	}
	if !c.dayOfMonth.matches(t.Day()) {
		return false
	}
	if !c.month.matches(int(t.Month())) {
		return false
	}
	if c.dow != nil {
		if !c.dow.matches(dow) && !(dow == 0 && c.dow.matches(7)) {
			return false
		}
	}

	return true
}

func (c *Cron) String() string { return c.raw }
