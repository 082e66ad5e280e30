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
	"time"

	liberr "github.com/pode-server/pode/errors"
)

// Names of the well-known auto-restart timer/schedule, per spec.md §4.7
// "Auto-restart" and §8's testable-property scenario.
const (
	RestartPeriodName = "__pode_restart_period__"
	RestartTimesName  = "__pode_restart_times__"
	RestartCronsName  = "__pode_restart_crons__"
)

// RestartConfig mirrors the server.restart config keys of spec.md §6: any
// combination of period/times/crons may coexist.
type RestartConfig struct {
	PeriodMinutes int
	Times         []string
	Crons         []string
}

// WireRestart installs the timer/schedule(s) RestartConfig describes onto
// r, all invoking onRestart. Any combination may coexist, per spec.md.
func WireRestart(r *Registry, cfg RestartConfig, onRestart func(ctx context.Context) error) liberr.Error {
	if cfg.PeriodMinutes > 0 {
		t := NewTimer(RestartPeriodName, time.Duration(cfg.PeriodMinutes)*time.Minute, 0, 0, onRestart)
		if err := r.AddTimer(t); err != nil {
			return err
		}
	}

	if len(cfg.Times) > 0 {
		s, err := NewWallClockSchedule(RestartTimesName, cfg.Times, onRestart)
		if err != nil {
			return err
		}
		if err := r.AddSchedule(s); err != nil {
			return err
		}
	}

	if len(cfg.Crons) > 0 {
		s, err := NewCronSetSchedule(RestartCronsName, cfg.Crons, onRestart)
		if err != nil {
			return err
		}
		if err := r.AddSchedule(s); err != nil {
			return err
		}
	}

	return nil
}
