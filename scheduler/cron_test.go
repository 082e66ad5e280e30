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

package scheduler_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pode-server/pode/scheduler"
)

var _ = DescribeTable("Cron.Matches",
	func(expr string, at time.Time, want bool) {
		c, err := scheduler.ParseCron(expr)
		Expect(err).To(BeNil())
		Expect(c.Matches(at)).To(Equal(want))
	},
	Entry("every minute matches anything", "* * * * *", time.Date(2026, 7, 31, 14, 7, 0, 0, time.UTC), true),
	Entry("exact minute/hour match", "30 14 * * *", time.Date(2026, 7, 31, 14, 30, 0, 0, time.UTC), true),
	Entry("exact minute/hour mismatch", "30 14 * * *", time.Date(2026, 7, 31, 14, 31, 0, 0, time.UTC), false),
	Entry("step expression every 15 minutes", "*/15 * * * *", time.Date(2026, 7, 31, 14, 45, 0, 0, time.UTC), true),
	Entry("step expression off-step", "*/15 * * * *", time.Date(2026, 7, 31, 14, 46, 0, 0, time.UTC), false),
	Entry("range expression", "0 9-17 * * *", time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC), true),
	Entry("range expression outside", "0 9-17 * * *", time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC), false),
	Entry("day-of-week Sunday as 0", "0 0 * * 0", time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC), true),
	Entry("day-of-week Sunday as 7", "0 0 * * 7", time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC), true),
	Entry("@daily alias fires at midnight", "@daily", time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), true),
	Entry("@daily alias does not fire at noon", "@daily", time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC), false),
	Entry("@hourly alias fires on the hour", "@hourly", time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC), true),
)

var _ = Describe("ParseCron", func() {
	It("rejects an expression with the wrong field count", func() {
		_, err := scheduler.ParseCron("* * *")
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(scheduler.ErrorBadCronExpression)).To(BeTrue())
	})

	It("rejects an out-of-range value", func() {
		_, err := scheduler.ParseCron("99 * * * *")
		Expect(err).ToNot(BeNil())
	})
})

var _ = Describe("ParseWallClock", func() {
	It("matches an exact HH:MM", func() {
		wc, err := scheduler.ParseWallClock([]string{"09:30", "21:00"})
		Expect(err).To(BeNil())

		Expect(wc.Matches(time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC))).To(BeTrue())
		Expect(wc.Matches(time.Date(2026, 7, 31, 9, 31, 0, 0, time.UTC))).To(BeFalse())
		Expect(wc.Matches(time.Date(2026, 7, 31, 21, 0, 0, 0, time.UTC))).To(BeTrue())
	})

	It("rejects a malformed entry", func() {
		_, err := scheduler.ParseWallClock([]string{"9:30am"})
		Expect(err).ToNot(BeNil())
	})
})
