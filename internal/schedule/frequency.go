// Package schedule parses workflow cadence descriptors.
//
// Accepted forms:
//   - named cadences: "hourly", "daily", "weekly", "biweekly", "monthly"
//   - explicit intervals: "12h", "90m", or "@every 6h"
//   - cron expressions, 5 fields with optional seconds, and cron descriptors ("@midnight", "@weekly")
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// Frequency is a parsed workflow cadence.
type Frequency struct {
	raw      string
	interval time.Duration
	minGap   time.Duration
	sched    cron.Schedule
}

var named = map[string]struct{ interval, minGap time.Duration }{
	"hourly":      {time.Hour, 50 * time.Minute},
	"daily":       {Day, 20 * time.Hour},
	"weekly":      {Week, 6 * Day},
	"biweekly":    {2 * Week, 13 * Day},
	"fortnightly": {2 * Week, 13 * Day},
	"monthly":     {30 * Day, 27 * Day},
}

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func ParseFrequency(s string) (Frequency, error) {
	raw := strings.TrimSpace(s)
	key := strings.ToLower(raw)
	if key == "" {
		return Frequency{}, fmt.Errorf("frequency is empty")
	}
	if n, ok := named[key]; ok {
		return Frequency{raw: raw, interval: n.interval, minGap: n.minGap}, nil
	}
	if d, err := time.ParseDuration(key); err == nil {
		if d < 0 {
			return Frequency{}, fmt.Errorf("frequency %q is negative", raw)
		}
		return Frequency{raw: raw, interval: d, minGap: spacing(d)}, nil
	}
	sched, err := parser.Parse(raw)
	if err != nil {
		return Frequency{}, fmt.Errorf("parse frequency %q: %w", raw, err)
	}
	if every, ok := sched.(cron.ConstantDelaySchedule); ok {
		return Frequency{raw: raw, interval: every.Delay, minGap: spacing(every.Delay)}, nil
	}
	// robfig reports a schedule with no activation in the next five years as the zero time.
	if sched.Next(time.Now()).IsZero() {
		return Frequency{}, fmt.Errorf("frequency %q never fires", raw)
	}
	return Frequency{raw: raw, sched: sched}, nil
}

// spacing is the minimum gap between two posts of a cadence: five sixths of its period.
func spacing(period time.Duration) time.Duration {
	return period * 5 / 6
}

func (f Frequency) String() string { return f.raw }

// Next is the pure cadence-based successor of now. A zero-length interval yields now.
func (f Frequency) Next(now time.Time) time.Time {
	if f.sched != nil {
		return f.sched.Next(now)
	}
	return now.Add(f.interval)
}

// Floor is the earliest instant the next post may be scheduled at, given a post at now.
func (f Frequency) Floor(now time.Time) time.Time {
	if f.sched != nil {
		first := f.sched.Next(now)
		second := f.sched.Next(first)
		return now.Add(spacing(second.Sub(first)))
	}
	return now.Add(f.minGap)
}
