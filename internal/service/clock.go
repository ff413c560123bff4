package service

import "time"

type Clock interface {
	Now() time.Time
}

// SystemClock reads wall time in UTC at the precision Postgres stores.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

func nowFrom(c Clock) time.Time {
	if c == nil {
		return SystemClock{}.Now()
	}
	return c.Now()
}
