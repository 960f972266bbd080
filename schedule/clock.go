package schedule

import "time"

// Clock supplies the current time. The scheduler consumes it for the rolling
// default horizon, so tests can pin "now".
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
