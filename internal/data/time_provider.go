package data

import "time"

// TimeProvider supplies the clock for report timestamps so tests can pin
// creation times.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider reads the system clock.
type RealTimeProvider struct{}

func (r *RealTimeProvider) Now() time.Time {
	return time.Now()
}

// FixedTimeProvider returns a constant time, for tests.
type FixedTimeProvider struct {
	fixedTime time.Time
}

func NewFixedTimeProvider(t time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{fixedTime: t}
}

func (f *FixedTimeProvider) Now() time.Time {
	return f.fixedTime
}
