// Package clock is the time source of the polling loop. Tests swap SystemClock
// for a fake that fires on demand.
package clock

import "time"

// Clock is what a poller needs from time
type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

var _ Clock = SystemClock{}

// After returns a channel that sends the current time after d
func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Now returns the current time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Since is time.Since measured on c
func Since(c Clock, start time.Time) time.Duration {
	return c.Now().Sub(start)
}
