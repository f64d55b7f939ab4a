package clock

import "time"

// Clock abstracts the host timer facilities so time-driven logic can be
// exercised in tests without sleeping.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a single armed callback. Stop reports whether the callback was
// prevented from running.
type Timer interface {
	Stop() bool
}

type realClock struct{}

// New returns a Clock backed by the standard library.
func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
