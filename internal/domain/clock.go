package domain

import "github.com/jonboulle/clockwork"

// clock stamps ProcessedAt. Tests freeze it through SetClock.
var clock = clockwork.NewRealClock()

// SetClock replaces the package time source. Pass nil to restore the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}

// Clock returns the package time source.
func Clock() clockwork.Clock {
	return clock
}
