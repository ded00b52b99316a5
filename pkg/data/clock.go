package data

import "github.com/jonboulle/clockwork"

// clock stamps imported_at on saved datasets.
var clock clockwork.Clock = clockwork.NewRealClock()

// SetClock replaces the package clock, usually with a fake in tests.
// Passing nil restores the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
