package clock

import "time"

// Clock abstracts the time operations used by the engine.
type Clock interface {
	// Now returns the current instant.
	Now() time.Time
	// NewTicker returns a ticker delivering ticks every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers periodic ticks on C. The channel has capacity 1, so ticks
// are dropped rather than queued when the consumer falls behind.
type Ticker struct {
	// C delivers ticks.
	C <-chan time.Time

	stop func()
}

// Stop turns off the ticker. It does not close C.
func (t *Ticker) Stop() { t.stop() }

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

// realClock delegates to the standard library.
type realClock struct{}

// Now returns time.Now().
func (realClock) Now() time.Time {
	return time.Now()
}

// NewTicker wraps time.NewTicker.
func (realClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)

	return &Ticker{
		C:    ticker.C,
		stop: ticker.Stop,
	}
}
