// Package clock provides the injectable time source used by the dispatch
// engine.
//
// Production code takes a Clock instead of calling time.Now or
// time.NewTicker. Real returns the wall clock, Fake returns a clock that only
// moves when Advance or Set is called, so timer and retention boundaries can
// be tested to the second.
package clock
