// Package dispatch is the fleet status and dispatch coordination engine.
//
// A Coordinator owns the status registry, the timers of units in timed
// states, the fallback rules and the activity log. Every mutation runs under
// one lock so a dispatch sets the unit out and resolves its fallback without
// any other change in between. Reads work on copies.
//
// A status change and its activity log write are two separate steps: when the
// write fails the caller gets an error wrapping fleet.ErrLogWrite, but the
// new status stays in place.
package dispatch
