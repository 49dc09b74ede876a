// Package fleet contains the core domain types of the dispatch engine.
//
// It defines units and their closed set of statuses, fallback rules, the
// fleet configuration document, activity log entries, snapshots handed to
// transports, and the error kinds callers must tell apart.
package fleet
