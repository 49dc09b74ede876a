// Package activitylog implements the line-oriented sink behind the activity
// log.
//
// FileSink keeps one entry per line, oldest first, and replaces the whole
// file on every rewrite through a temporary file and a rename so readers
// never observe a half-written log.
package activitylog
