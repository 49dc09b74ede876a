// Package logger wraps zap for the fleet binaries.
//
// A global sugared logger with a console encoder is created at init time and
// can be re-levelled from settings. Services never hold a logger directly:
// they carry it in a context.Context (ToContext/WithName/WithKV) and log
// through the package-level helpers (InfoKV, WarnKV, ...).
package logger
