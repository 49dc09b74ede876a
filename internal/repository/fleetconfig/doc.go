// Package fleetconfig persists the fleet document (trucks and fallback
// rules).
//
// FileProvider reads and writes it on disk as JSON, compatible with the
// legacy truck_config.json, or as YAML when the file extension says so.
package fleetconfig
