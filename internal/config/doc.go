// Package config defines the settings used by the fleet binaries and provides
// helpers to load, validate and save them in YAML format.
//
// Values from the settings file can be overridden by FLEET_* environment
// variables, optionally loaded from a .env file.
package config
