// Package common holds helpers shared by the fleet binaries.
//
// It provides a lightweight FleetService client with timeouts and a utility to
// detect the current operator (hostname/username) for the audit trail.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
