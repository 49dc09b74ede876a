// Package client implements the fleet-ctl operations on top of the shared
// FleetService client.
//
// A Session connects to the server, performs one operation and prints a
// human-readable result. Status changes are sent once; only an admin update
// whose fleet file save failed is sent again.
package client
