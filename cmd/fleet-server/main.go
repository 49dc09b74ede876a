package main

import "github.com/oshokin/fleet-status/cmd/fleet-server/cmd"

func main() {
	cmd.Execute()
}
