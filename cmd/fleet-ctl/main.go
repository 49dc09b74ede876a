package main

import "github.com/oshokin/fleet-status/cmd/fleet-ctl/cmd"

func main() {
	cmd.Execute()
}
