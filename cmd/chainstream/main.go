// Package main provides the entry point for the chainstream daemon.
package main

import "github.com/dmitrymomot/chainstream/cmd/chainstream/cmd"

// Version information populated by the build system.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
