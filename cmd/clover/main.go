// Package main provides the entry point for the clover service.
package main

import "github.com/Ramsey-B/clover/cmd/clover/cmd"

// Version information set at build time.
var version = "dev"

func main() {
	cmd.Execute(version)
}
