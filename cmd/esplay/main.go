// Package main is the entry point for esplay.
package main

import (
	"fmt"
	"os"

	"github.com/dshills/esplay/internal/cli"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cli.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
