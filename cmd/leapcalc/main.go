// Package main provides the leapcalc command-line entry point.
package main

import (
	"os"

	"github.com/leapstack-labs/leapcalc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
