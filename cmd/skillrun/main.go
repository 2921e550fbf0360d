// Package main is the entry point for the skillrun CLI.
package main

import (
	"os"

	"github.com/skillrun/skillrun/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
