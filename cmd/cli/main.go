// Package main is the entry point for the restaurant-rank CLI.
package main

import (
	"os"

	"restaurant-rank/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
