// Package main is the entry point for the recipeclip CLI.
package main

import (
	"os"

	"github.com/recipeclip/recipeclip/cmd/recipeclip/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
