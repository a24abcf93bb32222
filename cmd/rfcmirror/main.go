// Package main provides the entry point for the rfcmirror CLI.
package main

import (
	"os"

	"rfcmirror/cmd/rfcmirror/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
