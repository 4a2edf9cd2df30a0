// Command logcratectl is an operator CLI for creating, appending to,
// reading from, and inspecting a LogCrate directory without writing Go
// code.
package main

import (
	"fmt"
	"os"

	"github.com/logcrate/logcrate/cmd/logcratectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
