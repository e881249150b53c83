package wheelctl

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// ShowHelp prints usage information for wheelctl.
func ShowHelp(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprint(w, `Blindtest Wheel Control
=======================

Operator tool for the blindtest wheel service.

Usage:
  wheelctl [options] COMMAND [command options] [ARG]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -timeout duration
        HTTP request timeout (default 10s)
  -json
        Print raw JSON
  -help
        Show this help message

Commands:
`)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s%s\n", name, commands[name].summary)
	}
	fmt.Fprint(w, `
Examples:
  # Morning routine: check the gate, spin and book the winner
  wheelctl status
  wheelctl spin -confirm

  # Close out today's session
  wheelctl complete 6c1f... -url https://youtu.be/dQw4w9WgXcQ -title "Never Gonna Give You Up"
`)
}
