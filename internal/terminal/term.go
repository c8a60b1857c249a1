// Package terminal reads the local user's keystrokes. It puts the terminal
// into cbreak mode so single keys arrive without waiting for a newline, pumps
// them off stdin on a goroutine, and assembles them into lines.
package terminal

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether f is connected to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
