//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package terminal

import (
	"os"

	"golang.org/x/term"
)

// MakeCbreak falls back to raw mode. Ctrl-C then arrives as a key and only
// the line editor sees it.
func MakeCbreak(f *os.File) (func() error, error) {
	fd := int(f.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() error {
		return term.Restore(fd, oldState)
	}, nil
}
