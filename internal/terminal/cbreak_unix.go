//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package terminal

import (
	"os"

	"golang.org/x/sys/unix"
)

// MakeCbreak turns off line buffering and echo on f and returns a function
// that restores the previous state. Signal keys and output processing stay
// on, so Ctrl-C still raises SIGINT and "\n" still starts a new line.
func MakeCbreak(f *os.File) (func() error, error) {
	fd := int(f.Fd())
	old, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, err
	}

	mode := *old
	mode.Lflag &^= unix.ICANON | unix.ECHO
	mode.Lflag |= unix.ISIG
	mode.Cc[unix.VMIN] = 1
	mode.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &mode); err != nil {
		return nil, err
	}
	return func() error {
		return unix.IoctlSetTermios(fd, ioctlSetTermios, old)
	}, nil
}
