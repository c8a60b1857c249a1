package chat

import (
	"sync"
	"unicode/utf8"
)

// EchoBuffer holds the line the local user is typing. The line editor
// mutates it and the receiver reads it to redraw the input line after an
// incoming message. Every access takes the same lock for the duration of a
// copy.
type EchoBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

// NewEchoBuffer creates a buffer that holds at most limit bytes. A limit of
// zero or less means unbounded.
func NewEchoBuffer(limit int) *EchoBuffer {
	return &EchoBuffer{limit: limit}
}

// Append adds b to the line. It reports false when the line is full.
func (e *EchoBuffer) Append(b byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.limit > 0 && len(e.buf) >= e.limit {
		return false
	}
	e.buf = append(e.buf, b)
	return true
}

// Backspace removes the last rune, or the last byte when the line does not
// end in valid UTF-8. It reports false when the line is empty.
func (e *EchoBuffer) Backspace() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.buf) == 0 {
		return false
	}
	_, size := utf8.DecodeLastRune(e.buf)
	e.buf = e.buf[:len(e.buf)-size]
	return true
}

// Snapshot returns a copy of the current line.
func (e *EchoBuffer) Snapshot() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return string(e.buf)
}

// Take returns the current line and clears the buffer.
func (e *EchoBuffer) Take() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	line := string(e.buf)
	e.buf = e.buf[:0]
	return line
}

// Len returns the length of the current line.
func (e *EchoBuffer) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buf)
}

// Limit returns the maximum line length, or zero when unbounded.
func (e *EchoBuffer) Limit() int {
	return e.limit
}
