// Package display renders a chat session on a terminal.
package display

import (
	"fmt"
	"io"
	"sync"
)

const (
	clearToEOL = "\033[K"
	localLabel = "You"
)

// Terminal implements chat.Sink and terminal.Renderer. In ANSI mode the
// input line is redrawn in place below incoming messages. Plain mode is for
// output that is not a terminal and prints only the conversation.
//
// Writes are serialized; both session goroutines call into it.
type Terminal struct {
	mu   sync.Mutex
	w    io.Writer
	ansi bool
}

// New returns a Terminal writing to w.
func New(w io.Writer, ansi bool) *Terminal {
	return &Terminal{w: w, ansi: ansi}
}

func (t *Terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, format, args...)
}

func (t *Terminal) RenderIncoming(name, text string) {
	if t.ansi {
		t.printf("\r%s> %s%s\r\n", name, text, clearToEOL)
		return
	}
	t.printf("%s> %s\n", name, text)
}

func (t *Terminal) RenderDeparture(name string) {
	if t.ansi {
		t.printf("\r%s> Bye%s\r\n\r\n    %s left the chat\r\n", name, clearToEOL, name)
		return
	}
	t.printf("%s> Bye\n    %s left the chat\n", name, name)
}

func (t *Terminal) RenderLocalEcho(line string) {
	if t.ansi {
		t.printf("\r%s%s> %s", clearToEOL, localLabel, line)
	}
}

func (t *Terminal) Prompt() {
	t.RenderLocalEcho("")
}

// CommitLine moves past a submitted line.
func (t *Terminal) CommitLine(line string) {
	if t.ansi {
		t.printf("\r\n")
		return
	}
	t.printf("%s> %s\n", localLabel, line)
}

func (t *Terminal) Notice(text string) {
	if t.ansi {
		t.printf("\r%s %s\r\n", clearToEOL, text)
		return
	}
	t.printf(" %s\n", text)
}
