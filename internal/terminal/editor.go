package terminal

import (
	"context"
	"errors"
	"io"

	"github.com/omochice/duplex-chat/internal/chat"
)

// Control keys. Ctrl-C only arrives as a key when the terminal does not
// turn it into SIGINT, e.g. on piped input.
const (
	keyInterrupt = 3   // Ctrl-C
	keyEOF       = 4   // Ctrl-D
	keyBackspace = 8   // Ctrl-H
	keyDelete    = 127 // Backspace on most terminals
)

// Renderer draws the line being edited.
type Renderer interface {
	RenderLocalEcho(line string)
	// CommitLine is called once a line has been submitted.
	CommitLine(line string)
}

// LineEditor implements chat.Input on top of a KeyPump. Every keystroke
// edits the shared echo buffer and redraws it.
type LineEditor struct {
	keys *KeyPump
	echo *chat.EchoBuffer
	out  Renderer
}

// NewLineEditor returns an editor that stores the line in echo. The echo
// buffer's limit caps the line length.
func NewLineEditor(keys *KeyPump, echo *chat.EchoBuffer, out Renderer) *LineEditor {
	return &LineEditor{keys: keys, echo: echo, out: out}
}

// ReadLine implements chat.Input.
func (e *LineEditor) ReadLine(ctx context.Context) (string, error) {
	for {
		b, err := e.keys.NextKey(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) && e.echo.Len() > 0 {
				return e.submit(), nil
			}
			return "", err
		}

		switch {
		case b == keyInterrupt:
			e.echo.Take()
			return "", chat.ErrInterrupted
		case b == keyEOF:
			if e.echo.Len() == 0 {
				return "", io.EOF
			}
		case b == '\r' || b == '\n':
			return e.submit(), nil
		case b == keyDelete || b == keyBackspace:
			if e.echo.Backspace() {
				e.out.RenderLocalEcho(e.echo.Snapshot())
			}
		case b >= ' ' && b != keyDelete:
			// Bytes of multi-byte UTF-8 runes are stored as they arrive.
			if e.echo.Append(b) {
				e.out.RenderLocalEcho(e.echo.Snapshot())
			}
		}
	}
}

func (e *LineEditor) submit() string {
	line := e.echo.Take()
	e.out.CommitLine(line)
	return line
}
