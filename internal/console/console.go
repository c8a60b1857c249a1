// Package console connects chat sessions to the process's terminal.
package console

import (
	"context"
	"os"

	"github.com/go-logr/logr"

	"github.com/omochice/duplex-chat/internal/chat"
	"github.com/omochice/duplex-chat/internal/display"
	"github.com/omochice/duplex-chat/internal/terminal"
	"github.com/omochice/duplex-chat/pkg/protocol"
)

// Console owns the terminal for the lifetime of the process. Sessions run
// one after another and share its key pump.
type Console struct {
	Display *display.Terminal

	keys    *terminal.KeyPump
	restore func() error
	log     logr.Logger
}

// Open puts in into cbreak mode when it is a terminal and starts reading
// keys. Output uses ANSI line editing when out is a terminal.
func Open(in, out *os.File, log logr.Logger) (*Console, error) {
	c := &Console{log: log}
	if terminal.IsTerminal(in) {
		restore, err := terminal.MakeCbreak(in)
		if err != nil {
			return nil, err
		}
		c.restore = restore
	}
	c.Display = display.New(out, terminal.IsTerminal(out))
	c.keys = terminal.NewKeyPump(in)
	return c, nil
}

// Close restores the terminal.
func (c *Console) Close() error {
	if c.restore == nil {
		return nil
	}
	return c.restore()
}

// Session describes one conversation to run.
type Session struct {
	Variant      protocol.Variant
	LocalName    string
	SuppressSelf bool
}

// Run drives a session over conn until it ends and reports why it ended.
// conn is closed in every case.
func (c *Console) Run(ctx context.Context, conn chat.Conn, cfg Session) (chat.EndReason, error) {
	echo := chat.NewEchoBuffer(protocol.TextCapacity(cfg.Variant, cfg.LocalName))
	s, err := chat.NewSession(chat.Config{
		Variant:      cfg.Variant,
		LocalName:    cfg.LocalName,
		Conn:         conn,
		Input:        terminal.NewLineEditor(c.keys, echo, c.Display),
		Sink:         c.Display,
		Echo:         echo,
		Logger:       c.log,
		SuppressSelf: cfg.SuppressSelf,
	})
	if err != nil {
		conn.Close()
		return chat.ReasonNone, err
	}
	err = s.Run(ctx)
	return s.Reason(), err
}
