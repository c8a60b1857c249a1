// Package chat provides the duplex session engine shared by the
// point-to-point and group programs.
//
// A Session drives one receiving and one sending goroutine over a single Conn
// until the peer leaves, the transport fails, or the local user stops.
package chat

import "context"

// Conn abstracts a framed connection for stream and datagram transports.
// This interface isolates transport details from chat logic.
type Conn interface {
	// Read blocks until one complete frame is available. Cancelling ctx
	// aborts a blocked read.
	Read(ctx context.Context) ([]byte, error)

	// Write sends one complete frame.
	Write(ctx context.Context, frame []byte) error

	// Close releases the transport.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}

// Sink renders the conversation. Calls come from both session goroutines and
// must return promptly.
type Sink interface {
	// RenderIncoming shows a line received from name.
	RenderIncoming(name, text string)
	// RenderDeparture shows that name has left.
	RenderDeparture(name string)
	// RenderLocalEcho redraws the line the local user is typing.
	RenderLocalEcho(line string)
	// Prompt shows an empty input prompt.
	Prompt()
	// Notice shows a session status line.
	Notice(text string)
}

// Input is the local line source. ReadLine returns ErrInterrupted when the
// user asks to stop, io.EOF at end of input, and ctx.Err() when ctx is
// cancelled while waiting.
type Input interface {
	ReadLine(ctx context.Context) (string, error)
}
