// Package framing turns byte streams and packet sockets into frame-at-a-time
// connections.
//
// Stream performs the length-prefix accumulation loops needed over an ordered
// byte stream. Datagram is a pass-through where one receive yields one frame.
// Both implement chat.Conn and abort blocked I/O when the caller's context is
// cancelled.
package framing

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/omochice/duplex-chat/pkg/protocol"
)

var (
	// ErrConnectionClosed is returned when the peer closes the stream before
	// or inside a frame.
	ErrConnectionClosed = errors.New("connection closed by peer")
	// ErrIdleTimeout is returned when no frame arrives within the idle
	// timeout.
	ErrIdleTimeout = errors.New("idle read timeout")
	// ErrMalformedFrame is returned for frames whose length prefix cannot
	// describe a packet.
	ErrMalformedFrame = errors.New("malformed frame")
)

// aLongTimeAgo is a deadline in the past, used to abort blocked calls.
var aLongTimeAgo = time.Unix(1, 0)

// StreamTransport is an ordered byte stream with deadline support, such as
// a net.Conn.
type StreamTransport interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Option configures a Stream.
type Option func(*Stream)

// WithIdleTimeout fails a read with ErrIdleTimeout when no complete frame
// arrives within d. Zero disables the timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Stream) {
		s.idle = d
	}
}

// WithRemoteAddr sets the address reported by RemoteAddr.
func WithRemoteAddr(addr string) Option {
	return func(s *Stream) {
		s.remote = addr
	}
}

// Stream reads and writes length-prefixed frames on a StreamTransport.
// One goroutine may read while another writes.
type Stream struct {
	t      StreamTransport
	idle   time.Duration
	remote string

	closeOnce sync.Once
	closeErr  error
}

// NewStream wraps t.
func NewStream(t StreamTransport, opts ...Option) *Stream {
	s := &Stream{t: t}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the next complete frame, length prefix included.
func (s *Stream) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var deadline time.Time
	if s.idle > 0 {
		deadline = time.Now().Add(s.idle)
	}
	if err := s.t.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = s.t.SetReadDeadline(aLongTimeAgo)
	})
	defer stop()

	header := make([]byte, protocol.LengthFieldSize)
	if err := s.fill(header); err != nil {
		return nil, s.readError(ctx, err)
	}
	length := int(binary.BigEndian.Uint16(header))
	if length < protocol.OpcodeFieldSize {
		return nil, fmt.Errorf("%w: zero length prefix", ErrMalformedFrame)
	}

	frame := make([]byte, protocol.LengthFieldSize+length)
	copy(frame, header)
	if err := s.fill(frame[protocol.LengthFieldSize:]); err != nil {
		return nil, s.readError(ctx, err)
	}
	return frame, nil
}

// fill accumulates partial reads until p is full. A zero-byte read or EOF
// before that means the peer went away.
func (s *Stream) fill(p []byte) error {
	for off := 0; off < len(p); {
		n, err := s.t.Read(p[off:])
		off += n
		if off == len(p) {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrConnectionClosed
			}
			return err
		}
		if n == 0 {
			return ErrConnectionClosed
		}
	}
	return nil
}

func (s *Stream) readError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, ErrConnectionClosed) {
		return err
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: nothing received for %s", ErrIdleTimeout, s.idle)
	}
	return fmt.Errorf("read frame: %w", err)
}

// Write sends one complete frame, looping over partial writes.
func (s *Stream) Write(ctx context.Context, frame []byte) error {
	if len(frame) < protocol.LengthFieldSize+protocol.OpcodeFieldSize ||
		int(binary.BigEndian.Uint16(frame)) != len(frame)-protocol.LengthFieldSize {
		return fmt.Errorf("%w: length prefix does not match %d byte frame", ErrMalformedFrame, len(frame))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline, _ := ctx.Deadline()
	if err := s.t.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = s.t.SetWriteDeadline(aLongTimeAgo)
	})
	defer stop()

	for off := 0; off < len(frame); {
		n, err := s.t.Write(frame[off:])
		off += n
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("write frame: %w", err)
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}

// Close closes the underlying transport. Only the first call has an effect.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.t.Close()
	})
	return s.closeErr
}

// RemoteAddr returns the peer address for logging.
func (s *Stream) RemoteAddr() string {
	return s.remote
}
