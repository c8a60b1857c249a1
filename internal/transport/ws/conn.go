// Package ws carries Stream Variant sessions over WebSocket. Each frame
// travels as one binary message; the connection is exposed as a byte stream
// so the same framing.Stream runs on top of it.
package ws

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/duplex-chat/internal/framing"
)

const closeTimeout = time.Second

// Dial performs the WebSocket handshake with url.
func Dial(ctx context.Context, url string, opts ...framing.Option) (*framing.Stream, error) {
	conn, br, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	// The peer may have sent frames together with the handshake response.
	return newStream(conn, bufferedReader(conn, br), ws.StateClientSide, opts), nil
}

// Upgrade performs the server side of the handshake on conn, which may
// carry bytes already buffered during protocol detection.
func Upgrade(conn net.Conn, opts ...framing.Option) (*framing.Stream, error) {
	if _, err := ws.Upgrade(conn); err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}
	return NewServerConn(conn, opts...), nil
}

// NewServerConn wraps a connection that has completed the server side of
// the handshake.
func NewServerConn(conn net.Conn, opts ...framing.Option) *framing.Stream {
	return newStream(conn, conn, ws.StateServerSide, opts)
}

func newStream(conn net.Conn, r io.Reader, state ws.State, opts []framing.Option) *framing.Stream {
	opts = append([]framing.Option{framing.WithRemoteAddr(conn.RemoteAddr().String())}, opts...)
	return framing.NewStream(&byteStream{conn: conn, r: r, state: state}, opts...)
}

// byteStream adapts message-oriented WebSocket I/O to framing.StreamTransport.
// A message larger than the caller's buffer is handed out over several
// reads.
type byteStream struct {
	conn    net.Conn
	r       io.Reader
	state   ws.State
	pending []byte
}

type readWriter struct {
	io.Reader
	io.Writer
}

func (b *byteStream) Read(p []byte) (int, error) {
	for len(b.pending) == 0 {
		data, op, err := wsutil.ReadData(readWriter{b.r, b.conn}, b.state)
		if err != nil {
			var closed wsutil.ClosedError
			if errors.As(err, &closed) {
				return 0, io.EOF
			}
			return 0, err
		}
		if op != ws.OpBinary {
			continue
		}
		b.pending = data
	}
	n := copy(p, b.pending)
	b.pending = b.pending[n:]
	return n, nil
}

func (b *byteStream) Write(p []byte) (int, error) {
	if err := wsutil.WriteMessage(b.conn, b.state, ws.OpBinary, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a close frame on a best-effort basis and closes the socket.
func (b *byteStream) Close() error {
	_ = b.conn.SetWriteDeadline(time.Now().Add(closeTimeout))
	body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
	_ = wsutil.WriteMessage(b.conn, b.state, ws.OpClose, body)
	return b.conn.Close()
}

func (b *byteStream) SetReadDeadline(t time.Time) error {
	return b.conn.SetReadDeadline(t)
}

func (b *byteStream) SetWriteDeadline(t time.Time) error {
	return b.conn.SetWriteDeadline(t)
}

var _ framing.StreamTransport = (*byteStream)(nil)

// bufferedReader returns br when the handshake left bytes buffered in it.
// br reads through to conn once drained.
func bufferedReader(conn net.Conn, br *bufio.Reader) io.Reader {
	if br == nil {
		return conn
	}
	return br
}
