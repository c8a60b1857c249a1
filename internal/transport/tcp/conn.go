// Package tcp connects Stream Variant sessions over plain TCP.
package tcp

import (
	"context"
	"fmt"
	"net"

	"github.com/omochice/duplex-chat/internal/framing"
)

// Dial connects to addr.
func Dial(ctx context.Context, addr string, opts ...framing.Option) (*framing.Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return NewConn(conn, opts...), nil
}

// NewConn wraps an established connection, such as one returned by Accept.
// conn may carry bytes already buffered during protocol detection.
func NewConn(conn net.Conn, opts ...framing.Option) *framing.Stream {
	opts = append([]framing.Option{framing.WithRemoteAddr(conn.RemoteAddr().String())}, opts...)
	return framing.NewStream(conn, opts...)
}
