package framing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/omochice/duplex-chat/pkg/protocol"
)

// MaxDatagram is the receive buffer capacity of a Datagram.
const MaxDatagram = protocol.MaxDatagramFrame

// ErrFrameTooLarge is returned when a frame does not fit in MaxDatagram.
var ErrFrameTooLarge = errors.New("frame exceeds datagram capacity")

// CheckDatagram reports whether frame may be sent as one datagram.
func CheckDatagram(frame []byte) error {
	if len(frame) > MaxDatagram {
		return fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, len(frame), MaxDatagram)
	}
	return nil
}

// DatagramOption configures a Datagram.
type DatagramOption func(*Datagram)

// OnClose registers fn to run before the packet socket is closed, e.g. to
// leave a multicast group.
func OnClose(fn func() error) DatagramOption {
	return func(d *Datagram) {
		d.beforeClose = fn
	}
}

// Datagram sends every frame to a fixed group address and returns one
// received packet per Read.
type Datagram struct {
	pc    net.PacketConn
	group net.Addr
	buf   []byte

	beforeClose func() error
	closeOnce   sync.Once
	closeErr    error
}

// NewDatagram wraps pc. Frames are written to group.
func NewDatagram(pc net.PacketConn, group net.Addr, opts ...DatagramOption) *Datagram {
	d := &Datagram{
		pc:    pc,
		group: group,
		buf:   make([]byte, MaxDatagram),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Read returns the next datagram. It must not be called concurrently with
// itself.
func (d *Datagram) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.pc.SetReadDeadline(time.Time{}); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = d.pc.SetReadDeadline(aLongTimeAgo)
	})
	defer stop()

	n, _, err := d.pc.ReadFrom(d.buf)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("read datagram: %w", err)
	}
	frame := make([]byte, n)
	copy(frame, d.buf[:n])
	return frame, nil
}

// Write sends frame as a single datagram.
func (d *Datagram) Write(ctx context.Context, frame []byte) error {
	if err := CheckDatagram(frame); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline, _ := ctx.Deadline()
	if err := d.pc.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	n, err := d.pc.WriteTo(frame, d.group)
	if err != nil {
		return fmt.Errorf("write datagram: %w", err)
	}
	if n != len(frame) {
		return io.ErrShortWrite
	}
	return nil
}

// Close runs the OnClose hook and closes the socket. Only the first call has
// an effect.
func (d *Datagram) Close() error {
	d.closeOnce.Do(func() {
		var hookErr error
		if d.beforeClose != nil {
			hookErr = d.beforeClose()
		}
		d.closeErr = errors.Join(hookErr, d.pc.Close())
	})
	return d.closeErr
}

// RemoteAddr returns the group address.
func (d *Datagram) RemoteAddr() string {
	if d.group == nil {
		return ""
	}
	return d.group.String()
}
