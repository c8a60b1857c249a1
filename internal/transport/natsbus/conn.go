// Package natsbus carries Datagram Variant frames as NATS core messages on
// one subject. Core NATS delivery is at-most-once, like multicast.
package natsbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/omochice/duplex-chat/internal/framing"
)

const flushTimeout = time.Second

// Conn implements chat.Conn over a NATS subscription.
type Conn struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string

	closeOnce sync.Once
	closeErr  error
}

// Join connects to url and subscribes to subject. The connection never
// receives its own publications.
func Join(url, subject string, opts ...nats.Option) (*Conn, error) {
	opts = append([]nats.Option{nats.NoEcho(), nats.Name("groupchat")}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	sub, err := nc.SubscribeSync(subject)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	if err := nc.FlushTimeout(flushTimeout); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return &Conn{nc: nc, sub: sub, subject: subject}, nil
}

// Read implements chat.Conn.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	msg, err := c.sub.NextMsgWithContext(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
			return nil, fmt.Errorf("%w: %w", framing.ErrConnectionClosed, err)
		}
		return nil, err
	}
	return msg.Data, nil
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, frame []byte) error {
	if err := framing.CheckDatagram(frame); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.nc.Publish(c.subject, frame)
}

// Close flushes pending publications, so a final BYE is not lost, and
// disconnects.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = errors.Join(c.nc.FlushTimeout(flushTimeout), c.sub.Unsubscribe())
		c.nc.Close()
	})
	return c.closeErr
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.nc.ConnectedUrlRedacted() + "/" + c.subject
}
