// Package redisbus carries Datagram Variant frames as Redis pub/sub
// messages on one channel. Redis delivers a publisher's own messages back to
// it, so sessions over this transport filter by sender name.
package redisbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/omochice/duplex-chat/internal/framing"
)

// Conn implements chat.Conn over a Redis subscription.
type Conn struct {
	client  *redis.Client
	pubsub  *redis.PubSub
	msgs    <-chan *redis.Message
	channel string
	addr    string

	closeOnce sync.Once
	closeErr  error
}

// Join connects to the server at url and subscribes to channel.
func Join(ctx context.Context, url, channel string) (*Conn, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	pubsub := client.Subscribe(ctx, channel)
	// Wait for the confirmation so nothing published after Join is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		client.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	return &Conn{
		client:  client,
		pubsub:  pubsub,
		msgs:    pubsub.Channel(),
		channel: channel,
		addr:    opt.Addr,
	}, nil
}

// Read implements chat.Conn.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-c.msgs:
		if !ok {
			return nil, framing.ErrConnectionClosed
		}
		return []byte(msg.Payload), nil
	}
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, frame []byte) error {
	if err := framing.CheckDatagram(frame); err != nil {
		return err
	}
	return c.client.Publish(ctx, c.channel, frame).Err()
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = errors.Join(c.pubsub.Close(), c.client.Close())
	})
	return c.closeErr
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.addr + "/" + c.channel
}
