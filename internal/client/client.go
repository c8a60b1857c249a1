// Package client opens the active side of a point-to-point chat.
package client

import (
	"context"
	"fmt"

	"github.com/omochice/duplex-chat/internal/chat"
	"github.com/omochice/duplex-chat/internal/config"
	"github.com/omochice/duplex-chat/internal/framing"
	"github.com/omochice/duplex-chat/internal/transport/tcp"
	"github.com/omochice/duplex-chat/internal/transport/ws"
)

// Dial connects to the peer described by cfg over its configured transport.
// Both TCP and WebSocket connections carry the same stream framing.
func Dial(ctx context.Context, cfg *config.Chat, opts ...framing.Option) (chat.Conn, error) {
	var (
		s   *framing.Stream
		err error
	)
	switch cfg.Transport {
	case config.TransportTCP:
		s, err = tcp.Dial(ctx, cfg.Address(), opts...)
	case config.TransportWS:
		s, err = ws.Dial(ctx, cfg.URL(), opts...)
	default:
		return nil, fmt.Errorf("%w %q", config.ErrBadTransport, cfg.Transport)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
