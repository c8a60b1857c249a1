package redisbus_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/duplex-chat/internal/chat"
	"github.com/omochice/duplex-chat/internal/framing"
	"github.com/omochice/duplex-chat/internal/transport/redisbus"
)

var _ chat.Conn = (*redisbus.Conn)(nil)

func TestJoin_InvalidURL(t *testing.T) {
	_, err := redisbus.Join(context.Background(), "not-a-url", "room")
	assert.Error(t, err)
}

func TestConn_GroupDelivery(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	channel := "groupchat.test." + time.Now().Format("150405.000000")

	a, err := redisbus.Join(ctx, url, channel)
	require.NoError(t, err)
	defer a.Close()
	b, err := redisbus.Join(ctx, url, channel)
	require.NoError(t, err)
	defer b.Close()

	frame := []byte{0x01, 0x01, 'a', 0x00, 0x02, 'h', 'i'}
	require.NoError(t, a.Write(ctx, frame))

	got, err := b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, frame, got)

	got, err = a.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, frame, got, "publishers receive their own messages")

	assert.ErrorIs(t, a.Write(ctx, make([]byte, framing.MaxDatagram+1)), framing.ErrFrameTooLarge)
}
