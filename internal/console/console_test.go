package console_test

import (
	"context"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/duplex-chat/internal/chat"
	"github.com/omochice/duplex-chat/internal/console"
	"github.com/omochice/duplex-chat/internal/framing"
	"github.com/omochice/duplex-chat/pkg/protocol"
)

func TestConsole_RunsSessionFromPipedInput(t *testing.T) {
	inR, inW, err := os.Pipe()
	require.NoError(t, err)
	defer inR.Close()
	outR, outW, err := os.Pipe()
	require.NoError(t, err)
	defer outR.Close()

	c, err := console.Open(inR, outW, logr.Discard())
	require.NoError(t, err)
	defer c.Close()

	local, remote := net.Pipe()
	peer := framing.NewStream(remote)
	defer peer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var codec protocol.StreamCodec
	peerDone := make(chan []protocol.Message, 1)
	go func() {
		name, _ := codec.Encode(protocol.Message{Type: protocol.MessageTypeName, Sender: "bob"})
		_ = peer.Write(ctx, name)
		var got []protocol.Message
		for {
			frame, err := peer.Read(ctx)
			if err != nil {
				break
			}
			msg, err := codec.Decode(frame)
			if err != nil {
				break
			}
			got = append(got, msg)
		}
		peerDone <- got
	}()

	_, err = inW.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, inW.Close())

	reason, err := c.Run(ctx, framing.NewStream(local), console.Session{
		Variant:   protocol.VariantStream,
		LocalName: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, chat.ReasonLocalInterrupt, reason)

	assert.Equal(t, []protocol.Message{
		{Type: protocol.MessageTypeName, Sender: "alice"},
		{Type: protocol.MessageTypeText, Content: "hello"},
		{Type: protocol.MessageTypeBye},
	}, <-peerDone)

	require.NoError(t, outW.Close())
	out, err := io.ReadAll(outR)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Chat session started with bob")
	assert.Contains(t, string(out), "You> hello")
	assert.Contains(t, string(out), "Closing chat session with bob")
}

func TestConsole_CtrlCBeforePeerAnswers(t *testing.T) {
	inR, inW, err := os.Pipe()
	require.NoError(t, err)
	defer inR.Close()
	outR, outW, err := os.Pipe()
	require.NoError(t, err)
	defer outR.Close()
	defer outW.Close()
	go func() { _, _ = io.Copy(io.Discard, outR) }()

	c, err := console.Open(inR, outW, logr.Discard())
	require.NoError(t, err)
	defer c.Close()

	local, remote := net.Pipe()
	peer := framing.NewStream(remote)
	defer peer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// The peer listens but never introduces itself.
	var codec protocol.StreamCodec
	peerDone := make(chan []protocol.Message, 1)
	go func() {
		var got []protocol.Message
		for {
			frame, err := peer.Read(ctx)
			if err != nil {
				break
			}
			msg, err := codec.Decode(frame)
			if err != nil {
				break
			}
			got = append(got, msg)
		}
		peerDone <- got
	}()

	_, err = inW.Write([]byte{0x03})
	require.NoError(t, err)
	defer inW.Close()

	start := time.Now()
	reason, err := c.Run(ctx, framing.NewStream(local), console.Session{
		Variant:   protocol.VariantStream,
		LocalName: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, chat.ReasonLocalInterrupt, reason)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.NoError(t, ctx.Err())

	assert.Equal(t, []protocol.Message{
		{Type: protocol.MessageTypeName, Sender: "alice"},
		{Type: protocol.MessageTypeBye},
	}, <-peerDone)
}
