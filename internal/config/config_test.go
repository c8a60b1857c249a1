package config_test

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/duplex-chat/internal/config"
)

func TestParseChat(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		want    config.Chat
		wantErr error
	}{
		{
			name: "active tcp",
			args: []string{"-active", "-peer", "localhost", "-port", "3000", "-name", "alice"},
			want: config.Chat{
				Mode: config.ModeActive, Peer: "localhost", Port: 3000, Name: "alice",
				Transport: config.TransportTCP, WSPath: "/", IdleTimeout: config.DefaultIdleTimeout,
			},
		},
		{
			name: "double dash passive with env defaults",
			args: []string{"--passive"},
			env:  map[string]string{"CHAT_PORT": "4000", "CHAT_NAME": "bob", "CHAT_IDLE_TIMEOUT": "30s"},
			want: config.Chat{
				Mode: config.ModePassive, Port: 4000, Name: "bob",
				Transport: config.TransportTCP, WSPath: "/", IdleTimeout: 30 * time.Second,
			},
		},
		{
			name:    "no mode",
			args:    []string{"-port", "3000"},
			wantErr: config.ErrNoMode,
		},
		{
			name:    "both modes",
			args:    []string{"-active", "-passive", "-port", "3000"},
			wantErr: config.ErrNoMode,
		},
		{
			name:    "active without peer",
			args:    []string{"-active", "-port", "3000"},
			wantErr: config.ErrNoPeer,
		},
		{
			name:    "port out of range",
			args:    []string{"-passive", "-port", "70000"},
			wantErr: config.ErrInvalidPort,
		},
		{
			name:    "missing port",
			args:    []string{"-passive"},
			wantErr: config.ErrInvalidPort,
		},
		{
			name:    "unknown transport",
			args:    []string{"-active", "-peer", "h", "-port", "1", "-transport", "quic"},
			wantErr: config.ErrBadTransport,
		},
		{
			name:    "bad ws path",
			args:    []string{"-active", "-peer", "h", "-port", "1", "-transport", "ws", "-ws-path", "chat"},
			wantErr: config.ErrInvalidWSPath,
		},
		{
			name:    "name too long",
			args:    []string{"-passive", "-port", "1", "-name", strings.Repeat("n", 256)},
			wantErr: config.ErrInvalidName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, err := config.ParseChat(tt.args, io.Discard)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestChat_Addresses(t *testing.T) {
	c := config.Chat{Mode: config.ModeActive, Peer: "::1", Port: 3000, WSPath: "/chat"}
	assert.Equal(t, "[::1]:3000", c.Address())
	assert.Equal(t, "ws://[::1]:3000/chat", c.URL())

	c.Mode = config.ModePassive
	assert.Equal(t, ":3000", c.Address())
}

func TestParseGroup(t *testing.T) {
	g, err := config.ParseGroup([]string{"-mcip", "224.1.1.1", "-port", "3000", "-loopback"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "224.1.1.1:3000", g.Address())
	assert.Equal(t, config.TransportUDP, g.Transport)
	assert.True(t, g.SuppressSelf())

	_, err = config.ParseGroup([]string{"-port", "3000"}, io.Discard)
	assert.ErrorIs(t, err, config.ErrNoGroup)

	_, err = config.ParseGroup([]string{"-mcip", "10.0.0.1", "-port", "3000"}, io.Discard)
	assert.ErrorIs(t, err, config.ErrInvalidGroup)

	t.Setenv("NATS_URL", "nats://bus:4222")
	g, err = config.ParseGroup([]string{"-transport", "nats", "-subject", "room"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "nats://bus:4222", g.NATSURL)
	assert.False(t, g.SuppressSelf())

	g, err = config.ParseGroup([]string{"-transport", "redis"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "groupchat", g.Subject)
	assert.True(t, g.SuppressSelf())
}

func TestPromptName(t *testing.T) {
	var out strings.Builder
	r := strings.NewReader("alice\nrest")

	name, err := config.PromptName(r, &out)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)
	assert.Contains(t, out.String(), "Enter your name")

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "rest", string(rest))

	_, err = config.PromptName(strings.NewReader("two words\n"), io.Discard)
	assert.ErrorIs(t, err, config.ErrInvalidName)

	_, err = config.PromptName(strings.NewReader(""), io.Discard)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
