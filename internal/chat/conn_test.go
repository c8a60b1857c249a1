package chat_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/omochice/duplex-chat/internal/chat"
)

// mockConn is a mock implementation of chat.Conn for testing.
type mockConn struct {
	readCh     chan []byte
	writtenMu  sync.Mutex
	written    [][]byte
	writeErr   error
	closeCount atomic.Int32
	remoteAddr string
}

func newMockConn(addr string) *mockConn {
	return &mockConn{
		readCh:     make(chan []byte, 16),
		remoteAddr: addr,
	}
}

func (m *mockConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data, ok := <-m.readCh:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	}
}

func (m *mockConn) Write(ctx context.Context, data []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	m.written = append(m.written, copied)
	return nil
}

func (m *mockConn) Close() error {
	m.closeCount.Add(1)
	return nil
}

func (m *mockConn) RemoteAddr() string {
	return m.remoteAddr
}

func (m *mockConn) GetWritten() [][]byte {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	return append([][]byte(nil), m.written...)
}

// mockInput feeds lines to the session. A closed channel means end of input.
type mockInput struct {
	lines chan inputLine
}

type inputLine struct {
	text string
	err  error
}

func newMockInput() *mockInput {
	return &mockInput{lines: make(chan inputLine, 16)}
}

func (m *mockInput) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-m.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

// mockSink records rendered events as short strings.
type mockSink struct {
	mu     sync.Mutex
	events []string
}

func (m *mockSink) add(e string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *mockSink) RenderIncoming(name, text string) { m.add("in:" + name + ":" + text) }
func (m *mockSink) RenderDeparture(name string)      { m.add("bye:" + name) }
func (m *mockSink) RenderLocalEcho(line string)      { m.add("echo:" + line) }
func (m *mockSink) Prompt()                          { m.add("prompt") }
func (m *mockSink) Notice(text string)               { m.add("notice:" + text) }

// conversation returns only the incoming and departure events.
func (m *mockSink) conversation() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.events {
		if strings.HasPrefix(e, "in:") || strings.HasPrefix(e, "bye:") {
			out = append(out, e)
		}
	}
	return out
}

func (m *mockSink) has(prefix string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}

// Compile-time checks
var (
	_ chat.Conn  = (*mockConn)(nil)
	_ chat.Input = (*mockInput)(nil)
	_ chat.Sink  = (*mockSink)(nil)
)
