// Package server implements the passive side of a point-to-point chat. One
// port accepts both raw stream peers and WebSocket peers.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-logr/logr"

	"github.com/omochice/duplex-chat/internal/chat"
	"github.com/omochice/duplex-chat/internal/framing"
	"github.com/omochice/duplex-chat/internal/transport/tcp"
	"github.com/omochice/duplex-chat/internal/transport/ws"
)

// DefaultHandshakeTimeout bounds protocol detection and the WebSocket
// upgrade of a new connection.
const DefaultHandshakeTimeout = 10 * time.Second

var aLongTimeAgo = time.Unix(1, 0)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for rejected connections.
func WithLogger(l logr.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithStreamOptions passes options to every accepted framing.Stream.
func WithStreamOptions(opts ...framing.Option) Option {
	return func(s *Server) {
		s.streamOpts = append(s.streamOpts, opts...)
	}
}

// WithHandshakeTimeout overrides DefaultHandshakeTimeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.handshakeTimeout = d
	}
}

// Server hands out one accepted peer at a time.
type Server struct {
	address          string
	listener         *net.TCPListener
	log              logr.Logger
	streamOpts       []framing.Option
	handshakeTimeout time.Duration
}

// New creates a Server for address. Call Listen before Accept.
func New(address string, opts ...Option) *Server {
	s := &Server{
		address:          address,
		log:              logr.Discard(),
		handshakeTimeout: DefaultHandshakeTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen binds the listening socket.
func (s *Server) Listen() error {
	addr, err := net.ResolveTCPAddr("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener
	return nil
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Accept waits for the next peer and completes protocol detection.
// Connections that fail detection are logged and dropped. Cancelling ctx
// aborts the wait.
func (s *Server) Accept(ctx context.Context) (chat.Conn, error) {
	if s.listener == nil {
		return nil, errors.New("server is not listening")
	}
	if err := s.listener.SetDeadline(time.Time{}); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = s.listener.SetDeadline(aLongTimeAgo)
	})
	defer stop()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to accept connection: %w", err)
		}

		c, err := s.handshake(conn)
		if err != nil {
			s.log.Error(err, "rejecting connection", "remote", conn.RemoteAddr().String())
			conn.Close()
			continue
		}
		return c, nil
	}
}

// handshake determines whether the connection is HTTP (WebSocket) or a raw
// stream and wraps it accordingly.
func (s *Server) handshake(conn net.Conn) (chat.Conn, error) {
	if err := conn.SetDeadline(time.Now().Add(s.handshakeTimeout)); err != nil {
		return nil, err
	}
	proto, reader, err := detectProtocol(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to detect protocol: %w", err)
	}
	bc := &bufferedConn{Conn: conn, reader: reader}

	var c chat.Conn
	switch proto {
	case protocolHTTP:
		c, err = ws.Upgrade(bc, s.streamOpts...)
	default:
		c = tcp.NewConn(bc, s.streamOpts...)
	}
	if err != nil {
		return nil, err
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		return nil, err
	}
	s.log.V(1).Info("accepted peer", "remote", c.RemoteAddr(), "protocol", proto)
	return c, nil
}

// Close stops listening.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}
