package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/omochice/duplex-chat/pkg/protocol"
)

// DefaultByeTimeout bounds the write of the final BYE packet.
const DefaultByeTimeout = 2 * time.Second

// Config holds the collaborators of a Session.
type Config struct {
	Variant   protocol.Variant
	LocalName string

	Conn  Conn
	Input Input
	Sink  Sink
	// Echo is shared with the line editor behind Input. When nil a private
	// buffer is created.
	Echo *EchoBuffer

	Logger logr.Logger
	// SuppressSelf drops datagrams carrying LocalName, for transports that
	// deliver a sender's own packets back to it.
	SuppressSelf bool
	// ByeTimeout bounds the final BYE write. Zero means DefaultByeTimeout.
	ByeTimeout time.Duration
}

// Session is one live conversation over an exclusively owned Conn.
type Session struct {
	codec        protocol.Codec
	conn         Conn
	input        Input
	sink         Sink
	echo         *EchoBuffer
	log          logr.Logger
	localName    string
	suppressSelf bool
	byeTimeout   time.Duration

	// peerName is written once by the receiver before ready is closed and
	// only read after ready is closed.
	peerName string
	nameOnce sync.Once
	ready    chan struct{}

	state  atomic.Int32
	reason atomic.Int32
	ran    atomic.Bool

	closeOnce sync.Once
}

// NewSession validates cfg and creates a Session in the Starting state.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Conn == nil || cfg.Input == nil || cfg.Sink == nil {
		return nil, errors.New("chat: session needs a conn, an input and a sink")
	}
	if len(cfg.LocalName) > protocol.MaxNameLength {
		return nil, fmt.Errorf("chat: local name: %w", protocol.ErrNameTooLong)
	}

	s := &Session{
		codec:        protocol.CodecFor(cfg.Variant),
		conn:         cfg.Conn,
		input:        cfg.Input,
		sink:         cfg.Sink,
		echo:         cfg.Echo,
		log:          cfg.Logger,
		localName:    cfg.LocalName,
		suppressSelf: cfg.SuppressSelf,
		byeTimeout:   cfg.ByeTimeout,
		ready:        make(chan struct{}),
	}
	if s.echo == nil {
		s.echo = NewEchoBuffer(protocol.TextCapacity(cfg.Variant, cfg.LocalName))
	}
	if s.log.GetSink() == nil {
		s.log = logr.Discard()
	}
	if s.byeTimeout <= 0 {
		s.byeTimeout = DefaultByeTimeout
	}
	if cfg.Variant == protocol.VariantDatagram {
		// Datagrams name their sender; there is no handshake.
		s.nameOnce.Do(func() { close(s.ready) })
	}
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Reason returns what ended the session, or ReasonNone while it runs.
func (s *Session) Reason() EndReason {
	return EndReason(s.reason.Load())
}

// PeerName returns the name announced by the peer, or "" before the
// handshake and on the Datagram Variant.
func (s *Session) PeerName() string {
	if !s.isReady() {
		return ""
	}
	return s.peerName
}

// Run drives the session until it ends and the Conn is closed. Cancelling
// ctx counts as a local interrupt. Run returns nil when the peer left or the
// user stopped, and the cause otherwise.
func (s *Session) Run(ctx context.Context) error {
	if !s.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	s.log.V(1).Info("session starting", "variant", s.codec.Variant(), "remote", s.conn.RemoteAddr())

	wctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.receive(wctx, cancel)
	}()
	go func() {
		defer wg.Done()
		s.send(wctx, cancel)
	}()

	<-wctx.Done()
	s.state.Store(int32(StateTerminating))
	wg.Wait()

	end := classify(context.Cause(wctx))
	s.reason.Store(int32(end.reason))
	s.log.V(1).Info("session terminating", "reason", end.reason, "cause", end.err)

	if end.reason == ReasonLocalInterrupt {
		s.sendBye()
	}
	s.close()
	s.state.Store(int32(StateClosed))
	s.announce(end)

	return end.failure()
}

func (s *Session) activate() {
	s.state.CompareAndSwap(int32(StateStarting), int32(StateActive))
}

// receive is the inbound worker.
func (s *Session) receive(ctx context.Context, cancel context.CancelCauseFunc) {
	if s.codec.Variant() == protocol.VariantStream {
		if err := s.handshake(ctx); err != nil {
			if ctx.Err() == nil {
				cancel(&ending{reason: ReasonTransportFailed, err: fmt.Errorf("%w: %w", ErrHandshake, err)})
			}
			return
		}
	}
	s.activate()
	s.sink.Notice("Chat session started with " + s.peerLabel())
	s.sink.RenderLocalEcho(s.echo.Snapshot())

	for {
		frame, err := s.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				cancel(&ending{reason: ReasonTransportFailed, err: fmt.Errorf("receive: %w", err)})
			}
			return
		}

		msg, err := s.codec.Decode(frame)
		if err != nil {
			if s.recoverable(err) {
				continue
			}
			cancel(&ending{reason: ReasonTransportFailed, err: fmt.Errorf("decode: %w", err)})
			return
		}

		if s.dispatch(msg) {
			cancel(&ending{reason: ReasonPeerLeft})
			return
		}
	}
}

// handshake waits for the peer's NAME packet.
func (s *Session) handshake(ctx context.Context) error {
	frame, err := s.conn.Read(ctx)
	if err != nil {
		return err
	}
	msg, err := s.codec.Decode(frame)
	if err != nil {
		return err
	}
	if msg.Type != protocol.MessageTypeName {
		return &ProtocolError{State: StateStarting, Type: msg.Type}
	}
	s.nameOnce.Do(func() {
		s.peerName = msg.Sender
		close(s.ready)
	})
	s.log.V(1).Info("peer announced", "name", msg.Sender)
	return nil
}

// recoverable logs a decode failure and reports whether the session can go
// on. A broken stream frame leaves the stream position unknown.
func (s *Session) recoverable(err error) bool {
	var oe *protocol.OpcodeError
	switch {
	case errors.As(err, &oe):
		s.log.Info("ignoring packet", "error", &ProtocolError{State: s.State(), Err: err})
		s.sink.RenderLocalEcho(s.echo.Snapshot())
		return true
	case s.codec.Variant() == protocol.VariantDatagram:
		s.log.V(1).Info("discarding bad packet", "error", err)
		s.sink.RenderLocalEcho(s.echo.Snapshot())
		return true
	default:
		return false
	}
}

// dispatch renders msg and reports whether the peer ended the session.
func (s *Session) dispatch(msg protocol.Message) bool {
	datagram := s.codec.Variant() == protocol.VariantDatagram
	if datagram && s.suppressSelf && msg.Sender == s.localName {
		return false
	}

	name := msg.Sender
	if !datagram {
		name = s.peerName
	}

	switch msg.Type {
	case protocol.MessageTypeText:
		s.sink.RenderIncoming(name, msg.Content)
		s.sink.RenderLocalEcho(s.echo.Snapshot())
	case protocol.MessageTypeBye:
		s.sink.RenderDeparture(name)
		if !datagram {
			return true
		}
		s.sink.RenderLocalEcho(s.echo.Snapshot())
	default:
		s.log.Info("ignoring packet", "error", &ProtocolError{State: s.State(), Type: msg.Type})
		s.sink.RenderLocalEcho(s.echo.Snapshot())
	}
	return false
}

// send is the outbound worker. It reads input from the start, so the user
// can leave while the peer has not answered yet.
func (s *Session) send(ctx context.Context, cancel context.CancelCauseFunc) {
	if s.codec.Variant() == protocol.VariantStream {
		if err := s.write(ctx, protocol.Message{Type: protocol.MessageTypeName, Sender: s.localName}); err != nil {
			if ctx.Err() == nil {
				cancel(&ending{reason: ReasonTransportFailed, err: fmt.Errorf("send name: %w", err)})
			}
			return
		}
	}

	for {
		if s.isReady() {
			s.sink.Prompt()
		}
		line, err := s.input.ReadLine(ctx)
		if err != nil {
			if ctx.Err() == nil {
				if !errors.Is(err, ErrInterrupted) && !errors.Is(err, io.EOF) {
					err = fmt.Errorf("read input: %w", err)
				}
				cancel(&ending{reason: ReasonLocalInterrupt, err: err})
			}
			return
		}
		if line == "" {
			continue
		}

		// A line submitted early is held until the peer has introduced itself.
		select {
		case <-ctx.Done():
			return
		case <-s.ready:
		}

		err = s.write(ctx, protocol.Message{Type: protocol.MessageTypeText, Sender: s.localName, Content: line})
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return
		case errors.Is(err, protocol.ErrTextTooLong):
			s.sink.Notice("Message too long, not sent")
		default:
			cancel(&ending{reason: ReasonTransportFailed, err: fmt.Errorf("send: %w", err)})
			return
		}
	}
}

func (s *Session) isReady() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

func (s *Session) write(ctx context.Context, msg protocol.Message) error {
	frame, err := s.codec.Encode(msg)
	if err != nil {
		return err
	}
	return s.conn.Write(ctx, frame)
}

// sendBye tells the peer the local user is leaving. Both workers have
// stopped, so the Conn is not shared any more.
func (s *Session) sendBye() {
	ctx, cancel := context.WithTimeout(context.Background(), s.byeTimeout)
	defer cancel()
	if err := s.write(ctx, protocol.Message{Type: protocol.MessageTypeBye, Sender: s.localName}); err != nil {
		s.log.Error(err, "failed to send bye", "remote", s.conn.RemoteAddr())
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		if err := s.conn.Close(); err != nil {
			s.log.Error(err, "failed to close connection", "remote", s.conn.RemoteAddr())
		}
	})
}

func (s *Session) peerLabel() string {
	if s.codec.Variant() == protocol.VariantDatagram {
		return "group"
	}
	return s.peerName
}

func (s *Session) announce(end *ending) {
	switch end.reason {
	case ReasonLocalInterrupt:
		switch {
		case s.codec.Variant() == protocol.VariantDatagram:
			s.sink.Notice("Leaving group chat")
		case s.PeerName() == "":
			s.sink.Notice("Closing chat session")
		default:
			s.sink.Notice("Closing chat session with " + s.PeerName())
		}
	case ReasonTransportFailed:
		s.sink.Notice(fmt.Sprintf("Disconnected: %v", end.err))
	}
}
