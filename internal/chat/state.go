package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/omochice/duplex-chat/pkg/protocol"
)

// State is the lifecycle stage of a Session.
type State int32

const (
	StateStarting State = iota
	StateActive
	StateTerminating
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateTerminating:
		return "terminating"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EndReason records what ended a Session.
type EndReason int32

const (
	ReasonNone EndReason = iota
	// ReasonPeerLeft means the peer sent BYE.
	ReasonPeerLeft
	// ReasonLocalInterrupt means the local user stopped the session.
	ReasonLocalInterrupt
	// ReasonTransportFailed means a read, write or handshake failed.
	ReasonTransportFailed
)

func (r EndReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonPeerLeft:
		return "peer left"
	case ReasonLocalInterrupt:
		return "local interrupt"
	case ReasonTransportFailed:
		return "transport failed"
	default:
		return "unknown"
	}
}

var (
	// ErrInterrupted is returned by an Input when the user asks to stop.
	ErrInterrupted = errors.New("interrupted by user")
	// ErrHandshake wraps failures to receive the peer's NAME packet.
	ErrHandshake = errors.New("name handshake failed")
	// ErrAlreadyRun is returned when Run is called a second time.
	ErrAlreadyRun = errors.New("session already run")
)

// ProtocolError reports a packet that is not valid in the current state.
type ProtocolError struct {
	State State
	Type  protocol.MessageType
	Err   error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol violation in %s state: %v", e.State, e.Err)
	}
	return fmt.Sprintf("unexpected %s packet in %s state", e.Type, e.State)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ending is the cancellation cause recorded by the goroutine that first
// detects the end of a session.
type ending struct {
	reason EndReason
	err    error
}

func (e *ending) Error() string {
	if e.err == nil {
		return e.reason.String()
	}
	return fmt.Sprintf("%s: %v", e.reason, e.err)
}

func (e *ending) Unwrap() error {
	return e.err
}

// classify turns the cause of the worker context into an ending. A cause
// that no worker recorded came from the parent context, i.e. a signal.
func classify(cause error) *ending {
	var e *ending
	if errors.As(cause, &e) {
		return e
	}
	return &ending{reason: ReasonLocalInterrupt, err: cause}
}

// failure returns the error Run reports for this ending, nil for an orderly
// departure.
func (e *ending) failure() error {
	switch e.reason {
	case ReasonPeerLeft:
		return nil
	case ReasonLocalInterrupt:
		if e.err == nil ||
			errors.Is(e.err, ErrInterrupted) ||
			errors.Is(e.err, io.EOF) ||
			errors.Is(e.err, context.Canceled) {
			return nil
		}
		return e.err
	default:
		return e.err
	}
}
