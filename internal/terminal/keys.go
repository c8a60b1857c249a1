package terminal

import (
	"context"
	"io"
)

// KeyPump reads r on its own goroutine and hands the bytes out one at a
// time. A read from a terminal cannot be interrupted, so the pump outlives
// any single session and every session takes keys from the same pump.
//
// NextKey is not safe for concurrent use.
type KeyPump struct {
	ch      chan []byte
	err     error
	pending []byte
}

// NewKeyPump starts pumping r.
func NewKeyPump(r io.Reader) *KeyPump {
	p := &KeyPump{ch: make(chan []byte)}
	go p.pump(r)
	return p
}

func (p *KeyPump) pump(r io.Reader) {
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.ch <- chunk
		}
		if err != nil {
			// Written before close, read after the receive that observes it.
			p.err = err
			close(p.ch)
			return
		}
	}
}

// NextKey returns the next key. It returns ctx.Err() when ctx is cancelled
// first and the reader's error, io.EOF included, once the input is drained.
func (p *KeyPump) NextKey(ctx context.Context) (byte, error) {
	for len(p.pending) == 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case chunk, ok := <-p.ch:
			if !ok {
				return 0, p.err
			}
			p.pending = chunk
		}
	}
	b := p.pending[0]
	p.pending = p.pending[1:]
	return b, nil
}
