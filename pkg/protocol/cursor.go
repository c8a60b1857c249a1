package protocol

import "encoding/binary"

// cursor reads fields from an owned byte slice and refuses to read past its
// end.
type cursor struct {
	buf []byte
	off int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.off
}

func (c *cursor) take(field Field, n int) ([]byte, error) {
	if n > c.remaining() {
		return nil, &FrameError{Field: field, Want: n, Have: c.remaining()}
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *cursor) uint8(field Field) (byte, error) {
	b, err := c.take(field, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) uint16(field Field) (uint16, error) {
	b, err := c.take(field, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// str copies n bytes so the decoded message does not alias the frame.
func (c *cursor) str(field Field, n int) (string, error) {
	b, err := c.take(field, n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
