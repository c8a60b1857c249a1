package protocol

import (
	"encoding/binary"
	"fmt"
)

// Codec converts messages to and from complete wire frames.
type Codec interface {
	Encode(m Message) ([]byte, error)
	Decode(frame []byte) (Message, error)
	Variant() Variant
}

// CodecFor returns the codec of the given variant.
func CodecFor(v Variant) Codec {
	if v == VariantDatagram {
		return DatagramCodec{}
	}
	return StreamCodec{}
}

// StreamCodec encodes the length-prefixed Stream Variant.
type StreamCodec struct{}

// Variant implements Codec.
func (StreamCodec) Variant() Variant { return VariantStream }

// Encode implements Codec. The returned frame includes the length prefix.
func (StreamCodec) Encode(m Message) ([]byte, error) {
	var (
		op   byte
		body string
	)
	switch m.Type {
	case MessageTypeName:
		if len(m.Sender) > MaxNameLength {
			return nil, ErrNameTooLong
		}
		op, body = StreamOpName, m.Sender
	case MessageTypeText:
		if len(m.Content) > MaxStreamText {
			return nil, ErrTextTooLong
		}
		op, body = StreamOpText, m.Content
	case MessageTypeBye:
		op = StreamOpBye
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, m.Type)
	}

	frame := make([]byte, 0, streamHeaderSize+len(body))
	frame = binary.BigEndian.AppendUint16(frame, uint16(OpcodeFieldSize+len(body)))
	frame = append(frame, op)
	frame = append(frame, body...)
	return frame, nil
}

// Decode implements Codec. frame must hold exactly one frame, length prefix
// included.
func (StreamCodec) Decode(frame []byte) (Message, error) {
	c := newCursor(frame)
	length, err := c.uint16(FieldLength)
	if err != nil {
		return Message{}, err
	}
	if length < OpcodeFieldSize {
		return Message{}, &FrameError{Field: FieldOpcode, Want: OpcodeFieldSize, Have: int(length)}
	}
	op, err := c.uint8(FieldOpcode)
	if err != nil {
		return Message{}, err
	}
	body, err := c.str(FieldText, int(length)-OpcodeFieldSize)
	if err != nil {
		return Message{}, err
	}
	if c.remaining() != 0 {
		return Message{}, ErrTrailingData
	}

	switch op {
	case StreamOpName:
		return Message{Type: MessageTypeName, Sender: body}, nil
	case StreamOpText:
		return Message{Type: MessageTypeText, Content: body}, nil
	case StreamOpBye:
		return Message{Type: MessageTypeBye}, nil
	default:
		return Message{}, &OpcodeError{Variant: VariantStream, Opcode: op}
	}
}

// DatagramCodec encodes the self-delimited Datagram Variant.
type DatagramCodec struct{}

// Variant implements Codec.
func (DatagramCodec) Variant() Variant { return VariantDatagram }

// Encode implements Codec.
func (DatagramCodec) Encode(m Message) ([]byte, error) {
	if len(m.Sender) > MaxNameLength {
		return nil, ErrNameTooLong
	}

	switch m.Type {
	case MessageTypeText:
		if len(m.Content) > TextCapacity(VariantDatagram, m.Sender) {
			return nil, ErrTextTooLong
		}
		frame := make([]byte, 0, datagramHeaderSize+len(m.Sender)+len(m.Content))
		frame = append(frame, DatagramOpText, byte(len(m.Sender)))
		frame = append(frame, m.Sender...)
		frame = binary.BigEndian.AppendUint16(frame, uint16(len(m.Content)))
		frame = append(frame, m.Content...)
		return frame, nil
	case MessageTypeBye:
		frame := make([]byte, 0, OpcodeFieldSize+NameLengthFieldSize+len(m.Sender))
		frame = append(frame, DatagramOpBye, byte(len(m.Sender)))
		frame = append(frame, m.Sender...)
		return frame, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, m.Type)
	}
}

// Decode implements Codec. frame must hold exactly one datagram.
func (DatagramCodec) Decode(frame []byte) (Message, error) {
	c := newCursor(frame)
	op, err := c.uint8(FieldOpcode)
	if err != nil {
		return Message{}, err
	}

	var m Message
	switch op {
	case DatagramOpText:
		m.Type = MessageTypeText
	case DatagramOpBye:
		m.Type = MessageTypeBye
	default:
		return Message{}, &OpcodeError{Variant: VariantDatagram, Opcode: op}
	}

	nameLen, err := c.uint8(FieldNameLength)
	if err != nil {
		return Message{}, err
	}
	if m.Sender, err = c.str(FieldName, int(nameLen)); err != nil {
		return Message{}, err
	}

	if m.Type == MessageTypeText {
		textLen, err := c.uint16(FieldTextLength)
		if err != nil {
			return Message{}, err
		}
		if m.Content, err = c.str(FieldText, int(textLen)); err != nil {
			return Message{}, err
		}
	}

	if c.remaining() != 0 {
		return Message{}, ErrTrailingData
	}
	return m, nil
}
