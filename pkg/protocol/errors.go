package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated matches every *FrameError.
	ErrTruncated = errors.New("truncated frame")
	// ErrTrailingData is returned when a frame has bytes after its last field.
	ErrTrailingData = errors.New("trailing data after frame")

	// ErrNameTooLong is an encode-time contract violation.
	ErrNameTooLong = errors.New("name exceeds 255 bytes")
	// ErrTextTooLong is an encode-time contract violation.
	ErrTextTooLong = errors.New("text exceeds variant limit")
	// ErrInvalidMessage is returned when a message type has no encoding in
	// the selected variant.
	ErrInvalidMessage = errors.New("message not encodable in this variant")
)

// Field names a wire field for error reporting.
type Field int

const (
	FieldLength Field = iota
	FieldOpcode
	FieldNameLength
	FieldName
	FieldTextLength
	FieldText
)

func (f Field) String() string {
	switch f {
	case FieldLength:
		return "length"
	case FieldOpcode:
		return "opcode"
	case FieldNameLength:
		return "name length"
	case FieldName:
		return "name"
	case FieldTextLength:
		return "text length"
	case FieldText:
		return "text"
	default:
		return "unknown"
	}
}

// FrameError reports a field whose bytes are not all present.
type FrameError struct {
	Field Field
	Want  int
	Have  int
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("truncated frame: %s needs %d bytes, %d available", e.Field, e.Want, e.Have)
}

// Is reports whether target is ErrTruncated.
func (e *FrameError) Is(target error) bool {
	return target == ErrTruncated
}

// OpcodeError reports an opcode that the variant does not define.
type OpcodeError struct {
	Variant Variant
	Opcode  byte
}

func (e *OpcodeError) Error() string {
	return fmt.Sprintf("unknown %s opcode %d", e.Variant, e.Opcode)
}
