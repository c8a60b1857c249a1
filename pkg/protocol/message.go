// Package protocol implements the two chat wire formats.
//
// The Stream Variant is used over an ordered byte stream and frames every
// packet with a two byte length prefix:
//
//	[u16 length][u8 opcode][text...]
//
// where length counts the opcode and text bytes only.
//
// The Datagram Variant relies on the transport's own message boundaries and
// carries the sender name in every packet:
//
//	TEXT: [u8 opcode][u8 name length][name...][u16 text length][text...]
//	BYE:  [u8 opcode][u8 name length][name...]
//
// All integers are big-endian. Names and text are raw bytes with no
// terminator on the wire.
package protocol

// MessageType represents the logical kind of a packet.
type MessageType int

const (
	MessageTypeText MessageType = iota
	MessageTypeName
	MessageTypeBye
)

// String returns the string representation of MessageType
func (mt MessageType) String() string {
	switch mt {
	case MessageTypeText:
		return "TEXT"
	case MessageTypeName:
		return "NAME"
	case MessageTypeBye:
		return "BYE"
	default:
		return "UNKNOWN"
	}
}

// Message represents a decoded chat packet.
//
// On the Stream Variant the sender of TEXT and BYE packets is implicit (it
// was announced once with a NAME packet), so Sender is empty after decoding
// and ignored when encoding. A NAME packet carries the name in Sender.
type Message struct {
	Type    MessageType
	Sender  string
	Content string
}

// Variant selects one of the two wire profiles.
type Variant int

const (
	// VariantStream is the length-prefixed profile for connection-oriented
	// byte streams.
	VariantStream Variant = iota
	// VariantDatagram is the self-delimited profile for message-oriented
	// group transports.
	VariantDatagram
)

func (v Variant) String() string {
	switch v {
	case VariantStream:
		return "stream"
	case VariantDatagram:
		return "datagram"
	default:
		return "unknown"
	}
}

// Field sizes and limits shared by both variants.
const (
	LengthFieldSize     = 2
	OpcodeFieldSize     = 1
	NameLengthFieldSize = 1
	TextLengthFieldSize = 2

	// MaxNameLength bounds every name, on both variants.
	MaxNameLength = 255
	// MaxStreamText bounds the text of a single Stream Variant packet.
	MaxStreamText = 65532
	// MaxDatagramText is the largest value of the text length field.
	MaxDatagramText = 65535
	// MaxDatagramFrame is the receive buffer capacity on the datagram side.
	// No encoded datagram may exceed it.
	MaxDatagramFrame = 65536

	streamHeaderSize   = LengthFieldSize + OpcodeFieldSize
	datagramHeaderSize = OpcodeFieldSize + NameLengthFieldSize + TextLengthFieldSize
)

// Stream Variant opcodes.
const (
	StreamOpName byte = 1
	StreamOpText byte = 2
	StreamOpBye  byte = 3
)

// Datagram Variant opcodes.
const (
	DatagramOpText byte = 1
	DatagramOpBye  byte = 2
)

// TextCapacity returns the longest text a user called name can send in a
// single packet of the given variant.
func TextCapacity(v Variant, name string) int {
	if v == VariantStream {
		return MaxStreamText
	}
	n := MaxDatagramFrame - datagramHeaderSize - len(name)
	if n > MaxDatagramText {
		n = MaxDatagramText
	}
	if n < 0 {
		return 0
	}
	return n
}
