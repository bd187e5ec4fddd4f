package discord

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ///////////////////////////////////////////////
// Opcodes
// ///////////////////////////////////////////////

// Opcode identifies the kind of an IPC frame.
type Opcode uint32

const (
	OpHandshake Opcode = 0
	OpFrame     Opcode = 1
	OpClose     Opcode = 2
	OpPing      Opcode = 3
	OpPong      Opcode = 4
)

func (o Opcode) String() string {
	switch o {
	case OpHandshake:
		return "HANDSHAKE"
	case OpFrame:
		return "FRAME"
	case OpClose:
		return "CLOSE"
	case OpPing:
		return "PING"
	case OpPong:
		return "PONG"
	}
	return fmt.Sprintf("OPCODE(%d)", uint32(o))
}

const (
	// frameHeaderSize is the little-endian opcode plus payload length.
	frameHeaderSize = 8

	// MaxPayloadSize bounds a single frame payload (1 MB).
	MaxPayloadSize = 1 << 20

	// maxIPCSlots is the number of socket slots Discord may listen on (0-9).
	maxIPCSlots = 10
)

// ErrPayloadTooLarge is returned for frames whose payload exceeds MaxPayloadSize.
var ErrPayloadTooLarge = errors.New("payload too large")

// ErrIPCNotAvailable is returned when no Discord IPC socket can be reached.
var ErrIPCNotAvailable = errors.New("discord IPC not available")

// ///////////////////////////////////////////////
// Encoding
// ///////////////////////////////////////////////

// EncodeFrame returns [opcode u32 LE][length u32 LE][payload].
func EncodeFrame(op Opcode, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}
	frame := binary.LittleEndian.AppendUint32(make([]byte, 0, frameHeaderSize+len(payload)), uint32(op))
	frame = binary.LittleEndian.AppendUint32(frame, uint32(len(payload)))
	return append(frame, payload...), nil
}

// WriteFrame encodes a frame and writes it to w in a single call.
func WriteFrame(w io.Writer, op Opcode, payload []byte) error {
	frame, err := EncodeFrame(op, payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing %s frame: %w", op, err)
	}
	return nil
}

// ///////////////////////////////////////////////
// Decoding
// ///////////////////////////////////////////////

// DecodeFrame reads exactly one frame from r.
func DecodeFrame(r io.Reader) (Opcode, []byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, fmt.Errorf("reading frame header: %w", err)
	}

	op := Opcode(binary.LittleEndian.Uint32(header[0:4]))
	length := binary.LittleEndian.Uint32(header[4:8])
	if length > MaxPayloadSize {
		return 0, nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, length, MaxPayloadSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("reading %s payload: %w", op, err)
	}
	return op, payload, nil
}
