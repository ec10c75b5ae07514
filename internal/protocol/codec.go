// Package protocol implements the symmetric binary wire framing used
// between a termhost session host and its attach clients (spec.md
// §4.5): a one-byte message type, a big-endian u32 length, and a
// payload of that many bytes, over any ordered byte stream (Unix
// socket or WebSocket).
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameLength bounds a single frame's payload so a corrupt or
// hostile length prefix cannot force an unbounded allocation.
const MaxFrameLength = 64 << 20 // 64 MiB

// Frame is one decoded wire frame: a message type and its raw payload.
type Frame struct {
	Type    Type
	Payload []byte
}

// WriteFrame writes typ and payload as one frame to w.
func WriteFrame(w io.Writer, typ Type, payload []byte) error {
	var header [5]byte
	header[0] = byte(typ)
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("protocol: write frame header: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("protocol: write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one complete frame from r, blocking until the
// header and payload are fully available (io.ReadFull), matching the
// "accumulate until a complete message can be framed" approach common
// across the corpus's length-prefixed codecs, simplified here since Go
// streams already support blocking-until-n-bytes via ReadFull.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}
	typ := Type(header[0])
	length := binary.BigEndian.Uint32(header[1:])
	if length > MaxFrameLength {
		return Frame{}, fmt.Errorf("protocol: frame length %d exceeds max %d", length, MaxFrameLength)
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, fmt.Errorf("protocol: read frame payload: %w", err)
		}
	}
	return Frame{Type: typ, Payload: payload}, nil
}
