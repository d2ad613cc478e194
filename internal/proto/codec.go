package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderSize is the fixed frame header: payload length, type, origin, destination.
const HeaderSize = 4 + 1 + 4 + 4

// DefaultMaxPayload bounds a single frame's payload.
const DefaultMaxPayload = 64 << 10

// ErrFrameTooLarge is returned for frames whose declared payload exceeds the limit.
var ErrFrameTooLarge = errors.New("frame payload too large")

// Codec reads and writes length-prefixed frames on a byte stream.
//
//	u32 payload_len | u8 type | i32 origin | i32 destination | payload
//
// All integers are big endian.
type Codec struct {
	MaxPayload int
}

func (c Codec) limit() int {
	if c.MaxPayload <= 0 {
		return DefaultMaxPayload
	}
	return c.MaxPayload
}

// Decode reads exactly one frame from r.
func (c Codec) Decode(r io.Reader) (Frame, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}

	size := binary.BigEndian.Uint32(hdr[0:4])
	if uint64(size) > uint64(c.limit()) {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	f := Frame{
		Type:        hdr[4],
		Origin:      int32(binary.BigEndian.Uint32(hdr[5:9])),
		Destination: int32(binary.BigEndian.Uint32(hdr[9:13])),
	}
	if size > 0 {
		f.Payload = make([]byte, size)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return Frame{}, fmt.Errorf("read payload: %w", err)
		}
	}
	return f, nil
}

// Marshal encodes f into a single buffer.
func (c Codec) Marshal(f Frame) ([]byte, error) {
	if len(f.Payload) > c.limit() {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(f.Payload))
	}

	buf := make([]byte, HeaderSize+len(f.Payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(f.Payload)))
	buf[4] = f.Type
	binary.BigEndian.PutUint32(buf[5:9], uint32(f.Origin))
	binary.BigEndian.PutUint32(buf[9:13], uint32(f.Destination))
	copy(buf[HeaderSize:], f.Payload)
	return buf, nil
}

// Encode writes f to w with a single Write call.
func (c Codec) Encode(w io.Writer, f Frame) error {
	buf, err := c.Marshal(f)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
