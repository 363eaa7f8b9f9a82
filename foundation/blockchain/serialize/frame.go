package serialize

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrameSize bounds a single framed payload. The largest legitimate
// payload is a full active chain, so the bound is generous.
const maxFrameSize = 256 << 20

// WriteFrame encodes the value and writes it to w prefixed with the
// big-endian length of the payload. This framing is shared by the wire
// protocol and the chain file on disk.
func WriteFrame(w io.Writer, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))

	if _, err := w.Write(length[:]); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}

	return nil
}

// ReadFrame reads one length-prefixed payload from r. The reader may
// deliver the frame in arbitrarily small pieces; ReadFrame accumulates
// until the full payload is in hand.
func ReadFrame(r io.Reader) ([]byte, error) {
	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(length[:])
	if size > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}

	return data, nil
}

// ReadMessage reads one frame and decodes it into a typed entity.
func ReadMessage(r io.Reader) (any, error) {
	data, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}

	return Unmarshal(data)
}
