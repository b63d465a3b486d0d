package procpool

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrameSize guards against a corrupted length prefix.
const maxFrameSize = 1 << 30

// writeFrame writes a length-prefixed message payload. Pipes carry no
// message boundaries of their own, so every codec payload travels inside a
// big-endian uint32 length frame.
func writeFrame(w io.Writer, payload []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readFrame reads one length-prefixed message payload. It returns io.EOF
// only on a clean end of stream, i.e. between frames.
func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
