package procpool

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	payloads := [][]byte{
		[]byte("hello"),
		{},
		[]byte(`{"seq":3}`),
	}
	for _, payload := range payloads {
		assert.NoError(t, writeFrame(&buf, payload))
	}

	for _, expected := range payloads {
		got, err := readFrame(&buf)
		assert.NoError(t, err)
		assert.Equal(t, expected, got)
	}

	_, err := readFrame(&buf)
	assert.Equal(t, io.EOF, err)
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], 10)
	buf.Write(header[:])
	buf.WriteString("short")

	_, err := readFrame(&buf)
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], maxFrameSize+1)
	buf.Write(header[:])

	_, err := readFrame(&buf)
	assert.Error(t, err)
}
