package procpool

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopHandler sums a unit's chunk, or misbehaves on demand.
func loopHandler(ctx context.Context, unit Unit) (interface{}, error) {
	switch unit.Task {
	case "sum":
		total := 0.0
		for _, v := range unit.Chunk {
			total += v.(float64)
		}
		return total, nil
	case "fail":
		return nil, errors.New("told to fail")
	case "panic":
		panic("told to panic")
	}
	return nil, errors.New("unknown task")
}

func runLoop(t *testing.T, units []Unit) []Reply {
	codec := &JSONCodec{}

	var in bytes.Buffer
	for _, unit := range units {
		payload, err := codec.Encode(unit)
		require.NoError(t, err)
		require.NoError(t, writeFrame(&in, payload))
	}

	var out bytes.Buffer
	require.NoError(t, WorkerLoop(&in, &out, codec, loopHandler))

	replies := make([]Reply, 0, len(units))
	for range units {
		payload, err := readFrame(&out)
		require.NoError(t, err)

		var reply Reply
		require.NoError(t, codec.Decode(payload, &reply))
		replies = append(replies, reply)
	}
	return replies
}

func TestWorkerLoopServesUnits(t *testing.T) {
	replies := runLoop(t, []Unit{
		{Seq: 0, Task: "sum", HasChunk: true, Chunk: []interface{}{1.0, 2.0}},
		{Seq: 1, Task: "sum", HasChunk: true, Chunk: []interface{}{3.0, 4.0}},
	})

	assert.Equal(t, 0, replies[0].Seq)
	assert.Equal(t, 3.0, replies[0].Result)
	assert.Equal(t, 1, replies[1].Seq)
	assert.Equal(t, 7.0, replies[1].Result)
}

func TestWorkerLoopCapturesHandlerError(t *testing.T) {
	replies := runLoop(t, []Unit{
		{Seq: 0, Task: "fail"},
		{Seq: 1, Task: "sum", HasChunk: true, Chunk: []interface{}{5.0}},
	})

	// The failure is a unit outcome; the loop keeps serving.
	require.NotNil(t, replies[0].Err)
	assert.Contains(t, replies[0].Err.Message, "told to fail")
	assert.Nil(t, replies[1].Err)
	assert.Equal(t, 5.0, replies[1].Result)
}

func TestWorkerLoopCapturesPanic(t *testing.T) {
	replies := runLoop(t, []Unit{{Seq: 0, Task: "panic"}})

	require.NotNil(t, replies[0].Err)
	assert.Contains(t, replies[0].Err.Message, "panic")
	assert.Nil(t, replies[0].Result)
}

func TestWorkerLoopReportsMemory(t *testing.T) {
	replies := runLoop(t, []Unit{{Seq: 0, Task: "sum", HasChunk: true, Chunk: []interface{}{1.0}}})
	assert.True(t, replies[0].MemBytes > 0)
}
