package procpool

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"
)

// Environment markers used to hand a spawned process its worker identity.
const (
	// WorkerEnv marks a process as a pool worker.
	WorkerEnv = "DROVER_WORKER"
	// CodecEnv tells the worker which codec the parent speaks.
	CodecEnv = "DROVER_CODEC"
)

// Handler executes one unit inside a worker process.
type Handler func(ctx context.Context, unit Unit) (interface{}, error)

// WorkerLoop serves units from r until the parent closes the stream,
// writing one reply per unit to w. A handler error becomes a TaskError
// carried in the reply; only a broken pipe or an undecodable frame ends the
// loop with an error.
func WorkerLoop(r io.Reader, w io.Writer, codec Codec, handle Handler) error {
	for {
		payload, err := readFrame(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var unit Unit
		if err := codec.Decode(payload, &unit); err != nil {
			return fmt.Errorf("undecodable unit: %w", err)
		}

		out, err := codec.Encode(execute(unit, handle))
		if err != nil {
			return err
		}
		if err := writeFrame(w, out); err != nil {
			return err
		}
	}
}

// execute runs the handler, converting errors and panics into task-level
// failures so that user code can never take the worker down with it.
func execute(unit Unit, handle Handler) (reply Reply) {
	reply = Reply{Seq: unit.Seq}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			reply.Result = nil
			reply.Err = &TaskError{Task: unit.Task, Message: fmt.Sprintf("panic: %v", r)}
		}
		reply.DurationMS = time.Since(start).Milliseconds()

		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		reply.MemBytes = ms.Alloc
	}()

	result, err := handle(context.Background(), unit)
	if err != nil {
		reply.Err = &TaskError{Task: unit.Task, Message: err.Error()}
		return reply
	}

	reply.Result = result
	return reply
}
