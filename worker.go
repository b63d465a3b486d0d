package drover

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/droverlabs/drover/internal/pkg/procpool"
)

// RunningInWorker infers if this process is a drover worker via inspection
// of the environment.
func RunningInWorker() bool {
	return os.Getenv(procpool.WorkerEnv) != ""
}

// WorkerMain enters the worker loop, serving units from stdin until the
// driver closes the pipe, then exits the process. Driver.Run and
// Driver.Main call it automatically when the worker marker is present;
// hosting binaries with their own startup logic (and test binaries, via
// TestMain) can branch into it directly with RunningInWorker.
func WorkerMain() {
	codec := procpool.GetCodec(os.Getenv(procpool.CodecEnv))

	if err := procpool.WorkerLoop(os.Stdin, os.Stdout, codec, handleUnit); err != nil {
		log.Errorf("Worker loop terminated: %s", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// handleUnit resolves a unit's task in the registry and invokes it. It runs
// inside the worker process.
func handleUnit(ctx context.Context, unit procpool.Unit) (interface{}, error) {
	fn, ok := lookupTask(unit.Task)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, unit.Task)
	}

	inv := &Invocation{Args: unit.Args, Unit: unit.Seq}
	if unit.HasChunk {
		inv.Chunk = unit.Chunk
		if inv.Chunk == nil {
			inv.Chunk = []interface{}{}
		}
	}
	return fn(ctx, inv)
}
