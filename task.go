package drover

import (
	"context"
	"fmt"
	"sync"
)

// Mode selects how a run's task is dispatched across the pool.
type Mode string

const (
	// ModeSimple invokes the task once per worker with no input chunk.
	ModeSimple Mode = "simple"

	// ModeExtended splits the run's data into contiguous per-worker
	// chunks and invokes the task once per chunk.
	ModeExtended Mode = "extended"
)

// Invocation carries one worker unit's inputs into a task function.
type Invocation struct {
	// Chunk is the contiguous slice of the run's data assigned to this
	// unit. Nil in simple mode.
	Chunk []interface{}

	// Args is the auxiliary payload supplied on the run request, after a
	// codec round trip across the process boundary.
	Args interface{}

	// Unit is the dispatch index of this worker unit within its round.
	Unit int
}

// TaskFunc is user logic executed inside a worker process. Inputs and the
// returned value cross the process boundary by value, so a task must be
// self-contained: anything it needs beyond its chunk belongs in Args, never
// in captured mutable state.
type TaskFunc func(ctx context.Context, inv *Invocation) (interface{}, error)

var (
	taskMu    sync.RWMutex
	taskFuncs = make(map[string]TaskFunc)
)

// Register binds a task name to its implementation. Because workers are
// re-executions of the hosting binary, registration must run identically on
// both sides of the process boundary -- package init or early in main.
// Registering a duplicate name panics, mirroring http.HandleFunc.
func Register(name string, fn TaskFunc) {
	taskMu.Lock()
	defer taskMu.Unlock()

	if name == "" || fn == nil {
		panic("drover: Register requires a name and a function")
	}
	if _, dup := taskFuncs[name]; dup {
		panic(fmt.Sprintf("drover: task %q registered twice", name))
	}
	taskFuncs[name] = fn
}

func lookupTask(name string) (TaskFunc, bool) {
	taskMu.RLock()
	defer taskMu.RUnlock()
	fn, ok := taskFuncs[name]
	return fn, ok
}
