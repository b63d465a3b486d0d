package drover

import (
	"errors"

	"github.com/droverlabs/drover/internal/pkg/procpool"
)

var (
	// Configuration errors, detected before any worker is spawned.
	ErrNoTask      = errors.New("drover: run request names no task")
	ErrUnknownTask = errors.New("drover: task not registered")
	ErrMissingData = errors.New("drover: extended mode requires data")
	ErrBadMode     = errors.New("drover: unknown execution mode")

	// Pool errors, re-exported from the pool layer.
	ErrPoolTerminated = procpool.ErrTerminated
	ErrWorkerFault    = procpool.ErrWorkerFault
)

// TaskError is the failure descriptor produced when user code returns an
// error (or panics) inside a worker. Distinct from ErrWorkerFault, which
// means the worker process itself died.
type TaskError = procpool.TaskError
