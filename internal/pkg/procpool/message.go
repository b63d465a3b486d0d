package procpool

import "fmt"

// Unit is one dispatched piece of work: the request half of the worker
// protocol. Every field must survive a codec round trip, so payloads are
// plain data, never live Go values.
type Unit struct {
	// Seq is the unit's index within its round. Replies are reassembled
	// in Seq order regardless of arrival order.
	Seq int `json:"seq" msgpack:"seq"`

	// Task names the registered function the worker should invoke.
	Task string `json:"task" msgpack:"task"`

	// HasChunk distinguishes an empty chunk from no chunk at all.
	HasChunk bool `json:"has_chunk,omitempty" msgpack:"has_chunk,omitempty"`

	// Chunk is the contiguous sub-sequence of the run's data assigned to
	// this unit.
	Chunk []interface{} `json:"chunk,omitempty" msgpack:"chunk,omitempty"`

	// Args is the auxiliary payload replicated to every unit of a round.
	Args interface{} `json:"args,omitempty" msgpack:"args,omitempty"`
}

// Reply is the response half of the worker protocol. Exactly one Reply is
// produced per Unit; it is immutable once produced.
type Reply struct {
	Seq        int         `json:"seq" msgpack:"seq"`
	Result     interface{} `json:"result,omitempty" msgpack:"result,omitempty"`
	Err        *TaskError  `json:"err,omitempty" msgpack:"err,omitempty"`
	DurationMS int64       `json:"duration_ms" msgpack:"duration_ms"`
	MemBytes   uint64      `json:"mem_bytes" msgpack:"mem_bytes"`
}

// TaskError is a failure raised by user code inside a worker. It is a unit
// outcome, not a process fault: the worker that produced it stays alive and
// reusable.
type TaskError struct {
	Task    string `json:"task" msgpack:"task"`
	Message string `json:"message" msgpack:"message"`
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q failed: %s", e.Task, e.Message)
}
