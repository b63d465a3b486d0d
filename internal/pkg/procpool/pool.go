// Package procpool owns the worker process pool: spawning workers by
// re-executing the current binary, a codec-framed request/response protocol
// over the child's stdin/stdout, synchronous dispatch rounds, self-healing
// after process faults, and idempotent teardown.
package procpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrTerminated is returned when ensuring or dispatching through a
	// pool that has been torn down.
	ErrTerminated = errors.New("procpool: pool terminated")

	// ErrWorkerFault marks an unrecoverable worker process failure, as
	// opposed to an error raised by user code inside a task.
	ErrWorkerFault = errors.New("procpool: worker process fault")

	// ErrTooManyUnits is returned when a round carries more units than
	// there are live workers.
	ErrTooManyUnits = errors.New("procpool: more units than workers in round")
)

// Pool owns a set of live worker processes. It is the only component that
// holds process handles; everything outside sees units and replies. A Pool
// may serve any number of dispatch rounds until Terminate is called.
type Pool struct {
	mu         sync.Mutex
	workers    []*proc
	codec      Codec
	inFlight   int64
	terminated bool
	nextID     int
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithCodec selects the wire codec spoken to workers.
func WithCodec(c Codec) PoolOption {
	return func(p *Pool) { p.codec = c }
}

// WithMaxInFlight caps how many unit sends may be outstanding at once
// within a dispatch round. Zero means no cap beyond the worker count.
func WithMaxInFlight(n int) PoolOption {
	return func(p *Pool) { p.inFlight = int64(n) }
}

// New creates an empty pool. Workers are spawned lazily by Ensure.
func New(options ...PoolOption) *Pool {
	p := &Pool{codec: &JSONCodec{}}
	for _, f := range options {
		f(p)
	}
	return p
}

// Ensure grows the pool to at least n live workers. It is idempotent:
// calling it again with the same or a smaller count reuses the existing
// workers, and growing spawns only the delta.
func (p *Pool) Ensure(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.terminated {
		return ErrTerminated
	}

	for len(p.workers) < n {
		w, err := spawn(p.nextID, p.codec)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWorkerFault, err)
		}
		p.nextID++
		p.workers = append(p.workers, w)
	}
	return nil
}

// Size reports the number of live workers.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, w := range p.workers {
		if !w.dead() {
			n++
		}
	}
	return n
}

// Dispatch runs one synchronous round: unit i goes to worker i, and the
// call blocks until every dispatched worker has replied or failed. Replies
// come back indexed by unit Seq regardless of arrival order; task-level
// failures travel inside the replies, while a process fault fails the whole
// round. If progress is non-nil it is called once per received reply.
//
// Cancelling ctx abandons the round: in-flight workers are killed, their
// eventual replies discarded, and replacements spawned for the next round.
func (p *Pool) Dispatch(ctx context.Context, units []Unit, progress func()) ([]Reply, error) {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return nil, ErrTerminated
	}
	if len(units) > len(p.workers) {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %d units, %d workers", ErrTooManyUnits, len(units), len(p.workers))
	}
	assigned := make([]*proc, len(units))
	copy(assigned, p.workers[:len(units)])
	p.mu.Unlock()

	// Encode up front so an unserializable payload fails the round before
	// anything is sent.
	payloads := make([][]byte, len(units))
	for i, unit := range units {
		data, err := p.codec.Encode(unit)
		if err != nil {
			return nil, fmt.Errorf("unit %d not encodable: %w", unit.Seq, err)
		}
		payloads[i] = data
	}

	inFlight := p.inFlight
	if inFlight <= 0 {
		inFlight = int64(len(units))
	}
	sem := semaphore.NewWeighted(inFlight)

	replies := make([]Reply, len(units))
	errs := make([]error, len(units))

	roundDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			for _, w := range assigned {
				w.kill()
			}
		case <-roundDone:
		}
	}()

	var wg sync.WaitGroup
	for i := range units {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)

			reply, err := assigned[i].invoke(payloads[i])
			if err != nil {
				errs[i] = err
				return
			}
			replies[i] = reply
			if progress != nil {
				progress()
			}
		}(i)
	}
	wg.Wait()
	close(roundDone)

	if err := ctx.Err(); err != nil {
		p.heal()
		return nil, err
	}

	for _, err := range errs {
		if err != nil {
			if healErr := p.heal(); healErr != nil {
				return nil, healErr
			}
			return nil, err
		}
	}
	return replies, nil
}

// heal respawns a replacement for every faulted worker so the pool stays
// usable for the next round. If a respawn fails the pool tears itself down
// and callers must recreate it.
func (p *Pool) heal() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.terminated {
		return ErrTerminated
	}

	for i, w := range p.workers {
		if !w.dead() {
			continue
		}
		replacement, err := spawn(p.nextID, p.codec)
		if err != nil {
			log.Errorf("Cannot respawn worker %d: %s", w.id, err)
			p.terminateLocked()
			return fmt.Errorf("%w: respawn failed: %v", ErrWorkerFault, err)
		}
		log.Debugf("Respawned worker %d as %d", w.id, replacement.id)
		p.nextID++
		p.workers[i] = replacement
	}
	return nil
}

// Terminate tears down every live worker and marks the pool unusable for
// further dispatch. Safe to call any number of times.
func (p *Pool) Terminate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminateLocked()
}

func (p *Pool) terminateLocked() {
	if p.terminated {
		return
	}
	p.terminated = true

	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *proc) {
			defer wg.Done()
			w.terminate()
		}(w)
	}
	wg.Wait()
	p.workers = nil
	log.Debug("Pool terminated")
}
