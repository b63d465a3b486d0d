package procpool

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/mattetti/filebuffer"
	log "github.com/sirupsen/logrus"
)

// workerExitGrace is how long terminate waits for a worker to exit on its
// own after its stdin is closed before killing it.
const workerExitGrace = 2 * time.Second

// stderrTailBytes bounds how much captured stderr is quoted in a fault error.
const stderrTailBytes = 512

type workerState int

const (
	workerIdle workerState = iota
	workerExecuting
	workerTerminated
)

// proc is the driver-side handle for one worker process. The pool is the
// only owner of proc handles; units and replies are the only things that
// cross its boundary.
type proc struct {
	id     int
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr *filebuffer.Buffer
	codec  Codec

	mu    sync.Mutex
	state workerState

	waitOnce sync.Once
	waitDone chan struct{}
}

// spawn re-executes the current binary in worker mode. The child inherits
// the parent's environment plus the worker and codec markers, and is
// expected to branch into WorkerLoop before doing any work of its own.
func spawn(id int, codec Codec) (*proc, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("cannot locate own binary: %w", err)
	}

	cmd := exec.Command(self)
	cmd.Env = append(os.Environ(),
		WorkerEnv+"=1",
		CodecEnv+"="+codec.Name(),
	)

	stderr := filebuffer.New(nil)
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("cannot spawn worker %d: %w", id, err)
	}
	log.Debugf("Spawned worker %d (pid %d)", id, cmd.Process.Pid)

	return &proc{
		id:       id,
		cmd:      cmd,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		codec:    codec,
		state:    workerIdle,
		waitDone: make(chan struct{}),
	}, nil
}

// invoke sends one encoded unit and blocks until the worker replies. Any
// transport error is a process fault: the handle transitions to Terminated
// and the pool must respawn a replacement.
func (p *proc) invoke(payload []byte) (Reply, error) {
	p.mu.Lock()
	if p.state == workerTerminated {
		p.mu.Unlock()
		return Reply{}, fmt.Errorf("%w: worker %d is gone", ErrWorkerFault, p.id)
	}
	p.state = workerExecuting
	p.mu.Unlock()

	if err := writeFrame(p.stdin, payload); err != nil {
		return Reply{}, p.fault(err)
	}

	raw, err := readFrame(p.stdout)
	if err != nil {
		return Reply{}, p.fault(err)
	}

	var reply Reply
	if err := p.codec.Decode(raw, &reply); err != nil {
		return Reply{}, p.fault(err)
	}

	p.mu.Lock()
	if p.state == workerExecuting {
		p.state = workerIdle
	}
	p.mu.Unlock()

	return reply, nil
}

// fault marks the worker dead and dresses the transport error with the
// process's captured stderr, which usually names the real culprit.
func (p *proc) fault(cause error) error {
	p.kill()

	// Wait takes care of the stderr copy, so give it a moment before
	// quoting the buffer.
	select {
	case <-p.waitDone:
	case <-time.After(workerExitGrace):
	}

	if tail := p.stderrTail(); tail != "" {
		return fmt.Errorf("%w: worker %d: %v (stderr: %s)", ErrWorkerFault, p.id, cause, tail)
	}
	return fmt.Errorf("%w: worker %d: %v", ErrWorkerFault, p.id, cause)
}

// kill forcibly ends the worker process. In-flight units are abandoned and
// any reply the process was about to send is discarded.
func (p *proc) kill() {
	p.mu.Lock()
	if p.state == workerTerminated {
		p.mu.Unlock()
		return
	}
	p.state = workerTerminated
	p.mu.Unlock()

	p.cmd.Process.Kill()
	go p.reap()
}

// terminate closes the worker's stdin so its loop exits cleanly, then reaps
// the process, killing it if it overstays the grace period.
func (p *proc) terminate() {
	p.mu.Lock()
	if p.state == workerTerminated {
		p.mu.Unlock()
		return
	}
	p.state = workerTerminated
	p.mu.Unlock()

	p.stdin.Close()
	go p.reap()

	select {
	case <-p.waitDone:
	case <-time.After(workerExitGrace):
		p.cmd.Process.Kill()
		<-p.waitDone
	}
	log.Debugf("Worker %d exited", p.id)
}

// reap waits for the process exactly once. cmd.Wait also drains the stderr
// copy, so waitDone doubles as the buffer-complete signal.
func (p *proc) reap() {
	p.waitOnce.Do(func() {
		p.cmd.Wait()
		close(p.waitDone)
	})
}

func (p *proc) dead() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == workerTerminated
}

func (p *proc) stderrTail() string {
	if _, err := p.stderr.Seek(0, io.SeekStart); err != nil {
		return ""
	}
	data, err := io.ReadAll(p.stderr)
	if err != nil {
		return ""
	}
	if len(data) > stderrTailBytes {
		data = data[len(data)-stderrTailBytes:]
	}
	return strings.TrimSpace(string(data))
}
