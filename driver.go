package drover

import (
	"context"
	"runtime"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/droverlabs/drover/internal/pkg/procpool"
)

// RunRequest describes one dispatch of a registered task across the pool.
type RunRequest struct {
	// Task names a function previously bound with Register.
	Task string

	// Mode selects simple (one invocation per worker) or extended
	// (chunked data) dispatch. Empty defaults to ModeSimple.
	Mode Mode

	// Power is the percentage of available cores to use, 1-100. Zero
	// falls back to the driver's configured power; out-of-range values
	// are clamped rather than rejected.
	Power int

	// Data is the ordered input sequence. Required in extended mode.
	Data []interface{}

	// Args is an auxiliary payload copied into every unit of the round.
	Args interface{}
}

// RunResult pairs the reassembled result sequence with run telemetry.
type RunResult struct {
	Data  []interface{}
	Stats Stats
}

// Driver owns a worker pool and dispatches runs against it. A Driver is
// reusable across any number of runs until Terminate is called; each Run is
// one synchronous round, and concurrent Run calls are serialized.
type Driver struct {
	config  *config
	pool    *procpool.Pool
	history *runHistory
	runMu   sync.Mutex
}

// config configures a Driver's execution of runs
type config struct {
	Power          int
	AvailableCores int
	MaxConcurrency int
	Codec          string
	Verbose        bool
	HistorySize    int
}

func newConfig() *config {
	loadConfig() // Load viper config from settings file(s) and environment
	return &config{
		Power:          viper.GetInt("power"),
		AvailableCores: viper.GetInt("available_cores"),
		MaxConcurrency: viper.GetInt("max_concurrency"),
		Codec:          viper.GetString("codec"),
		Verbose:        viper.GetBool("verbose"),
		HistorySize:    viper.GetInt("history_size"),
	}
}

// Option allows configuration of a Driver
type Option func(*config)

// WithPower sets the default percentage of available cores used by runs
// that do not carry their own power.
func WithPower(power int) Option {
	return func(c *config) {
		c.Power = power
	}
}

// WithCores overrides the number of cores the power resolver works
// against. Zero means runtime.NumCPU.
func WithCores(cores int) Option {
	return func(c *config) {
		c.AvailableCores = cores
	}
}

// WithMaxConcurrency caps how many unit sends may be in flight at once
// within a dispatch round.
func WithMaxConcurrency(n int) Option {
	return func(c *config) {
		c.MaxConcurrency = n
	}
}

// WithCodec selects the wire codec spoken to workers ("json" or "msgpack").
func WithCodec(name string) Option {
	return func(c *config) {
		c.Codec = name
	}
}

// WithVerbose enables debug logging and the dispatch progress bar.
func WithVerbose(verbose bool) Option {
	return func(c *config) {
		c.Verbose = verbose
	}
}

// NewDriver creates a new Driver with the provided optional configuration.
func NewDriver(options ...Option) *Driver {
	c := newConfig()
	for _, f := range options {
		f(c)
	}

	if c.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	if c.AvailableCores <= 0 {
		c.AvailableCores = runtime.NumCPU()
	}

	d := &Driver{
		config: c,
		pool: procpool.New(
			procpool.WithCodec(procpool.GetCodec(c.Codec)),
			procpool.WithMaxInFlight(c.MaxConcurrency),
		),
		history: newRunHistory(c.HistorySize),
	}
	log.Debugf("Loaded config: %#v", c)

	return d
}

// Run dispatches one round of the named task across the pool and blocks
// until every unit has replied. The caller always gets either a complete,
// correctly ordered result or a single descriptive error -- never a
// truncated or misordered result set. A task-level failure rejects the
// whole run and discards sibling successes, but leaves the pool usable; a
// worker process fault surfaces as ErrWorkerFault.
func (d *Driver) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if RunningInWorker() {
		WorkerMain()
	}

	d.runMu.Lock()
	defer d.runMu.Unlock()

	if err := d.validate(&req); err != nil {
		return nil, err
	}

	collector := startCollector()

	workers := resolveWorkers(req.Power, d.config.AvailableCores)
	units, items := buildUnits(req, workers)
	log.Debugf("Resolved %d workers for power %d; dispatching %d units", workers, req.Power, len(units))

	if len(units) == 0 {
		// Extended mode over empty data: nothing to dispatch.
		stats := collector.finalize(0, 0, nil)
		d.history.record(stats)
		return &RunResult{Data: []interface{}{}, Stats: stats}, nil
	}

	if err := d.pool.Ensure(len(units)); err != nil {
		return nil, err
	}

	var bar *pb.ProgressBar
	var progress func()
	if d.config.Verbose {
		bar = pb.New(len(units)).Prefix("Dispatch").Start()
		progress = func() { bar.Increment() }
	}

	replies, err := d.pool.Dispatch(ctx, units, progress)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return nil, err
	}

	results := make([]interface{}, len(replies))
	for i, reply := range replies {
		if reply.Err != nil {
			// Abort on the first captured failure.
			return nil, reply.Err
		}
		results[i] = reply.Result
	}

	stats := collector.finalize(len(units), items, replies)
	d.history.record(stats)

	return &RunResult{Data: aggregate(req.Mode, results), Stats: stats}, nil
}

// validate fails a malformed request fast, before any worker is spawned,
// and fills in configured defaults.
func (d *Driver) validate(req *RunRequest) error {
	if req.Task == "" {
		return ErrNoTask
	}
	if _, ok := lookupTask(req.Task); !ok {
		return ErrUnknownTask
	}

	switch req.Mode {
	case "":
		req.Mode = ModeSimple
	case ModeSimple, ModeExtended:
	default:
		return ErrBadMode
	}

	if req.Mode == ModeExtended && req.Data == nil {
		return ErrMissingData
	}
	if req.Power == 0 {
		req.Power = d.config.Power
	}
	return nil
}

// buildUnits turns a run request into the round's worker units and reports
// the item count the run processes. In extended mode the concatenation of
// all unit chunks, in unit order, is exactly the request's data.
func buildUnits(req RunRequest, workers int) ([]procpool.Unit, int) {
	if req.Mode == ModeExtended {
		spans := planChunks(len(req.Data), workers)
		units := make([]procpool.Unit, len(spans))
		for i, span := range spans {
			units[i] = procpool.Unit{
				Seq:      i,
				Task:     req.Task,
				HasChunk: true,
				Chunk:    req.Data[span.Start:span.End],
				Args:     req.Args,
			}
		}
		return units, len(req.Data)
	}

	units := make([]procpool.Unit, workers)
	for i := range units {
		units[i] = procpool.Unit{Seq: i, Task: req.Task, Args: req.Args}
	}
	return units, len(units)
}

// Terminate tears down the driver's pool: every live worker is signalled to
// exit and the pool becomes unusable for further runs. Idempotent, and
// meant to be deferred right after NewDriver so abnormal exits of the
// hosting program still release the worker processes.
func (d *Driver) Terminate() {
	d.pool.Terminate()
}

// RecentRuns returns telemetry retained for the most recent runs, oldest
// first.
func (d *Driver) RecentRuns() []Stats {
	return d.history.recent()
}

var (
	powerFlag   = pflag.IntP("power", "p", 0, "percentage of host cores to use (1-100)")
	verboseFlag = pflag.BoolP("verbose", "v", false, "enable debug logging and progress output")
)

// Main is a convenience entrypoint for binaries built around drover: it
// parses command-line flags, branches into the worker loop when the process
// was spawned as a pool worker, and applies flag overrides to the driver.
func (d *Driver) Main() {
	pflag.Parse()

	if RunningInWorker() {
		WorkerMain()
	}

	if *powerFlag > 0 {
		d.config.Power = *powerFlag
	}
	if *verboseFlag {
		d.config.Verbose = true
		log.SetLevel(log.DebugLevel)
	}
}
