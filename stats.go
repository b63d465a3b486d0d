package drover

import (
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"

	"github.com/droverlabs/drover/internal/pkg/procpool"
)

// Stats is the telemetry attached to every run result. The values are
// descriptive only and never influence control flow.
type Stats struct {
	// ElapsedSeconds is the wall-clock duration of the full round, from
	// request to last reply.
	ElapsedSeconds float64 `json:"elapsedSeconds"`

	// WorkersUsed is the number of workers actually dispatched, which can
	// be lower than the resolved count when data is shorter than the pool.
	WorkersUsed int `json:"workersUsed"`

	// ItemsProcessed counts data elements in extended mode and dispatched
	// units in simple mode.
	ItemsProcessed int `json:"itemsProcessed"`

	// MemoryUsed aggregates the workers' allocated bytes as sampled at
	// the end of the round.
	MemoryUsed uint64 `json:"memoryUsed"`
}

// statsCollector measures one dispatch round.
type statsCollector struct {
	start time.Time
}

func startCollector() *statsCollector {
	return &statsCollector{start: time.Now()}
}

func (s *statsCollector) finalize(workersUsed, itemsProcessed int, replies []procpool.Reply) Stats {
	stats := Stats{
		ElapsedSeconds: time.Since(s.start).Seconds(),
		WorkersUsed:    workersUsed,
		ItemsProcessed: itemsProcessed,
	}
	for _, reply := range replies {
		stats.MemoryUsed += reply.MemBytes
	}

	log.Debugf("Round finished in %.3fs using %s of worker memory",
		stats.ElapsedSeconds, humanize.Bytes(stats.MemoryUsed))
	return stats
}

// runHistory retains telemetry for the most recent runs in a bounded cache.
type runHistory struct {
	mu    sync.Mutex
	cache *lru.Cache
	seq   int
}

func newRunHistory(size int) *runHistory {
	if size < 1 {
		size = 1
	}
	cache, _ := lru.New(size)
	return &runHistory{cache: cache}
}

func (h *runHistory) record(stats Stats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache.Add(h.seq, stats)
	h.seq++
}

// recent returns retained run telemetry, oldest first.
func (h *runHistory) recent() []Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	keys := h.cache.Keys()
	out := make([]Stats, 0, len(keys))
	for _, key := range keys {
		if value, ok := h.cache.Peek(key); ok {
			out = append(out, value.(Stats))
		}
	}
	return out
}
