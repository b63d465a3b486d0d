package drover

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/droverlabs/drover/internal/pkg/procpool"
)

func TestStatsCollector(t *testing.T) {
	collector := startCollector()
	replies := []procpool.Reply{
		{Seq: 0, MemBytes: 1000},
		{Seq: 1, MemBytes: 2500},
	}

	stats := collector.finalize(2, 7, replies)
	assert.Equal(t, 2, stats.WorkersUsed)
	assert.Equal(t, 7, stats.ItemsProcessed)
	assert.Equal(t, uint64(3500), stats.MemoryUsed)
	assert.True(t, stats.ElapsedSeconds >= 0)
}

func TestRunHistoryBounded(t *testing.T) {
	history := newRunHistory(3)
	for i := 0; i < 5; i++ {
		history.record(Stats{ItemsProcessed: i})
	}

	recent := history.recent()
	assert.Len(t, recent, 3)

	// Oldest entries are evicted first; the survivors come back oldest first.
	assert.Equal(t, 2, recent[0].ItemsProcessed)
	assert.Equal(t, 4, recent[2].ItemsProcessed)
}
