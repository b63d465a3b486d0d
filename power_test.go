package drover

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveWorkers(t *testing.T) {
	var resolveTests = []struct {
		power    int
		cores    int
		expected int
	}{
		{100, 4, 4},
		{50, 4, 2},
		{25, 4, 1},
		{1, 4, 1},
		{100, 1, 1},
		{1, 1, 1},
		{60, 8, 5},  // round(4.8)
		{55, 10, 6}, // round(5.5) rounds half away from zero
	}

	for _, test := range resolveTests {
		assert.Equal(t, test.expected, resolveWorkers(test.power, test.cores),
			"power=%d cores=%d", test.power, test.cores)
	}
}

func TestResolveWorkersClampsPower(t *testing.T) {
	// Out-of-range power degrades permissively instead of failing the run.
	assert.Equal(t, 4, resolveWorkers(150, 4))
	assert.Equal(t, 4, resolveWorkers(1000, 4))
	assert.Equal(t, 1, resolveWorkers(0, 4))
	assert.Equal(t, 1, resolveWorkers(-20, 4))
}

func TestResolveWorkersBounds(t *testing.T) {
	for power := 1; power <= 100; power++ {
		for cores := 1; cores <= 16; cores++ {
			workers := resolveWorkers(power, cores)
			assert.True(t, workers >= 1, "power=%d cores=%d", power, cores)
			assert.True(t, workers <= cores, "power=%d cores=%d", power, cores)
		}
	}
}

func TestResolveWorkersSingleCore(t *testing.T) {
	for power := 1; power <= 100; power++ {
		assert.Equal(t, 1, resolveWorkers(power, 1))
	}
}
