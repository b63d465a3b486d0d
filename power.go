package drover

import "math"

// resolveWorkers maps a requested utilization percentage onto a concrete
// worker count for the given number of available cores. The count is
// round(cores * power / 100), at least 1 and never more than the core
// count. Out-of-range power values are clamped to [1, 100] rather than
// failing the run.
func resolveWorkers(power, availableCores int) int {
	if availableCores < 1 {
		availableCores = 1
	}
	if power < 1 {
		power = 1
	} else if power > 100 {
		power = 100
	}

	workers := int(math.Round(float64(availableCores) * float64(power) / 100))
	if workers < 1 {
		workers = 1
	}
	if workers > availableCores {
		workers = availableCores
	}
	return workers
}
