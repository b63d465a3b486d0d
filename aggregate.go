package drover

// aggregate reassembles per-unit results into the caller-facing sequence.
// Results arrive already indexed by unit, so reassembly is always unit
// index order no matter which worker finished first.
//
// In extended mode a task that returns a sequence gets flattened one level,
// so chunk-in/chunk-out tasks reproduce the shape of the original data. A
// task returning a scalar (per-chunk aggregation) yields one element per
// unit instead. The shape is decided by inspecting the first result, never
// assumed.
func aggregate(mode Mode, results []interface{}) []interface{} {
	if len(results) == 0 {
		return []interface{}{}
	}
	if mode != ModeExtended {
		return results
	}
	if _, sequence := results[0].([]interface{}); !sequence {
		return results
	}

	flattened := make([]interface{}, 0, len(results))
	for _, r := range results {
		seq, ok := r.([]interface{})
		if !ok {
			flattened = append(flattened, r)
			continue
		}
		flattened = append(flattened, seq...)
	}
	return flattened
}
