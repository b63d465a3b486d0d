package drover

import (
	humanize "github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

// chunkSpan describes one contiguous partition of the input sequence.
// Start is inclusive, End is exclusive.
type chunkSpan struct {
	Start int
	End   int
}

// Len returns the number of elements the span covers
func (c chunkSpan) Len() int {
	return c.End - c.Start
}

// planChunks splits a sequence of the given length into at most workers
// contiguous partitions covering it in order with no gaps. Partition
// lengths differ by at most one, with the first length%workers partitions
// carrying the extra element. When length < workers the partition count
// drops to length, so no empty partition is ever produced.
func planChunks(length, workers int) []chunkSpan {
	if length <= 0 || workers < 1 {
		return []chunkSpan{}
	}
	if workers > length {
		workers = length
	}

	base := length / workers
	extra := length % workers

	spans := make([]chunkSpan, workers)
	offset := 0
	for i := range spans {
		size := base
		if i < extra {
			size++
		}
		spans[i] = chunkSpan{Start: offset, End: offset + size}
		offset += size
	}

	log.Debugf("Planned %d chunks over %s items", len(spans), humanize.Comma(int64(length)))
	return spans
}
