package grid

import (
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// Range is a half-open span [Start, End) of flattened chunk indices.
type Range struct {
	Start, End int
}

func (r Range) Len() int { return r.End - r.Start }

// Partition splits [0, total) into at most workers contiguous ranges of ⌈total/workers⌉
// indices; the last range takes the short remainder. Every index lands in exactly one
// range.
func Partition(total, workers int) []Range {
	if total <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > total {
		workers = total
	}
	step := (total + workers - 1) / workers
	out := make([]Range, 0, workers)
	for start := 0; start < total; start += step {
		out = append(out, Range{Start: start, End: min(start+step, total)})
	}
	return out
}

// RecomputeChunks rebuilds every chunk. Each partition is handed to one pooled worker and
// the call blocks until all of them finish; no geometry is read before that join.
// Partitions are disjoint, so workers write distinct chunks and only read voxel arrays.
//
// Any pending incremental updates are satisfied by the rebuild and dropped.
func (g *Grid) RecomputeChunks() {
	ranges := Partition(len(g.chunks), g.workers)
	if len(ranges) == 1 || g.pool == nil {
		for _, r := range ranges {
			g.recomputeRange(r)
		}
	} else {
		var wg sync.WaitGroup
		for id, r := range ranges {
			wg.Add(1)
			g.pool.SubmitTask(worker.Task{
				ID: id,
				Do: func() (any, error) {
					defer wg.Done()
					g.recomputeRange(r)
					return nil, nil
				},
			})
		}
		wg.Wait()
	}
	g.dirty.take()
}

func (g *Grid) recomputeRange(r Range) {
	for _, c := range g.chunks[r.Start:r.End] {
		c.RecomputeMesh()
	}
}
