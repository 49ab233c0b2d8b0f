package grid

// dirtySet is an insertion-ordered set of chunks waiting for a rebuild. Order keeps
// incremental rebuilds (and the meshes published from them) deterministic.
type dirtySet struct {
	index map[*Chunk]struct{}
	order []*Chunk
}

func newDirtySet() dirtySet {
	return dirtySet{index: map[*Chunk]struct{}{}}
}

func (s *dirtySet) add(c *Chunk) bool {
	if _, ok := s.index[c]; ok {
		return false
	}
	s.index[c] = struct{}{}
	s.order = append(s.order, c)
	return true
}

func (s *dirtySet) take() []*Chunk {
	out := s.order
	s.order = nil
	clear(s.index)
	return out
}

func (s *dirtySet) len() int { return len(s.order) }

// EnqueueChunkToUpdate marks a chunk for the next DrainDirtyQueue. Enqueueing a chunk
// that is already pending does nothing.
func (g *Grid) EnqueueChunkToUpdate(c *Chunk) {
	if c == nil || c.grid != g {
		return
	}
	c.stale = true
	g.dirty.add(c)
}

// PendingUpdates is the size of the dirty set.
func (g *Grid) PendingUpdates() int { return g.dirty.len() }

// DrainDirtyQueue rebuilds every pending chunk exactly once, in the order first enqueued,
// then empties the set. Runs on the caller's goroutine: the set is normally a handful of
// chunks near the cursor. Returns the rebuilt chunks.
func (g *Grid) DrainDirtyQueue() []*Chunk {
	pending := g.dirty.take()
	for _, c := range pending {
		c.RecomputeMesh()
	}
	return pending
}
