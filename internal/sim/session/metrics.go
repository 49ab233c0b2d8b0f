package session

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

type Metrics struct {
	Tick          uint64      `json:"tick"`
	Clients       int         `json:"clients"`
	Chunks        int         `json:"chunks"`
	SolidVoxels   int         `json:"solid_voxels"`
	Rebuilt       int         `json:"rebuilt"`
	Digest        string      `json:"digest"`
	PendingMeshes int         `json:"pending_meshes"`
	VoxelSize     float32     `json:"voxel_size"`
	QueueDepths   QueueDepths `json:"queue_depths"`
	StepMS        float64     `json:"step_ms"`
}

// Metrics returns the figures recorded at the end of the last tick. Safe from any
// goroutine.
func (s *Session) Metrics() Metrics {
	if s == nil {
		return Metrics{}
	}
	m, ok := s.metrics.Load().(Metrics)
	if !ok {
		return Metrics{}
	}
	return m
}

func (s *Session) storeMetrics(tick uint64, rebuilt int, digest string, stepMS float64) {
	s.metrics.Store(Metrics{
		Tick:          tick,
		Clients:       len(s.clients),
		Chunks:        s.grid.Len(),
		SolidVoxels:   s.grid.SolidCount(),
		Rebuilt:       rebuilt,
		Digest:        digest,
		PendingMeshes: s.pendingMeshes(),
		VoxelSize:     s.grid.VoxelSize(),
		QueueDepths: QueueDepths{
			Inbox: len(s.inbox),
			Join:  len(s.join),
			Leave: len(s.leave),
		},
		StepMS: stepMS,
	})
}
