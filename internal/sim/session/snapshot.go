package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"voxelsculpt.ai/internal/persistence/snapshot"
	"voxelsculpt.ai/internal/sim/encoding"
	"voxelsculpt.ai/internal/sim/grid"
	"voxelsculpt.ai/internal/sim/voxel"
)

// ExportSnapshot captures the voxel state and grid parameters. Must be called from the
// session goroutine or while the session is stopped.
func (s *Session) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	g := s.grid
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:   snapshot.Version,
			SessionID: s.cfg.ID,
			Tick:      nowTick,
		},
		Dims:               g.Dims(),
		ChunkSize:          grid.Size,
		VoxelSize:          g.VoxelSize(),
		StandardVoxelSize:  g.StandardVoxelSize(),
		Origin:             g.Origin(),
		TickRate:           s.cfg.TickRateHz,
		SnapshotEveryTicks: s.cfg.SnapshotEveryTicks,
		Digest:             g.Digest(),
	}
	for _, e := range g.Palette().Entries() {
		snap.Palette = append(snap.Palette, snapshot.PaletteEntryV1{U0: e.U0, U1: e.U1})
	}
	for _, c := range g.Chunks() {
		if c.SolidCount() == 0 {
			continue
		}
		snap.Chunks = append(snap.Chunks, snapshot.ChunkV1{
			X: c.X, Y: c.Y, Z: c.Z,
			Voxels: encoding.AppendRLE(nil, c.Voxels()),
		})
	}
	return snap
}

// ImportSnapshot replaces the grid's voxels with the snapshot, restores its voxel size and
// bulk-rebuilds. It sets the session's tick to snapshotTick+1 (the next tick to run).
//
// This must be called only when the session is stopped or from the session goroutine.
func (s *Session) ImportSnapshot(snap snapshot.SnapshotV1) error {
	g := s.grid
	if snap.ChunkSize != grid.Size {
		return fmt.Errorf("snapshot chunk size %d, grid uses %d", snap.ChunkSize, grid.Size)
	}
	if snap.Dims != g.Dims() {
		return fmt.Errorf("snapshot dims %v do not match grid %v", snap.Dims, g.Dims())
	}
	if !grid.ValidVoxelSize(snap.VoxelSize) {
		return fmt.Errorf("snapshot voxel size %g: %w", snap.VoxelSize, grid.ErrVoxelSize)
	}

	vals := make(map[[3]int][]voxel.Value, len(snap.Chunks))
	for _, ch := range snap.Chunks {
		if !g.InBounds(ch.X, ch.Y, ch.Z) {
			return fmt.Errorf("snapshot chunk (%d,%d,%d) out of bounds", ch.X, ch.Y, ch.Z)
		}
		v, err := encoding.DecodeRLE(ch.Voxels, grid.Size*grid.Size*grid.Size)
		if err != nil {
			return fmt.Errorf("snapshot chunk (%d,%d,%d): %w", ch.X, ch.Y, ch.Z, err)
		}
		vals[[3]int{ch.X, ch.Y, ch.Z}] = v
	}

	empty := make([]voxel.Value, grid.Size*grid.Size*grid.Size)
	for _, c := range g.Chunks() {
		v, ok := vals[[3]int{c.X, c.Y, c.Z}]
		if !ok {
			v = empty
		}
		if err := c.Load(v); err != nil {
			return err
		}
	}
	if err := g.Rescale(snap.VoxelSize); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if snap.Digest != "" && snap.Digest != g.Digest() {
		// Palette or size config changed since the snapshot; voxels are still authoritative.
		s.logger.Printf("snapshot digest mismatch tick=%d snap=%s grid=%s", snap.Header.Tick, snap.Digest, g.Digest())
	}
	for _, cl := range s.clients {
		for i := range g.Chunks() {
			cl.pending[i] = struct{}{}
		}
	}
	s.tick.Store(snap.Header.Tick + 1)
	return nil
}

// GridConfig rebuilds the grid configuration a snapshot was taken with.
func GridConfig(snap snapshot.SnapshotV1, workers int) (grid.Config, error) {
	entries := make([]voxel.UVRange, 0, len(snap.Palette))
	for _, e := range snap.Palette {
		entries = append(entries, voxel.UVRange{U0: e.U0, U1: e.U1})
	}
	palette, err := voxel.NewPalette(entries)
	if err != nil {
		return grid.Config{}, fmt.Errorf("snapshot palette: %w", err)
	}
	return grid.Config{
		Dims:      snap.Dims,
		VoxelSize: snap.StandardVoxelSize,
		Origin:    mgl32.Vec3(snap.Origin),
		Workers:   workers,
		Palette:   palette,
	}, nil
}

type snapshotReq struct {
	Resp chan snapshotResp
}

type snapshotResp struct {
	Tick uint64
	Err  string
}

// RequestSnapshot asks the session goroutine to enqueue a snapshot.
// It is safe to call from other goroutines (e.g. HTTP handlers).
func (s *Session) RequestSnapshot(ctx context.Context) (tick uint64, err error) {
	resp := make(chan snapshotResp, 1)
	select {
	case s.admin <- snapshotReq{Resp: resp}:
	case <-s.stop:
		return 0, ErrStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case r := <-resp:
		if r.Err != "" {
			return r.Tick, errors.New(r.Err)
		}
		return r.Tick, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (s *Session) handleSnapshotRequests(reqs []snapshotReq) {
	if len(reqs) == 0 {
		return
	}
	cur := s.tick.Load()
	snapTick := uint64(0)
	if cur > 0 {
		snapTick = cur - 1
	}

	errStr := ""
	if s.snapshotSink == nil {
		errStr = "snapshot sink not configured"
	} else {
		snap := s.ExportSnapshot(snapTick)
		select {
		case s.snapshotSink <- snap:
		default:
			errStr = "snapshot sink backpressure"
		}
	}

	resp := snapshotResp{Tick: snapTick, Err: errStr}
	for _, r := range reqs {
		if r.Resp == nil {
			continue
		}
		select {
		case r.Resp <- resp:
		default:
			// Client timed out; don't block the session loop.
		}
	}
}
