package grid

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/go-gl/mathgl/mgl32"

	"voxelsculpt.ai/internal/sim/voxel"
)

// Grid owns a fixed 3D array of chunks and every piece of state they share.
//
// A Grid has a single writer: the goroutine that mutates voxels also drains the dirty
// queue and starts bulk rebuilds. Only RecomputeChunks fans out, and it joins before
// returning.
type Grid struct {
	cfg Config

	dims      [3]int
	voxelSize float32
	origin    mgl32.Vec3
	palette   *voxel.Palette

	// Flattened x-major: i = x*Ny*Nz + y*Nz + z.
	chunks []*Chunk

	dirty dirtySet

	workers int
	pool    worker.DynamicWorkerPool
}

func New(cfg Config) (*Grid, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	g := &Grid{
		cfg:       cfg,
		dims:      cfg.Dims,
		voxelSize: cfg.VoxelSize,
		origin:    cfg.Origin,
		palette:   cfg.Palette,
		chunks:    make([]*Chunk, cfg.Dims[0]*cfg.Dims[1]*cfg.Dims[2]),
		dirty:     newDirtySet(),
		workers:   cfg.Workers,
	}
	for i := range g.chunks {
		x, y, z := g.coords(i)
		g.chunks[i] = newChunk(g, x, y, z)
	}
	// Queue sized so one bulk rebuild never waits on submission.
	g.pool = worker.NewDynamicWorkerPool(g.workers, 2*g.workers, 5*time.Second)
	return g, nil
}

// Close stops the worker pool. Bulk rebuilds after Close run on the calling goroutine.
func (g *Grid) Close() {
	if g.pool != nil {
		g.pool.Stop()
		g.pool = nil
	}
}

// InBounds reports whether chunk coordinates address a chunk of this grid.
func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.dims[0] && y < g.dims[1] && z < g.dims[2]
}

// Chunk returns the chunk at chunk coordinates, or nil past the grid edge.
func (g *Grid) Chunk(x, y, z int) *Chunk {
	if !g.InBounds(x, y, z) {
		return nil
	}
	return g.chunks[g.flatten(x, y, z)]
}

// Chunks returns every chunk in flattened order.
func (g *Grid) Chunks() []*Chunk {
	out := make([]*Chunk, len(g.chunks))
	copy(out, g.chunks)
	return out
}

func (g *Grid) Len() int { return len(g.chunks) }

func (g *Grid) flatten(x, y, z int) int {
	return x*g.dims[1]*g.dims[2] + y*g.dims[2] + z
}

func (g *Grid) coords(i int) (x, y, z int) {
	ny, nz := g.dims[1], g.dims[2]
	return i / (ny * nz), (i / nz) % ny, i % nz
}

func (g *Grid) Dims() [3]int               { return g.dims }
func (g *Grid) VoxelSize() float32         { return g.voxelSize }
func (g *Grid) StandardVoxelSize() float32 { return g.cfg.VoxelSize }
func (g *Grid) Origin() mgl32.Vec3         { return g.origin }
func (g *Grid) Palette() *voxel.Palette    { return g.palette }
func (g *Grid) Workers() int               { return g.workers }

// Extent is the world-space size of the whole grid at the current voxel size.
func (g *Grid) Extent() mgl32.Vec3 {
	step := float32(Size) * g.voxelSize
	return mgl32.Vec3{float32(g.dims[0]) * step, float32(g.dims[1]) * step, float32(g.dims[2]) * step}
}

func (g *Grid) Center() mgl32.Vec3 {
	return g.origin.Add(g.Extent().Mul(0.5))
}

// ChunkAt returns the chunk whose volume contains the world position, or nil.
func (g *Grid) ChunkAt(p mgl32.Vec3) *Chunk {
	rel := p.Sub(g.origin).Mul(1 / (float32(Size) * g.voxelSize))
	return g.Chunk(toCoord(rel.X()), toCoord(rel.Y()), toCoord(rel.Z()))
}

// VoxelAt reads a voxel by grid-global voxel coordinates; out of range reads as empty.
func (g *Grid) VoxelAt(gx, gy, gz int) voxel.Value {
	if gx < 0 || gy < 0 || gz < 0 {
		return voxel.Empty
	}
	c := g.Chunk(gx/Size, gy/Size, gz/Size)
	if c == nil {
		return voxel.Empty
	}
	return c.Voxel(gx%Size, gy%Size, gz%Size)
}

// VoxelCenter is the world-space center of a grid-global voxel at the current voxel size.
func (g *Grid) VoxelCenter(gx, gy, gz int) mgl32.Vec3 {
	s := g.voxelSize
	return g.origin.Add(mgl32.Vec3{
		(float32(gx) + 0.5) * s,
		(float32(gy) + 0.5) * s,
		(float32(gz) + 0.5) * s,
	})
}

// SolidCount sums solid voxels across all chunks.
func (g *Grid) SolidCount() int {
	n := 0
	for _, c := range g.chunks {
		n += c.solid
	}
	return n
}

// Rescale changes the live voxel size. Every vertex position depends on it, so the whole
// grid is rebuilt before returning.
func (g *Grid) Rescale(size float32) error {
	if !ValidVoxelSize(size) {
		return fmt.Errorf("rescale to %g: %w", size, ErrVoxelSize)
	}
	g.voxelSize = size
	g.RecomputeChunks()
	return nil
}
