package grid

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"voxelsculpt.ai/internal/sim/voxel"
)

// Size is the chunk edge length in voxels.
const Size = 8

const volume = Size * Size * Size

// Chunk owns a Size³ block of voxels and the geometry derived from them.
// Geometry is a function of the chunk's voxels plus the boundary voxels of its six
// face neighbours; it is stale from any mutation until the next RecomputeMesh.
type Chunk struct {
	X, Y, Z int

	grid   *Grid
	voxels [volume]voxel.Value
	solid  int

	mesh     Mesh
	stale    bool
	revision uint64

	// Cached Digest, valid while digestRev == revision+1.
	digest    uint64
	digestRev uint64
}

func newChunk(g *Grid, x, y, z int) *Chunk {
	return &Chunk{X: x, Y: y, Z: z, grid: g, stale: true}
}

func index(x, y, z int) int {
	return z + Size*(y+Size*x)
}

// InRange reports whether a local coordinate addresses a voxel inside a chunk.
func InRange(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < Size && y < Size && z < Size
}

// Voxel reads a local voxel. Coordinates must satisfy InRange.
func (c *Chunk) Voxel(x, y, z int) voxel.Value {
	return c.voxels[index(x, y, z)]
}

// SolidCount is the number of non-empty voxels in the chunk.
func (c *Chunk) SolidCount() int { return c.solid }

// Stale reports whether the geometry is out of date with respect to a mutation.
func (c *Chunk) Stale() bool { return c.stale }

// Revision counts completed RecomputeMesh runs.
func (c *Chunk) Revision() uint64 { return c.revision }

// Empty reports that the chunk has no visible geometry.
func (c *Chunk) Empty() bool { return len(c.mesh.Vertices) == 0 }

// Origin is the world position of the chunk's (0,0,0) voxel corner at the current voxel size.
func (c *Chunk) Origin() mgl32.Vec3 {
	step := float32(Size) * c.grid.voxelSize
	return c.grid.origin.Add(mgl32.Vec3{float32(c.X) * step, float32(c.Y) * step, float32(c.Z) * step})
}

// Voxels returns a copy of the voxel array in x-major order (index z + Size*(y + Size*x)).
func (c *Chunk) Voxels() []voxel.Value {
	out := make([]voxel.Value, volume)
	copy(out, c.voxels[:])
	return out
}

// Load replaces the chunk contents without neighbour propagation. Used for bulk paths
// (snapshot import) that finish with RecomputeChunks.
func (c *Chunk) Load(vals []voxel.Value) error {
	if len(vals) != volume {
		return fmt.Errorf("chunk %d,%d,%d: got %d voxels want %d", c.X, c.Y, c.Z, len(vals), volume)
	}
	copy(c.voxels[:], vals)
	c.recount()
	c.stale = true
	return nil
}

func (c *Chunk) recount() {
	n := 0
	for _, v := range c.voxels {
		if v.Solid() {
			n++
		}
	}
	c.solid = n
}

func (c *Chunk) String() string {
	return fmt.Sprintf("chunk(%d,%d,%d)", c.X, c.Y, c.Z)
}
