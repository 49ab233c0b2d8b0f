package grid

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"voxelsculpt.ai/internal/sim/voxel"
)

// ModifyVoxel writes one voxel and queues this chunk for rebuild, along with every
// existing chunk touched by the voxel's 3×3×3 neighbourhood. A voxel on a corner
// reaches up to seven neighbour chunks. Writing the current value is a no-op.
//
// Reports whether the voxel changed.
func (c *Chunk) ModifyVoxel(x, y, z int, v voxel.Value) bool {
	i := index(x, y, z)
	old := c.voxels[i]
	if old == v {
		return false
	}
	c.voxels[i] = v
	switch {
	case !old.Solid() && v.Solid():
		c.solid++
	case old.Solid() && !v.Solid():
		c.solid--
	}

	g := c.grid
	g.EnqueueChunkToUpdate(c)
	for ox := -1; ox <= 1; ox++ {
		if !crosses(x, ox) {
			continue
		}
		for oy := -1; oy <= 1; oy++ {
			if !crosses(y, oy) {
				continue
			}
			for oz := -1; oz <= 1; oz++ {
				if !crosses(z, oz) || (ox == 0 && oy == 0 && oz == 0) {
					continue
				}
				if n := g.Chunk(c.X+ox, c.Y+oy, c.Z+oz); n != nil {
					g.EnqueueChunkToUpdate(n)
				}
			}
		}
	}
	return true
}

// crosses reports whether stepping o (-1, 0, +1) from local coordinate i leaves the chunk
// on that axis, or o is 0.
func crosses(i, o int) bool {
	switch o {
	case -1:
		return i == 0
	case 1:
		return i == Size-1
	}
	return true
}

// ModifyColour repaints a solid voxel and queues only this chunk: occupancy, and so every
// neighbour's face culling, is unchanged. Empty voxels and voxels already holding the
// material are left alone.
func (c *Chunk) ModifyColour(x, y, z int, material int) bool {
	i := index(x, y, z)
	v := voxel.FromMaterial(material)
	if !c.voxels[i].Solid() || c.voxels[i] == v {
		return false
	}
	c.voxels[i] = v
	c.grid.EnqueueChunkToUpdate(c)
	return true
}

// VectorToCoord maps a world position to local voxel coordinates. A negative component
// becomes -1; components past the far edge are returned as-is. Callers check InRange
// before indexing.
func (c *Chunk) VectorToCoord(p mgl32.Vec3) (i, j, k int) {
	rel := p.Sub(c.Origin()).Mul(1 / c.grid.voxelSize)
	return toCoord(rel.X()), toCoord(rel.Y()), toCoord(rel.Z())
}

func toCoord(f float32) int {
	if f < 0 {
		return -1
	}
	return int(math.Floor(float64(f)))
}
