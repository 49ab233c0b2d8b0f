package sculpt

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"voxelsculpt.ai/internal/sim/grid"
)

// Sphere applies t to every voxel whose center is strictly closer than radius to center,
// across all chunks the sphere overlaps. Returns the number of voxels changed.
func Sphere(g *grid.Grid, center mgl32.Vec3, radius float32, t Tool) int {
	if radius <= 0 {
		return 0
	}
	lo, hi, ok := voxelBounds(g, center, radius)
	if !ok {
		return 0
	}
	r2 := radius * radius
	changed := 0
	for gx := lo[0]; gx <= hi[0]; gx++ {
		for gy := lo[1]; gy <= hi[1]; gy++ {
			for gz := lo[2]; gz <= hi[2]; gz++ {
				if g.VoxelCenter(gx, gy, gz).Sub(center).LenSqr() >= r2 {
					continue
				}
				c := g.Chunk(gx/grid.Size, gy/grid.Size, gz/grid.Size)
				if Apply(c, gx%grid.Size, gy%grid.Size, gz%grid.Size, t) {
					changed++
				}
			}
		}
	}
	return changed
}

// voxelBounds clamps the sphere's bounding box to grid-global voxel coordinates.
// ok is false when the box misses the grid entirely.
func voxelBounds(g *grid.Grid, center mgl32.Vec3, radius float32) (lo, hi [3]int, ok bool) {
	size := g.VoxelSize()
	origin := g.Origin()
	dims := g.Dims()
	for a := 0; a < 3; a++ {
		n := dims[a] * grid.Size
		l := int(math.Floor(float64((center[a] - radius - origin[a]) / size)))
		h := int(math.Floor(float64((center[a] + radius - origin[a]) / size)))
		if h < 0 || l >= n {
			return lo, hi, false
		}
		lo[a] = max(l, 0)
		hi[a] = min(h, n-1)
	}
	return lo, hi, true
}
