package grid

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxelsculpt.ai/internal/sim/voxel"
)

// Cell is the voxel a Shape is evaluated for.
type Cell struct {
	GX, GY, GZ int        // grid-global voxel coordinates
	Center     mgl32.Vec3 // world-space voxel center
}

// Shape is a pure membership function: the value to store for a cell (voxel.Empty when
// outside).
type Shape func(c Cell) voxel.Value

// InitShape overwrites every voxel from s and bulk-rebuilds the grid.
func (g *Grid) InitShape(s Shape) {
	for _, c := range g.chunks {
		for x := 0; x < Size; x++ {
			for y := 0; y < Size; y++ {
				for z := 0; z < Size; z++ {
					gx, gy, gz := c.X*Size+x, c.Y*Size+y, c.Z*Size+z
					c.voxels[index(x, y, z)] = s(Cell{GX: gx, GY: gy, GZ: gz, Center: g.VoxelCenter(gx, gy, gz)})
				}
			}
		}
		c.recount()
		c.stale = true
	}
	g.RecomputeChunks()
}

// ResetShape restores the standard voxel size, then behaves as InitShape.
func (g *Grid) ResetShape(s Shape) {
	g.voxelSize = g.cfg.VoxelSize
	g.InitShape(s)
}

// InitCube resets the voxel size to the standard size and fills the half-open box
// [lo, hi) with v.
func (g *Grid) InitCube(lo, hi mgl32.Vec3, v voxel.Value) {
	g.ResetShape(Box(lo, hi, v))
}

// InitSphere resets the voxel size to the standard size and fills every voxel whose
// center is strictly closer than radius to center.
func (g *Grid) InitSphere(center mgl32.Vec3, radius float32, v voxel.Value) {
	g.ResetShape(Ball(center, radius, v))
}

// ClearChunks resets the voxel size to the standard size and empties the grid.
func (g *Grid) ClearChunks() {
	g.ResetShape(Clear())
}

// DefaultCube is the central box spanning the middle half of the grid's chunks per axis.
func (g *Grid) DefaultCube() (lo, hi mgl32.Vec3) {
	step := float32(Size) * g.cfg.VoxelSize
	for a := 0; a < 3; a++ {
		n := g.dims[a]
		lo[a] = g.origin[a] + float32(n/4)*step
		hi[a] = g.origin[a] + float32(n-n/4)*step
	}
	return lo, hi
}

// DefaultSphere is centered in the grid with a radius of a third of the shortest side.
func (g *Grid) DefaultSphere() (center mgl32.Vec3, radius float32) {
	step := float32(Size) * g.cfg.VoxelSize
	ext := mgl32.Vec3{float32(g.dims[0]) * step, float32(g.dims[1]) * step, float32(g.dims[2]) * step}
	shortest := min(ext[0], ext[1], ext[2])
	return g.origin.Add(ext.Mul(0.5)), shortest / 3
}

func Box(lo, hi mgl32.Vec3, v voxel.Value) Shape {
	return func(c Cell) voxel.Value {
		p := c.Center
		if p[0] >= lo[0] && p[1] >= lo[1] && p[2] >= lo[2] && p[0] < hi[0] && p[1] < hi[1] && p[2] < hi[2] {
			return v
		}
		return voxel.Empty
	}
}

func Ball(center mgl32.Vec3, radius float32, v voxel.Value) Shape {
	r2 := radius * radius
	return func(c Cell) voxel.Value {
		if c.Center.Sub(center).LenSqr() < r2 {
			return v
		}
		return voxel.Empty
	}
}

func Clear() Shape {
	return func(Cell) voxel.Value { return voxel.Empty }
}

// Speckled recolours the solid cells of inner with a material picked per voxel from
// [0, materials) by a seeded position hash. Same seed, same pattern.
func Speckled(inner Shape, seed int64, materials int) Shape {
	if materials < 1 {
		materials = 1
	}
	return func(c Cell) voxel.Value {
		if !inner(c).Solid() {
			return voxel.Empty
		}
		h := hash3(seed, c.GX, c.GY, c.GZ)
		return voxel.FromMaterial(int(h % uint64(materials)))
	}
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}
