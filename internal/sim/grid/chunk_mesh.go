package grid

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxelsculpt.ai/internal/sim/voxel"
)

// Mesh is the renderer hand-off for one chunk. Positions are chunk-local (add Origin for
// world space). Every four vertices form one quad; Triangles fans each quad as
// (0,1,2) (0,2,3).
type Mesh struct {
	Vertices  []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Triangles []uint32
}

func (m Mesh) Quads() int { return len(m.Vertices) / 4 }

// Mesh returns the geometry built by the last RecomputeMesh. The slices are replaced,
// never mutated, by later rebuilds, so a caller may keep them.
func (c *Chunk) Mesh() Mesh { return c.mesh }

// RecomputeMesh rebuilds the chunk geometry, emitting one quad for every face of a solid
// voxel whose neighbour is empty or lies past the edge of the grid.
//
// Reads the boundary voxels of neighbouring chunks; writes only this chunk.
func (c *Chunk) RecomputeMesh() {
	size := c.grid.voxelSize
	palette := c.grid.palette

	// Size the buffers from the previous build; edits rarely change the face count much.
	faces := c.mesh.Quads()
	m := Mesh{
		Vertices: make([]mgl32.Vec3, 0, faces*4),
		Normals:  make([]mgl32.Vec3, 0, faces*4),
		UVs:      make([]mgl32.Vec2, 0, faces*4),
	}

	for x := 0; x < Size; x++ {
		for y := 0; y < Size; y++ {
			for z := 0; z < Size; z++ {
				v := c.voxels[index(x, y, z)]
				if !v.Solid() {
					continue
				}
				base := mgl32.Vec3{float32(x), float32(y), float32(z)}
				uv := palette.UV(v).Quad()
				for _, d := range voxel.Directions {
					if c.neighbourSolid(x, y, z, d) {
						continue
					}
					normal := d.Normal()
					for _, corner := range d.Corners() {
						m.Vertices = append(m.Vertices, base.Add(corner).Mul(size))
						m.Normals = append(m.Normals, normal)
					}
					m.UVs = append(m.UVs, uv[:]...)
				}
			}
		}
	}

	m.Triangles = make([]uint32, 0, len(m.Vertices)/4*6)
	for i := uint32(0); i < uint32(len(m.Vertices)); i += 4 {
		m.Triangles = append(m.Triangles, i, i+1, i+2, i, i+2, i+3)
	}

	c.mesh = m
	c.stale = false
	c.revision++
}

// neighbourSolid tests the voxel one step from (x,y,z) along d, crossing into the
// adjacent chunk when needed. Past the edge of the grid counts as empty.
func (c *Chunk) neighbourSolid(x, y, z int, d voxel.Direction) bool {
	dx, dy, dz := d.Offset()
	nx, ny, nz := x+dx, y+dy, z+dz
	if InRange(nx, ny, nz) {
		return c.voxels[index(nx, ny, nz)].Solid()
	}
	n := c.grid.Chunk(c.X+dx, c.Y+dy, c.Z+dz)
	if n == nil {
		return false
	}
	return n.voxels[index(wrap(nx), wrap(ny), wrap(nz))].Solid()
}

func wrap(i int) int {
	switch {
	case i < 0:
		return i + Size
	case i >= Size:
		return i - Size
	}
	return i
}
