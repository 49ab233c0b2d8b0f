package grid

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Digest hashes the chunk geometry. Equal digests mean byte-identical buffers.
func (c *Chunk) Digest() uint64 {
	if c.digestRev == c.revision+1 {
		return c.digest
	}
	h := xxhash.New()
	var b [4]byte
	put := func(f float32) {
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
		_, _ = h.Write(b[:])
	}
	for _, v := range c.mesh.Vertices {
		put(v[0])
		put(v[1])
		put(v[2])
	}
	for _, n := range c.mesh.Normals {
		put(n[0])
		put(n[1])
		put(n[2])
	}
	for _, uv := range c.mesh.UVs {
		put(uv[0])
		put(uv[1])
	}
	for _, t := range c.mesh.Triangles {
		binary.LittleEndian.PutUint32(b[:], t)
		_, _ = h.Write(b[:])
	}
	c.digest, c.digestRev = h.Sum64(), c.revision+1
	return c.digest
}

// Digest combines every chunk's geometry digest and the voxel size, in flattened order.
func (g *Grid) Digest() string {
	h := xxhash.New()
	var b [8]byte
	binary.LittleEndian.PutUint32(b[:4], math.Float32bits(g.voxelSize))
	_, _ = h.Write(b[:4])
	for _, c := range g.chunks {
		binary.LittleEndian.PutUint64(b[:], c.Digest())
		_, _ = h.Write(b[:])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
