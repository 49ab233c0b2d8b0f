package export

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"

	"voxelsculpt.ai/internal/sim/grid"
	"voxelsculpt.ai/internal/sim/voxel"
)

func TestWriteGLB_OneNodePerNonEmptyChunk(t *testing.T) {
	g, err := grid.New(grid.Config{Dims: [3]int{2, 1, 1}, VoxelSize: 1, Workers: 1})
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	defer g.Close()
	// A single voxel in the second chunk.
	c := g.Chunk(1, 0, 0)
	c.ModifyVoxel(0, 0, 0, voxel.FromMaterial(2))
	g.DrainDirtyQueue()

	path := filepath.Join(t.TempDir(), "scene.glb")
	if err := WriteGLB(path, g); err != nil {
		t.Fatalf("WriteGLB: %v", err)
	}
	doc, err := gltf.Open(path)
	if err != nil {
		t.Fatalf("gltf.Open: %v", err)
	}
	if len(doc.Nodes) != 1 || len(doc.Meshes) != 1 {
		t.Fatalf("nodes=%d meshes=%d want 1/1", len(doc.Nodes), len(doc.Meshes))
	}
	if doc.Meshes[0].Name != "chunk_1_0_0" {
		t.Fatalf("mesh name: %q", doc.Meshes[0].Name)
	}
	prim := doc.Meshes[0].Primitives[0]
	pos := doc.Accessors[prim.Attributes[gltf.POSITION]]
	if pos.Count != 24 {
		t.Fatalf("positions: got %d want 24", pos.Count)
	}
	// One isolated voxel at local (0,0,0) of chunk x=1 spans x in [8,9].
	if len(pos.Min) != 3 || pos.Min[0] != grid.Size || pos.Max[0] != grid.Size+1 {
		t.Fatalf("position bounds: min=%v max=%v", pos.Min, pos.Max)
	}
	if idx := doc.Accessors[*prim.Indices]; idx.Count != 36 {
		t.Fatalf("indices: got %d want 36", idx.Count)
	}
	if _, ok := prim.Attributes[gltf.TEXCOORD_0]; !ok {
		t.Fatalf("missing TEXCOORD_0")
	}
	if nodes := doc.Scenes[0].Nodes; len(nodes) != 1 || nodes[0] != 0 {
		t.Fatalf("scene nodes: %v", nodes)
	}
	if m := doc.Nodes[0].Mesh; m == nil || *m != 0 {
		t.Fatalf("node mesh: %v", m)
	}
	if prim.Material == nil || *prim.Material != 0 {
		t.Fatalf("primitive material: %v", prim.Material)
	}
	pbr := doc.Materials[0].PBRMetallicRoughness
	if pbr == nil || pbr.BaseColorFactorOrDefault() != [4]float64{1, 1, 1, 1} || pbr.RoughnessFactorOrDefault() != 1 {
		t.Fatalf("material: %+v", pbr)
	}
}

func TestDocument_EmptyGrid(t *testing.T) {
	g, err := grid.New(grid.Config{Dims: [3]int{1, 1, 1}, VoxelSize: 1, Workers: 1})
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	defer g.Close()
	if _, err := Document(g, "test"); !errors.Is(err, ErrEmpty) {
		t.Fatalf("got %v want ErrEmpty", err)
	}
}
