// Package export writes grid geometry to interchange formats.
package export

import (
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"voxelsculpt.ai/internal/sim/grid"
)

var ErrEmpty = errors.New("export: grid has no geometry")

// Document builds a glTF document with one node per non-empty chunk. Chunk meshes are
// chunk-local, so positions are shifted by the chunk origin into grid space. TEXCOORD_0
// carries the palette atlas coordinates.
func Document(g *grid.Grid, generator string) (*gltf.Document, error) {
	doc := gltf.NewDocument()
	doc.Asset.Generator = generator

	doc.Materials = []*gltf.Material{{
		Name: "palette",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{1, 1, 1, 1},
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(1),
		},
		AlphaMode: gltf.AlphaOpaque,
	}}

	for _, c := range g.Chunks() {
		if c.Empty() {
			continue
		}
		m := c.Mesh()
		origin := c.Origin()

		positions := make([][3]float32, len(m.Vertices))
		for i, v := range m.Vertices {
			positions[i] = v.Add(origin)
		}
		normals := make([][3]float32, len(m.Normals))
		for i, n := range m.Normals {
			normals[i] = n
		}
		uvs := make([][2]float32, len(m.UVs))
		for i, uv := range m.UVs {
			uvs[i] = uv
		}
		indices := make([]uint32, len(m.Triangles))
		copy(indices, m.Triangles)

		prim := &gltf.Primitive{
			Attributes: gltf.PrimitiveAttributes{
				gltf.POSITION:   modeler.WritePosition(doc, positions),
				gltf.NORMAL:     modeler.WriteNormal(doc, normals),
				gltf.TEXCOORD_0: modeler.WriteTextureCoord(doc, uvs),
			},
			Indices:  gltf.Index(modeler.WriteIndices(doc, indices)),
			Material: gltf.Index(0),
		}
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{
			Name:       fmt.Sprintf("chunk_%d_%d_%d", c.X, c.Y, c.Z),
			Primitives: []*gltf.Primitive{prim},
		})
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name: fmt.Sprintf("chunk_%d_%d_%d", c.X, c.Y, c.Z),
			Mesh: gltf.Index(len(doc.Meshes) - 1),
		})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
	}
	if len(doc.Meshes) == 0 {
		return nil, ErrEmpty
	}
	return doc, nil
}

// WriteGLB saves the grid's current geometry as a binary glTF file.
func WriteGLB(path string, g *grid.Grid) error {
	doc, err := Document(g, "voxelsculpt")
	if err != nil {
		return err
	}
	return gltf.SaveBinary(doc, path)
}
