package tuning

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxelsculpt.ai/internal/protocol"
	"voxelsculpt.ai/internal/sim/grid"
	"voxelsculpt.ai/internal/sim/voxel"
)

// GridConfig is the grid a fresh session starts with. workers <= 0 keeps the tuned
// value, which itself defaults to the CPU count.
func (t Tuning) GridConfig(workers int) (grid.Config, error) {
	palette, err := voxel.NewPalette(t.Palette)
	if err != nil {
		return grid.Config{}, err
	}
	cfg := grid.Config{
		VoxelSize: t.Grid.VoxelSize,
		Workers:   t.Grid.Workers,
		Palette:   palette,
	}
	copy(cfg.Dims[:], t.Grid.Dims)
	if len(t.Grid.Origin) == 3 {
		cfg.Origin = mgl32.Vec3{t.Grid.Origin[0], t.Grid.Origin[1], t.Grid.Origin[2]}
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	return cfg, nil
}

// SceneEdit is the SHAPE edit that builds the starting scene. It goes through the edit
// log like any other edit, so a replay from an empty grid reproduces it.
func (t Tuning) SceneEdit() protocol.EditMsg {
	shape := t.Scene.Shape
	if shape == "" {
		shape = "speckled"
	}
	return protocol.EditMsg{
		Type:            protocol.TypeEdit,
		ProtocolVersion: protocol.Version,
		ID:              "scene",
		Op:              protocol.OpShape,
		Shape:           shape,
		Material:        t.Scene.Material,
		Seed:            t.Scene.Seed,
		Materials:       t.Scene.Materials,
	}
}
