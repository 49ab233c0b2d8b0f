// Package sculpt implements the editing tools that mutate a grid: a sphere brush that
// adds, removes or paints material, and a cutting probe that ray-marches through the
// volume. Tools only write voxels; the owner of the grid drains the dirty set afterwards.
package sculpt

import (
	"fmt"

	"voxelsculpt.ai/internal/sim/grid"
	"voxelsculpt.ai/internal/sim/voxel"
)

// Tool is one of Add, Remove or Paint.
type Tool interface {
	Name() string
	isTool()
}

// Add fills voxels with Material, replacing whatever was there.
type Add struct{ Material int }

// Remove empties voxels.
type Remove struct{}

// Paint recolours solid voxels; empty voxels stay empty.
type Paint struct{ Material int }

func (Add) Name() string    { return "add" }
func (Remove) Name() string { return "remove" }
func (Paint) Name() string  { return "paint" }

func (Add) isTool()    {}
func (Remove) isTool() {}
func (Paint) isTool()  {}

// ParseTool maps a wire name to a Tool.
func ParseTool(name string, material int) (Tool, error) {
	switch name {
	case "add":
		return Add{Material: material}, nil
	case "remove":
		return Remove{}, nil
	case "paint":
		return Paint{Material: material}, nil
	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

// Apply performs t on one chunk-local voxel and reports whether it changed.
func Apply(c *grid.Chunk, x, y, z int, t Tool) bool {
	switch t := t.(type) {
	case Add:
		return c.ModifyVoxel(x, y, z, voxel.FromMaterial(t.Material))
	case Remove:
		return c.ModifyVoxel(x, y, z, voxel.Empty)
	case Paint:
		return c.ModifyColour(x, y, z, t.Material)
	}
	return false
}
