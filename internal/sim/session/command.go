package session

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"voxelsculpt.ai/internal/protocol"
	"voxelsculpt.ai/internal/sim/grid"
	"voxelsculpt.ai/internal/sim/sculpt"
	"voxelsculpt.ai/internal/sim/voxel"
)

// Command is one parsed edit: Brush, Cut, Shape or Rescale.
type Command interface {
	apply(g *grid.Grid, cfg Config) Outcome
}

// Outcome reports what a command did. Bulk is set when the whole grid was rebuilt.
type Outcome struct {
	Changed int
	Bulk    bool
	Code    string
	Reason  string
}

type Brush struct {
	Center mgl32.Vec3
	Radius float32
	Tool   sculpt.Tool
}

type Cut struct {
	Probe sculpt.Probe
	Depth int
}

type Shape struct {
	Name      string
	Material  int
	Seed      int64
	Materials int
}

type Rescale struct {
	VoxelSize float32
}

// ParseEdit validates an EDIT message against a palette of the given size. It only looks
// at the message, so transports call it before queueing to reject bad edits early.
func ParseEdit(e protocol.EditMsg, materials int) (Command, error) {
	checkMaterial := func(m int) error {
		if m < 0 || m >= materials {
			return fmt.Errorf("material %d outside palette of %d", m, materials)
		}
		return nil
	}
	switch e.Op {
	case protocol.OpBrush:
		tool, err := sculpt.ParseTool(e.Tool, e.Material)
		if err != nil {
			return nil, err
		}
		if _, ok := tool.(sculpt.Remove); !ok {
			if err := checkMaterial(e.Material); err != nil {
				return nil, err
			}
		}
		if !(e.Radius > 0) {
			return nil, errors.New("radius must be > 0")
		}
		return Brush{Center: mgl32.Vec3(e.Center), Radius: e.Radius, Tool: tool}, nil

	case protocol.OpCut:
		fwd, up := mgl32.Vec3(e.Forward), mgl32.Vec3(e.Up)
		if fwd.LenSqr() == 0 || up.LenSqr() == 0 {
			return nil, errors.New("forward and up must be non-zero")
		}
		if fwd.Normalize().Cross(up.Normalize()).LenSqr() < 1e-6 {
			return nil, errors.New("forward and up must not be parallel")
		}
		if e.HalfW < 0 || e.HalfH < 0 || e.Depth < 0 {
			return nil, errors.New("negative probe extent")
		}
		return Cut{Probe: sculpt.NewBoxProbe(mgl32.Vec3(e.Face), fwd, up, e.HalfW, e.HalfH), Depth: e.Depth}, nil

	case protocol.OpShape:
		switch e.Shape {
		case "cube", "sphere", "speckled", "clear":
		default:
			return nil, fmt.Errorf("unknown shape %q", e.Shape)
		}
		if err := checkMaterial(e.Material); err != nil {
			return nil, err
		}
		if e.Materials < 0 || e.Materials > materials {
			return nil, fmt.Errorf("materials %d outside palette of %d", e.Materials, materials)
		}
		n := e.Materials
		if n == 0 {
			n = materials
		}
		return Shape{Name: e.Shape, Material: e.Material, Seed: e.Seed, Materials: n}, nil

	case protocol.OpRescale:
		if !(e.VoxelSize > 0) {
			return nil, grid.ErrVoxelSize
		}
		return Rescale{VoxelSize: e.VoxelSize}, nil
	}
	return nil, fmt.Errorf("unknown op %q", e.Op)
}

func (b Brush) apply(g *grid.Grid, _ Config) Outcome {
	lo := b.Center.Sub(mgl32.Vec3{b.Radius, b.Radius, b.Radius})
	hi := b.Center.Add(mgl32.Vec3{b.Radius, b.Radius, b.Radius})
	if !overlapsGrid(g, lo, hi) {
		return Outcome{Code: protocol.ErrOutOfBounds, Reason: "brush misses the grid"}
	}
	return Outcome{Changed: sculpt.Sphere(g, b.Center, b.Radius, b.Tool)}
}

func (c Cut) apply(g *grid.Grid, cfg Config) Outcome {
	depth := c.Depth
	if depth == 0 {
		depth = cfg.CutDepth
	}
	return Outcome{Changed: sculpt.Cut(g, c.Probe, depth)}
}

func (s Shape) apply(g *grid.Grid, _ Config) Outcome {
	v := voxel.FromMaterial(s.Material)
	switch s.Name {
	case "cube":
		lo, hi := g.DefaultCube()
		g.InitCube(lo, hi, v)
	case "sphere":
		center, radius := g.DefaultSphere()
		g.InitSphere(center, radius, v)
	case "speckled":
		lo, hi := g.DefaultCube()
		g.ResetShape(grid.Speckled(grid.Box(lo, hi, v), s.Seed, s.Materials))
	case "clear":
		g.ClearChunks()
	}
	return Outcome{Changed: g.SolidCount(), Bulk: true}
}

func (r Rescale) apply(g *grid.Grid, _ Config) Outcome {
	if err := g.Rescale(r.VoxelSize); err != nil {
		return Outcome{Code: protocol.ErrBadRequest, Reason: err.Error()}
	}
	return Outcome{Bulk: true}
}

func overlapsGrid(g *grid.Grid, lo, hi mgl32.Vec3) bool {
	gmin := g.Origin()
	gmax := gmin.Add(g.Extent())
	for a := 0; a < 3; a++ {
		if hi[a] < gmin[a] || lo[a] > gmax[a] {
			return false
		}
	}
	return true
}
