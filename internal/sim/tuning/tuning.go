package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"voxelsculpt.ai/internal/sim/voxel"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	Grid   GridTuning   `yaml:"grid"`
	Sculpt SculptTuning `yaml:"sculpt"`
	Scene  SceneTuning  `yaml:"scene"`

	Palette []voxel.UVRange `yaml:"palette"`
}

type GridTuning struct {
	Dims      []int     `yaml:"dims"`
	VoxelSize float32   `yaml:"voxel_size"`
	Origin    []float32 `yaml:"origin"`
	Workers   int       `yaml:"workers"`
}

type SculptTuning struct {
	CutDepthVoxels int     `yaml:"cut_depth_voxels"`
	BrushRadius    float32 `yaml:"brush_radius"`
	BrushMaterial  int     `yaml:"brush_material"`
}

// SceneTuning picks the shape a fresh session starts with.
type SceneTuning struct {
	Shape     string `yaml:"shape"` // cube | sphere | speckled | clear
	Material  int    `yaml:"material"`
	Seed      int64  `yaml:"seed"`
	Materials int    `yaml:"materials"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         30,
		SnapshotEveryTicks: 3000,
		Grid: GridTuning{
			Dims:      []int{15, 15, 15},
			VoxelSize: 0.01,
			Origin:    []float32{0, 0, 0},
		},
		Sculpt: SculptTuning{
			CutDepthVoxels: 16,
			BrushRadius:    0.04,
			BrushMaterial:  0,
		},
		Scene: SceneTuning{
			Shape:     "speckled",
			Material:  0,
			Seed:      1337,
			Materials: 8,
		},
		Palette: voxel.DefaultPalette().Entries(),
	}
}

// Load reads a tuning file on top of Defaults; keys missing from the file keep their
// default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if len(t.Grid.Dims) != 3 {
		return fmt.Errorf("grid.dims must have 3 entries")
	}
	for _, n := range t.Grid.Dims {
		if n <= 0 {
			return fmt.Errorf("grid.dims must be positive")
		}
	}
	if t.Grid.VoxelSize <= 0 {
		return fmt.Errorf("grid.voxel_size must be > 0")
	}
	if len(t.Grid.Origin) != 0 && len(t.Grid.Origin) != 3 {
		return fmt.Errorf("grid.origin must have 3 entries")
	}
	if _, err := voxel.NewPalette(t.Palette); err != nil {
		return err
	}
	switch t.Scene.Shape {
	case "", "cube", "sphere", "speckled", "clear":
	default:
		return fmt.Errorf("scene.shape: unknown shape %q", t.Scene.Shape)
	}
	return nil
}
