package grid

import (
	"errors"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"

	"voxelsculpt.ai/internal/sim/voxel"
)

var (
	ErrVoxelSize = errors.New("grid: voxel size must be positive and finite")
	ErrDims      = errors.New("grid: chunk dimensions must be positive")
)

// Config is fixed for the lifetime of a Grid. VoxelSize is the standard edit resolution;
// Rescale may change the live size, and the shape generators restore this one.
type Config struct {
	Dims      [3]int
	VoxelSize float32
	Origin    mgl32.Vec3
	Workers   int
	Palette   *voxel.Palette
}

func (c *Config) applyDefaults() {
	if c.Dims == ([3]int{}) {
		c.Dims = [3]int{15, 15, 15}
	}
	if c.VoxelSize == 0 {
		c.VoxelSize = 0.01
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Palette == nil {
		c.Palette = voxel.DefaultPalette()
	}
}

func (c Config) validate() error {
	for _, n := range c.Dims {
		if n <= 0 {
			return ErrDims
		}
	}
	if !ValidVoxelSize(c.VoxelSize) {
		return ErrVoxelSize
	}
	return nil
}

// ValidVoxelSize reports whether s is a usable voxel edge length: finite and positive.
func ValidVoxelSize(s float32) bool {
	f := float64(s)
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
