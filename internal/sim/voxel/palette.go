package voxel

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// UVRange is a horizontal strip of the material texture: u spans [U0, U1], v spans [0, 1].
type UVRange struct {
	U0 float32 `yaml:"u0" json:"u0"`
	U1 float32 `yaml:"u1" json:"u1"`
}

// Quad returns the per-vertex UVs for one emitted face.
func (r UVRange) Quad() [4]mgl32.Vec2 {
	return [4]mgl32.Vec2{{r.U0, 0}, {r.U1, 0}, {r.U0, 1}, {r.U1, 1}}
}

// Palette maps a voxel's material index to its texture strip. Immutable once built.
type Palette struct {
	entries []UVRange
}

var ErrEmptyPalette = errors.New("palette: no entries")

// DefaultPalette is the eight-colour strip texture used by the sculpting scene.
func DefaultPalette() *Palette {
	return &Palette{entries: []UVRange{
		{0, 0.124},
		{0.125, 0.24},
		{0.26, 0.374},
		{0.385, 0.49},
		{0.51, 0.624},
		{0.635, 0.74},
		{0.76, 0.874},
		{0.885, 1},
	}}
}

func NewPalette(entries []UVRange) (*Palette, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyPalette
	}
	if len(entries) > MaxMaterial+1 {
		return nil, fmt.Errorf("palette: %d entries exceeds %d", len(entries), MaxMaterial+1)
	}
	for i, e := range entries {
		if e.U0 < 0 || e.U1 > 1 || e.U0 > e.U1 {
			return nil, fmt.Errorf("palette: entry %d has bad range [%g, %g]", i, e.U0, e.U1)
		}
	}
	cp := make([]UVRange, len(entries))
	copy(cp, entries)
	return &Palette{entries: cp}, nil
}

func (p *Palette) Len() int { return len(p.entries) }

// Has reports whether material is a valid palette index.
func (p *Palette) Has(material int) bool {
	return material >= 0 && material < len(p.entries)
}

// UV returns the strip for a solid voxel value. Materials past the end of the palette
// use the last entry.
func (p *Palette) UV(v Value) UVRange {
	m := v.Material()
	if m < 0 {
		m = 0
	}
	if m >= len(p.entries) {
		m = len(p.entries) - 1
	}
	return p.entries[m]
}

func (p *Palette) Entries() []UVRange {
	out := make([]UVRange, len(p.entries))
	copy(out, p.entries)
	return out
}
