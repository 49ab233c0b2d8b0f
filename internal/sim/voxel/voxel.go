// Package voxel holds the per-cell value type, the canonical face directions and the
// material palette shared by the mesher and the sculpt tools.
package voxel

// Value is a voxel's content. 0 is empty; 1..N is solid with palette index Value-1.
type Value uint8

const (
	Empty Value = 0

	// MaxMaterial is the highest palette index a Value can carry.
	MaxMaterial = 254
)

func (v Value) Solid() bool { return v != Empty }

// Material returns the palette index of a solid voxel, or -1 for an empty one.
func (v Value) Material() int {
	return int(v) - 1
}

// FromMaterial converts a palette index into a solid voxel value.
func FromMaterial(material int) Value {
	if material < 0 {
		material = 0
	}
	if material > MaxMaterial {
		material = MaxMaterial
	}
	return Value(material + 1)
}
