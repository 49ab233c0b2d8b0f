package sculpt

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"voxelsculpt.ai/internal/sim/grid"
	"voxelsculpt.ai/internal/sim/voxel"
)

// DefaultCutDepth is how many voxel lengths each cutting ray travels.
const DefaultCutDepth = 16

// Probe is the cross-section of a rectangular cutting volume: four corner points on its
// leading face and the direction the volume cuts along.
type Probe struct {
	Corners [4]mgl32.Vec3
	Forward mgl32.Vec3
}

// NewBoxProbe builds a probe from the center of the box's leading face, its forward and up
// axes, and the half width and half height of the face.
func NewBoxProbe(face, forward, up mgl32.Vec3, halfW, halfH float32) Probe {
	f := forward.Normalize()
	right := up.Cross(f).Normalize()
	u := f.Cross(right)
	r, h := right.Mul(halfW), u.Mul(halfH)
	return Probe{
		Corners: [4]mgl32.Vec3{
			face.Add(r).Sub(h),
			face.Sub(r).Sub(h),
			face.Sub(r).Add(h),
			face.Add(r).Add(h),
		},
		Forward: f,
	}
}

// Cut marches each corner ray of p forward in steps of one voxel for depth voxel lengths
// and empties every solid voxel it samples. Only the steps that fall inside the grid's
// box are sampled, so the work is bounded by the grid size whatever the depth.
// Returns the number of voxels removed.
func Cut(g *grid.Grid, p Probe, depth int) int {
	if depth <= 0 {
		depth = DefaultCutDepth
	}
	if p.Forward.LenSqr() == 0 {
		return 0
	}
	step := p.Forward.Normalize().Mul(g.VoxelSize())
	lo := g.Origin()
	hi := lo.Add(g.Extent())
	removed := 0
	for _, start := range p.Corners {
		first, last, ok := clipSteps(start, step, lo, hi, depth)
		if !ok {
			continue
		}
		for s := first; s <= last; s++ {
			pos := start.Add(step.Mul(float32(s)))
			c := g.ChunkAt(pos)
			if c == nil {
				continue
			}
			i, j, k := c.VectorToCoord(pos)
			if !grid.InRange(i, j, k) || !c.Voxel(i, j, k).Solid() {
				continue
			}
			if c.ModifyVoxel(i, j, k, voxel.Empty) {
				removed++
			}
		}
	}
	return removed
}

// clipSteps returns the range of step indices in [0, depth) whose samples
// start+s*step can lie inside the box [lo, hi]. The range is widened by one step on each
// side; callers still test every sample.
func clipSteps(start, step, lo, hi mgl32.Vec3, depth int) (first, last int, ok bool) {
	tmin, tmax := 0.0, float64(depth-1)
	for a := 0; a < 3; a++ {
		o, d := float64(start[a]), float64(step[a])
		if d == 0 {
			if o < float64(lo[a]) || o > float64(hi[a]) {
				return 0, 0, false
			}
			continue
		}
		t0, t1 := (float64(lo[a])-o)/d, (float64(hi[a])-o)/d
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = math.Max(tmin, math.Floor(t0)-1)
		tmax = math.Min(tmax, math.Ceil(t1)+1)
	}
	if !(tmin <= tmax) {
		return 0, 0, false
	}
	return int(tmin), int(tmax), true
}
