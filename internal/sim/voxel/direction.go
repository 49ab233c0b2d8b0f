package voxel

import "github.com/go-gl/mathgl/mgl32"

// Direction is one of the six axis-aligned face directions of a voxel.
// Opposite directions are adjacent values (Right/Left, Top/Bottom, Forward/Back).
type Direction uint8

const (
	Right   Direction = iota // +x
	Left                     // -x
	Top                      // +y
	Bottom                   // -y
	Forward                  // +z
	Back                     // -z
)

// Directions lists every face direction in emission order.
var Directions = [6]Direction{Right, Left, Top, Bottom, Forward, Back}

var offsets = [6][3]int{
	Right:   {1, 0, 0},
	Left:    {-1, 0, 0},
	Top:     {0, 1, 0},
	Bottom:  {0, -1, 0},
	Forward: {0, 0, 1},
	Back:    {0, 0, -1},
}

// corners holds the unit-cube face corners, counter-clockwise when seen from outside,
// so the fan (0,1,2) (0,2,3) faces along the direction's normal.
var corners = [6][4]mgl32.Vec3{
	Right:   {{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}},
	Left:    {{0, 0, 1}, {0, 1, 1}, {0, 1, 0}, {0, 0, 0}},
	Top:     {{0, 1, 1}, {1, 1, 1}, {1, 1, 0}, {0, 1, 0}},
	Bottom:  {{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
	Forward: {{1, 0, 1}, {1, 1, 1}, {0, 1, 1}, {0, 0, 1}},
	Back:    {{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}},
}

var names = [6]string{"RIGHT", "LEFT", "TOP", "BOTTOM", "FORWARD", "BACK"}

func (d Direction) Offset() (dx, dy, dz int) {
	o := offsets[d]
	return o[0], o[1], o[2]
}

func (d Direction) Opposite() Direction { return d ^ 1 }

func (d Direction) Normal() mgl32.Vec3 {
	o := offsets[d]
	return mgl32.Vec3{float32(o[0]), float32(o[1]), float32(o[2])}
}

// Corners returns the face's four corners on the unit cube at the origin.
func (d Direction) Corners() [4]mgl32.Vec3 { return corners[d] }

func (d Direction) String() string {
	if int(d) < len(names) {
		return names[d]
	}
	return "UNKNOWN"
}
