package spatial

import (
	"math"

	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// Footprint is an oriented bounding box: a center, half-size extents along
// the box's local axes, and a rotation about the vertical axis.
type Footprint struct {
	Center  vmath.Vec3
	Extents vmath.Vec3
	Yaw     float64
}

// Box returns an axis-aligned footprint.
func Box(center, extents vmath.Vec3) Footprint {
	return Footprint{Center: center, Extents: extents}
}

// Corners returns the eight box corners. Indices 0-3 are the top face
// (+x+z, +x-z, -x-z, -x+z in local space), 4-7 the bottom face in the same
// order.
func (f Footprint) Corners() [8]vmath.Vec3 {
	e := vmath.Vec3{X: math.Abs(f.Extents.X), Y: math.Abs(f.Extents.Y), Z: math.Abs(f.Extents.Z)}
	local := [4][2]float64{{e.X, e.Z}, {e.X, -e.Z}, {-e.X, -e.Z}, {-e.X, e.Z}}
	var out [8]vmath.Vec3
	for i, l := range local {
		off := vmath.Vec3{X: l[0], Z: l[1]}.RotateY(f.Yaw)
		out[i] = f.Center.Add(off).Add(vmath.Vec3{Y: e.Y})
		out[i+4] = f.Center.Add(off).Sub(vmath.Vec3{Y: e.Y})
	}
	return out
}

// Top and Bottom are the vertical bounds of the box.
func (f Footprint) Top() float64    { return f.Center.Y + math.Abs(f.Extents.Y) }
func (f Footprint) Bottom() float64 { return f.Center.Y - math.Abs(f.Extents.Y) }

// Moved returns a copy of f centered at c with rotation yaw.
func (f Footprint) Moved(c vmath.Vec3, yaw float64) Footprint {
	f.Center = c
	f.Yaw = yaw
	return f
}
