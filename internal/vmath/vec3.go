// Package vmath holds the small float vector type shared by the grid, path
// and command packages.
package vmath

import "math"

// Vec3 is a world-space position or offset. Y is up; the ground plane is XZ.
type Vec3 struct {
	X, Y, Z float64
}

// V3 is shorthand for Vec3{x, y, z}.
func V3(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Len() float64         { return math.Sqrt(v.Dot(v)) }
func (v Vec3) IsZero() bool         { return v.X == 0 && v.Y == 0 && v.Z == 0 }
func (v Vec3) Neg() Vec3            { return Vec3{-v.X, -v.Y, -v.Z} }
func (v Vec3) Dist(o Vec3) float64  { return v.Sub(o).Len() }

// LenXZSq is the squared length of the horizontal projection.
func (v Vec3) LenXZSq() float64 { return v.X*v.X + v.Z*v.Z }

// LenXZ is the length of the horizontal projection.
func (v Vec3) LenXZ() float64 { return math.Sqrt(v.LenXZSq()) }

// DistXZ is the horizontal distance between two points.
func (v Vec3) DistXZ(o Vec3) float64 { return v.Sub(o).LenXZ() }

// Normalize returns the unit vector, or the zero vector for zero input.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Heading is the XZ angle of v in radians, measured from +X toward +Z.
func (v Vec3) Heading() float64 { return math.Atan2(v.Z, v.X) }

// RotateY rotates v around the vertical axis by yaw radians (+X toward +Z).
func (v Vec3) RotateY(yaw float64) Vec3 {
	s, c := math.Sincos(yaw)
	return Vec3{X: v.X*c - v.Z*s, Y: v.Y, Z: v.X*s + v.Z*c}
}

// Lerp interpolates between a and b.
func Lerp(a, b Vec3, t float64) Vec3 { return a.Add(b.Sub(a).Scale(t)) }

// Centroid is the arithmetic mean of pts; the zero vector for no points.
func Centroid(pts []Vec3) Vec3 {
	if len(pts) == 0 {
		return Vec3{}
	}
	var sum Vec3
	for _, p := range pts {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(pts)))
}
