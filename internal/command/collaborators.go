package command

import "github.com/Garsondee/Unit-Commander/internal/vmath"

// Unit is a mobile agent that can be commanded. The command package never
// owns units; it references them for the lifetime of a group.
type Unit interface {
	Position() vmath.Vec3
	// Speed is the movement speed in world units per second.
	Speed() float64
	// GroupID is the id of the group the unit currently belongs to, empty
	// when ungrouped. A group drops members whose GroupID no longer matches.
	GroupID() string
	SetGroupID(id string)
	// Valid is false once the unit has been destroyed.
	Valid() bool
}

// Movable is a moving object a group can follow.
type Movable interface {
	Position() vmath.Vec3
	Velocity() vmath.Vec3
	Valid() bool
}

// Attackable is an entity a group can attack.
type Attackable interface {
	Position() vmath.Vec3
	Alive() bool
	Valid() bool
}

// AttackTargetHolder is implemented by units that keep a reference to the
// target of their attack group. The reference is cleared when the unit
// leaves the group or the target is lost, unless it already points at a
// different target.
type AttackTargetHolder interface {
	AttackTarget() Attackable
	SetAttackTarget(Attackable)
	ClearAttackTarget()
}

// Router computes a walkable route between two points. ok is false when no
// complete route exists.
type Router interface {
	ComputeRoute(from, to vmath.Vec3) (waypoints []vmath.Vec3, ok bool)
}

// RouterFunc adapts a function to Router.
type RouterFunc func(from, to vmath.Vec3) ([]vmath.Vec3, bool)

// ComputeRoute calls f(from, to).
func (f RouterFunc) ComputeRoute(from, to vmath.Vec3) ([]vmath.Vec3, bool) { return f(from, to) }

// StraightRouter routes directly from start to goal.
var StraightRouter Router = RouterFunc(func(from, to vmath.Vec3) ([]vmath.Vec3, bool) {
	return []vmath.Vec3{from, to}, true
})

// Obstruction reports whether the straight segment between two points is
// blocked.
type Obstruction interface {
	IsBlocked(from, to vmath.Vec3) bool
}
