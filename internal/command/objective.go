package command

import "github.com/Garsondee/Unit-Commander/internal/vmath"

// Kind identifies what a group has been ordered to do.
type Kind int

const (
	KindGoTo Kind = iota
	KindPatrol
	KindFollow
	KindAttack
)

func (k Kind) String() string {
	switch k {
	case KindGoTo:
		return "goto"
	case KindPatrol:
		return "patrol"
	case KindFollow:
		return "follow"
	case KindAttack:
		return "attack"
	}
	return "unknown"
}

// Objective is the target of a group order. Exactly one of Point, Follow or
// Target is meaningful, selected by Kind.
type Objective struct {
	Kind   Kind
	Point  vmath.Vec3
	Follow Movable
	Target Attackable
}

// GoTo orders the group to move to p; members leave the group on arrival.
func GoTo(p vmath.Vec3) Objective { return Objective{Kind: KindGoTo, Point: p} }

// Patrol orders the group to walk to p and back indefinitely.
func Patrol(p vmath.Vec3) Objective { return Objective{Kind: KindPatrol, Point: p} }

// Follow orders the group to trail m.
func Follow(m Movable) Objective { return Objective{Kind: KindFollow, Follow: m} }

// Attack orders the group to close on a.
func Attack(a Attackable) Objective { return Objective{Kind: KindAttack, Target: a} }

// Position is the current location of the objective.
func (o Objective) Position() vmath.Vec3 {
	switch o.Kind {
	case KindFollow:
		return o.Follow.Position()
	case KindAttack:
		return o.Target.Position()
	}
	return o.Point
}

// valid reports whether a moving objective still exists.
func (o Objective) valid() bool {
	switch o.Kind {
	case KindFollow:
		return o.Follow != nil && o.Follow.Valid()
	case KindAttack:
		return o.Target != nil && o.Target.Valid() && o.Target.Alive()
	}
	return true
}
