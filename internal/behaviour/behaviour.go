// Package behaviour holds the collaborators that react to group state:
// detour insertion, stopping close to a followed or attacked target, and
// separation between nearby units.
package behaviour

import (
	"math"

	"github.com/Garsondee/Unit-Commander/internal/command"
	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// Behaviour is attached to every group the world creates.
type Behaviour interface {
	// OnGroupCreated runs once, before the group's first update.
	OnGroupCreated(g *command.Group)
	// OnUpdate runs after every group update.
	OnUpdate(g *command.Group)
}

// Engager is a unit with a weapon range. Attack members inside it stop.
type Engager interface {
	EngagementRange() float64
}

// Steerable accumulates steering offsets applied by the movement step.
type Steerable interface {
	AddSteering(v vmath.Vec3)
}

// StopNearTarget clears the paths of Follow members closer than
// MinFollowDistance to their target and of Attack members inside their
// engagement range.
type StopNearTarget struct {
	MinFollowDistance float64
}

// OnGroupCreated implements Behaviour.
func (StopNearTarget) OnGroupCreated(*command.Group) {}

// OnUpdate implements Behaviour.
func (s StopNearTarget) OnUpdate(g *command.Group) {
	obj := g.Objective()
	switch obj.Kind {
	case command.KindFollow:
		target := obj.Follow.Position()
		for _, m := range g.Members() {
			if m.Unit().Position().DistXZ(target) < s.MinFollowDistance {
				m.Paths().Clear()
			}
		}
	case command.KindAttack:
		target := obj.Target.Position()
		for _, m := range g.Members() {
			e, ok := m.Unit().(Engager)
			if !ok {
				continue
			}
			if m.Unit().Position().DistXZ(target) <= e.EngagementRange() {
				m.Paths().Clear()
			}
		}
	}
}

// NeighbourQuery returns the units whose grid cells fall within halfExtents
// of center.
type NeighbourQuery func(center, halfExtents vmath.Vec3) []command.Unit

// Teamed is a unit on a side. Separation only pushes units of the pushing
// member's team.
type Teamed interface {
	TeamName() string
}

// Extended is a unit with a footprint. Its largest horizontal half-extent
// scales the separation reach.
type Extended interface {
	Extents() vmath.Vec3
}

type living interface {
	Alive() bool
}

// Separation makes every group member push nearby units of its team away.
// The reach around a member is Reach times its largest horizontal
// half-extent, and the push falls from Weight at contact to zero at the
// reach with a curve bent by Tilt. Dead units, the group commander and the
// Follow or Attack target are never pushed. Pushes go to units
// implementing Steerable.
type Separation struct {
	Query  NeighbourQuery
	Weight float64
	Reach  float64
	Tilt   float64
}

// OnGroupCreated implements Behaviour.
func (Separation) OnGroupCreated(*command.Group) {}

// OnUpdate implements Behaviour.
func (s Separation) OnUpdate(g *command.Group) {
	if s.Query == nil || s.Reach <= 0 {
		return
	}
	var commander command.Unit
	if c := g.Commander(); c != nil {
		commander = c.Unit()
	}
	target := objectiveTarget(g.Objective())

	// The search box is the square inscribed in the reach circle.
	side := s.Reach / math.Sqrt2
	for _, m := range g.Members() {
		self := m.Unit()
		scale := extentScale(self)
		half := vmath.Vec3{X: side * scale, Z: side * scale}
		maxDist := s.Reach * scale
		for _, n := range s.Query(self.Position(), half) {
			if n == self || n == commander || (target != nil && any(n) == target) {
				continue
			}
			if !pushable(self, n) {
				continue
			}
			st, ok := n.(Steerable)
			if !ok {
				continue
			}
			d := n.Position().Sub(self.Position())
			d.Y = 0
			dist := d.Len()
			if dist < 1e-6 {
				continue
			}
			if f := s.Repulsion(dist, maxDist); f > 0 {
				st.AddSteering(d.Scale(f / dist))
			}
		}
	}
}

// Repulsion is the push magnitude at dist for a reach of maxDist.
func (s Separation) Repulsion(dist, maxDist float64) float64 {
	if maxDist <= 0 {
		return 0
	}
	return s.Weight * math.Max(0, s.Tilt*(1-dist/maxDist)/(dist+s.Tilt))
}

func pushable(self, n command.Unit) bool {
	if !n.Valid() {
		return false
	}
	if l, ok := n.(living); ok && !l.Alive() {
		return false
	}
	st, ok1 := self.(Teamed)
	nt, ok2 := n.(Teamed)
	if ok1 != ok2 {
		return false
	}
	return !ok1 || st.TeamName() == nt.TeamName()
}

func extentScale(u command.Unit) float64 {
	e, ok := u.(Extended)
	if !ok {
		return 1
	}
	ext := e.Extents()
	if scale := math.Max(ext.X, ext.Z); scale > 0 {
		return scale
	}
	return 1
}

func objectiveTarget(obj command.Objective) any {
	switch obj.Kind {
	case command.KindFollow:
		if obj.Follow != nil {
			return obj.Follow
		}
	case command.KindAttack:
		if obj.Target != nil {
			return obj.Target
		}
	}
	return nil
}
