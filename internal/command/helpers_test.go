package command

import (
	"math"
	"testing"

	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

type fakeUnit struct {
	name   string
	pos    vmath.Vec3
	speed  float64
	group  string
	dead   bool
	target Attackable
}

func (u *fakeUnit) Position() vmath.Vec3         { return u.pos }
func (u *fakeUnit) Speed() float64               { return u.speed }
func (u *fakeUnit) GroupID() string              { return u.group }
func (u *fakeUnit) SetGroupID(id string)         { u.group = id }
func (u *fakeUnit) Valid() bool                  { return !u.dead }
func (u *fakeUnit) AttackTarget() Attackable     { return u.target }
func (u *fakeUnit) SetAttackTarget(a Attackable) { u.target = a }
func (u *fakeUnit) ClearAttackTarget()           { u.target = nil }

func newUnit(name string, x, y, z, speed float64) *fakeUnit {
	return &fakeUnit{name: name, pos: vmath.V3(x, y, z), speed: speed}
}

// fakeTarget is a Movable and an Attackable.
type fakeTarget struct {
	pos, vel vmath.Vec3
	gone     bool
	dead     bool
}

func (t *fakeTarget) Position() vmath.Vec3 { return t.pos }
func (t *fakeTarget) Velocity() vmath.Vec3 { return t.vel }
func (t *fakeTarget) Valid() bool          { return !t.gone }
func (t *fakeTarget) Alive() bool          { return !t.dead }

// countingRouter returns a straight route and counts calls.
type countingRouter struct {
	calls int
	fail  int // number of leading calls that report incomplete
}

func (r *countingRouter) ComputeRoute(from, to vmath.Vec3) ([]vmath.Vec3, bool) {
	r.calls++
	if r.calls <= r.fail {
		return nil, false
	}
	return []vmath.Vec3{from, to}, true
}

func asUnits(us ...*fakeUnit) []Unit {
	out := make([]Unit, len(us))
	for i, u := range us {
		out[i] = u
	}
	return out
}

// moveAll steps every member toward its next node by speed*dt, the way a
// locomotion collaborator would after the group update.
func moveAll(g *Group, dt float64) {
	for _, m := range g.Members() {
		next, ok := m.NextNode()
		if !ok {
			continue
		}
		u := m.Unit().(*fakeUnit)
		d := next.Sub(u.pos)
		step := u.speed * dt
		if d.Len() <= step {
			u.pos = next
			continue
		}
		u.pos = u.pos.Add(d.Normalize().Scale(step))
	}
}

func approxEq(a, b vmath.Vec3) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9 && math.Abs(a.Z-b.Z) < 1e-9
}

func mustGroup(t *testing.T, units []Unit, obj Objective, opts ...Option) *Group {
	t.Helper()
	g, err := NewGroup(units, obj, opts...)
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	return g
}

func countKind(events []Event, k EventKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == k {
			n++
		}
	}
	return n
}
