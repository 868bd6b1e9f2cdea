package command

import (
	"errors"
	"math/rand"

	"github.com/google/uuid"

	"github.com/Garsondee/Unit-Commander/internal/path"
	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

var (
	// ErrNoUnits is returned when forming a group from an empty unit list.
	ErrNoUnits = errors.New("command: group needs at least one unit")
	// ErrNoTarget is returned for a Follow or Attack order without a target.
	ErrNoTarget = errors.New("command: objective has no target")
)

// DefaultRepathDistance is how far an Attack target must move before the
// commander route is recomputed.
const DefaultRepathDistance = 1.0

// CommanderPolicy picks the commander index among the ordered units.
type CommanderPolicy func(units []Unit) int

// FirstCommander always picks the first unit.
func FirstCommander(units []Unit) int { return 0 }

// RandomCommander picks a commander uniformly at random from rng.
func RandomCommander(rng *rand.Rand) CommanderPolicy {
	return func(units []Unit) int { return rng.Intn(len(units)) }
}

// Option configures a Group.
type Option func(*Group)

// WithRouter sets the route computer. The default walks straight to the goal.
func WithRouter(r Router) Option {
	return func(g *Group) { g.router = r }
}

// WithTolerance sets the waypoint reach rule.
func WithTolerance(t Tolerance) Option {
	return func(g *Group) { g.tol = t }
}

// WithRepathDistance sets how far an Attack target must move before the
// route is recomputed.
func WithRepathDistance(d float64) Option {
	return func(g *Group) { g.repathDistance = d }
}

// WithCommanderPolicy sets how the commander is chosen, at formation and
// whenever the commander leaves.
func WithCommanderPolicy(p CommanderPolicy) Option {
	return func(g *Group) { g.policy = p }
}

// WithFormation lays members out in a formation facing the objective
// instead of keeping their current spread. The commander takes the lead
// slot and arrives on the objective itself.
func WithFormation(ft FormationType, spacing float64) Option {
	return func(g *Group) {
		g.formation = ft
		if spacing > 0 {
			g.spacing = spacing
		}
	}
}

// WithID overrides the generated group id.
func WithID(id string) Option {
	return func(g *Group) { g.id = id }
}

// Group is a set of units sharing one order. The commander's route is
// computed by the router; every other member follows the same route shifted
// by its fixed offset from the commander.
type Group struct {
	id        string
	objective Objective
	members   []*CommandUnit
	commander *CommandUnit

	router         Router
	tol            Tolerance
	repathDistance float64
	policy         CommanderPolicy
	formation      FormationType
	spacing        float64

	route       []vmath.Vec3
	hasRoute    bool
	routeTarget vmath.Vec3

	removeNow bool
	finished  bool

	subs   listeners
	events []Event
}

// NewGroup forms a group from units. Each unit gets a fresh CommandUnit and
// its group id is stamped with the new group's id, which implicitly drops it
// from any previous group.
func NewGroup(units []Unit, obj Objective, opts ...Option) (*Group, error) {
	if len(units) == 0 {
		return nil, ErrNoUnits
	}
	if (obj.Kind == KindFollow && obj.Follow == nil) || (obj.Kind == KindAttack && obj.Target == nil) {
		return nil, ErrNoTarget
	}
	g := &Group{
		objective:      obj,
		router:         StraightRouter,
		tol:            DefaultTolerance(),
		repathDistance: DefaultRepathDistance,
		policy:         FirstCommander,
		spacing:        DefaultSlotSpacing,
	}
	for _, o := range opts {
		o(g)
	}
	if g.id == "" {
		g.id = uuid.NewString()
	}

	g.members = make([]*CommandUnit, len(units))
	for i, u := range units {
		g.members[i] = NewCommandUnit(u)
		u.SetGroupID(g.id)
		if obj.Kind == KindAttack {
			if h, ok := u.(AttackTargetHolder); ok {
				h.SetAttackTarget(obj.Target)
			}
		}
	}
	ci := clampIndex(g.policy(units), len(units))
	g.commander = g.members[ci]
	g.computeOffsets(ci)
	return g, nil
}

func clampIndex(i, n int) int {
	if i < 0 || i >= n {
		return 0
	}
	return i
}

// computeOffsets fixes every member's offset from the group centroid, or
// from the formation slots when a formation was requested.
func (g *Group) computeOffsets(commander int) {
	pts := make([]vmath.Vec3, len(g.members))
	for i, m := range g.members {
		pts[i] = m.unit.Position()
	}
	centroid := vmath.Centroid(pts)

	if g.formation == FormationNone {
		for i, m := range g.members {
			m.offset = pts[i].Sub(centroid)
		}
		return
	}

	heading := g.objective.Position().Sub(centroid).Heading()
	slots := formationOffsets(g.formation, len(g.members), g.spacing)
	slot := 1
	for i, m := range g.members {
		if i == commander {
			m.offset = vmath.Vec3{}
			continue
		}
		m.offset = slotOffset(heading, slots[slot][0], slots[slot][1])
		slot++
	}
}

// ID is the group's unique id.
func (g *Group) ID() string { return g.id }

// Kind is the order type.
func (g *Group) Kind() Kind { return g.objective.Kind }

// Objective is the order target.
func (g *Group) Objective() Objective { return g.objective }

// Commander is the member whose route is computed directly.
func (g *Group) Commander() *CommandUnit { return g.commander }

// Members returns the current members. The slice must not be modified.
func (g *Group) Members() []*CommandUnit { return g.members }

// Len is the number of members.
func (g *Group) Len() int { return len(g.members) }

// Route is the most recent complete commander route, nil before the first.
func (g *Group) Route() []vmath.Vec3 { return g.route }

// Member returns the CommandUnit wrapping u, or nil.
func (g *Group) Member(u Unit) *CommandUnit {
	for _, m := range g.members {
		if m.unit == u {
			return m
		}
	}
	return nil
}

// Subscribe registers fn for this group's events and returns a function
// that unregisters it. Safe to call from any goroutine.
func (g *Group) Subscribe(fn Listener) (unsubscribe func()) { return g.subs.add(fn) }

// Events returns the events emitted during the last Update. The slice is
// reused by the next Update.
func (g *Group) Events() []Event { return g.events }

// RemoveImmediately marks the group for removal regardless of members.
func (g *Group) RemoveImmediately() { g.removeNow = true }

// Done reports whether the group should be discarded: every member left, or
// removal was requested.
func (g *Group) Done() bool { return g.finished || g.removeNow || len(g.members) == 0 }

// Update runs one tick: membership pruning, target checks, route
// recomputation and per-member progress. dt is the tick duration in seconds.
func (g *Group) Update(dt float64) {
	g.events = g.events[:0]
	if g.Done() {
		return
	}

	g.prune()
	if len(g.members) == 0 {
		g.finish()
		return
	}

	if !g.objective.valid() {
		g.releaseTargets()
		g.removeNow = true
		g.emit(Event{Kind: EventTargetLost, Group: g})
		return
	}

	if g.needsRoute() {
		g.assignRoute()
	}

	kept := make([]*CommandUnit, 0, len(g.members))
	for _, m := range g.members {
		if g.advance(m, dt) {
			kept = append(kept, m)
		}
	}
	g.members = kept

	if len(g.members) == 0 {
		g.finish()
		return
	}
	g.ensureCommander()
}

// Disband removes every remaining member, clearing their group id.
func (g *Group) Disband() {
	for _, m := range g.members {
		g.release(m, ReasonDisbanded)
	}
	g.members = nil
	g.commander = nil
	g.finished = true
}

// prune drops members that were reassigned, destroyed or marked. Every
// removal is announced while the member list is still intact.
func (g *Group) prune() {
	var reasons map[*CommandUnit]RemovalReason
	for _, m := range g.members {
		reason := ReasonNone
		switch {
		case !m.unit.Valid():
			reason = ReasonInvalid
		case m.unit.GroupID() != g.id:
			reason = ReasonReassigned
		case m.remove:
			reason = ReasonMarked
		}
		if reason == ReasonNone {
			continue
		}
		if reasons == nil {
			reasons = make(map[*CommandUnit]RemovalReason)
		}
		reasons[m] = reason
	}
	if len(reasons) == 0 {
		return
	}
	for _, m := range g.members {
		if r, ok := reasons[m]; ok {
			g.release(m, r)
		}
	}
	kept := make([]*CommandUnit, 0, len(g.members)-len(reasons))
	for _, m := range g.members {
		if _, gone := reasons[m]; !gone {
			kept = append(kept, m)
		}
	}
	g.members = kept
	g.ensureCommander()
}

// release notifies listeners and detaches m from the group.
func (g *Group) release(m *CommandUnit, reason RemovalReason) {
	g.emit(Event{Kind: EventUnitRemoving, Group: g, Member: m, Reason: reason})
	g.clearTarget(m)
	if reason != ReasonInvalid && m.unit.GroupID() == g.id {
		m.unit.SetGroupID("")
	}
}

func (g *Group) releaseTargets() {
	if g.objective.Kind != KindAttack {
		return
	}
	for _, m := range g.members {
		g.clearTarget(m)
	}
}

// clearTarget drops m's reference to this group's target.
func (g *Group) clearTarget(m *CommandUnit) {
	if g.objective.Kind != KindAttack {
		return
	}
	if h, ok := m.unit.(AttackTargetHolder); ok && h.AttackTarget() == g.objective.Target {
		h.ClearAttackTarget()
	}
}

// ensureCommander re-applies the commander policy when the commander left.
func (g *Group) ensureCommander() {
	if len(g.members) == 0 {
		g.commander = nil
		return
	}
	for _, m := range g.members {
		if m == g.commander {
			return
		}
	}
	units := make([]Unit, len(g.members))
	for i, m := range g.members {
		units[i] = m.unit
	}
	g.commander = g.members[clampIndex(g.policy(units), len(units))]
}

func (g *Group) needsRoute() bool {
	if !g.hasRoute {
		return true
	}
	switch g.objective.Kind {
	case KindFollow:
		return !g.objective.Follow.Velocity().IsZero()
	case KindAttack:
		return g.objective.Target.Position().Dist(g.routeTarget) > g.repathDistance
	}
	return false
}

// assignRoute computes the commander route and derives every member path
// from it. An incomplete route leaves all paths untouched.
func (g *Group) assignRoute() {
	target := g.objective.Position()
	from := g.commander.unit.Position()
	dest := target.Add(g.commander.offset)

	route, ok := g.router.ComputeRoute(from, dest)
	if !ok || len(route) == 0 {
		g.emit(Event{Kind: EventRouteIncomplete, Group: g})
		return
	}
	base, err := path.New(route)
	if err != nil {
		g.emit(Event{Kind: EventRouteIncomplete, Group: g})
		return
	}

	g.route = base.Nodes()
	g.hasRoute = true
	g.routeTarget = target

	for _, m := range g.members {
		if m == g.commander {
			m.AssignPath(base)
			continue
		}
		m.AssignPath(base.Translate(m.offset.Sub(g.commander.offset)))
	}
	g.emit(Event{Kind: EventRouteAssigned, Group: g})
}

// advance updates one member and applies the order's completion rule. It
// returns false when the member left the group.
func (g *Group) advance(m *CommandUnit, dt float64) bool {
	var prevNode vmath.Vec3
	if cur := m.paths.Current(); cur != nil {
		prevNode = cur.NextNode()
	}
	st := m.Update(dt, g.tol)

	switch {
	case st.Has(StatusNewPathNode):
		g.emit(Event{Kind: EventNewPathNode, Group: g, Member: m, Node: prevNode})
	case st.Has(StatusNewPath):
		g.emit(Event{Kind: EventNewPath, Group: g, Member: m, Node: prevNode})
	case st.Has(StatusAllPathsTraversed):
		g.emit(Event{Kind: EventPathsTraversed, Group: g, Member: m, Node: prevNode})
		switch g.objective.Kind {
		case KindGoTo:
			g.release(m, ReasonArrived)
			return false
		case KindPatrol:
			if m.main != nil {
				m.AssignPath(m.main.Reversed())
			}
		}
	}
	return true
}

func (g *Group) finish() {
	if g.finished {
		return
	}
	g.finished = true
	g.commander = nil
	g.emit(Event{Kind: EventGroupFinished, Group: g})
}

func (g *Group) emit(e Event) {
	g.events = append(g.events, e)
	for _, fn := range g.subs.snapshot() {
		fn(e)
	}
}
