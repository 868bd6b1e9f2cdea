package behaviour

import (
	"github.com/Garsondee/Unit-Commander/internal/command"
	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// DetourPlanner checks, whenever a member heads for a new waypoint, that the
// straight walk there is clear. When it is not, a routed detour ending on
// the waypoint is pushed on top and the waypoint is consumed on the
// underlying path. If no detour can be routed the path is left as it is.
type DetourPlanner struct {
	Router      command.Router
	Obstruction command.Obstruction
	// OnDetour, if set, is called for every pushed detour.
	OnDetour func(g *command.Group, m *command.CommandUnit, route []vmath.Vec3)
	// OnSkip, if set, is called when no detour to a blocked waypoint could
	// be routed.
	OnSkip func(g *command.Group, m *command.CommandUnit, node vmath.Vec3)
}

// OnGroupCreated subscribes the planner to the group's events.
func (d *DetourPlanner) OnGroupCreated(g *command.Group) {
	g.Subscribe(func(e command.Event) {
		switch e.Kind {
		case command.EventRouteAssigned:
			for _, m := range e.Group.Members() {
				d.Ensure(e.Group, m)
			}
		case command.EventNewPathNode, command.EventNewPath:
			d.Ensure(e.Group, e.Member)
		}
	})
}

// OnUpdate implements Behaviour.
func (d *DetourPlanner) OnUpdate(*command.Group) {}

// Ensure plans a detour for m if its next waypoint is obstructed. Members
// already on a detour are left alone. It reports whether a detour was
// pushed.
func (d *DetourPlanner) Ensure(g *command.Group, m *command.CommandUnit) bool {
	if m == nil || d.Obstruction == nil || d.Router == nil {
		return false
	}
	stack := m.Paths()
	if !stack.IsMain() {
		return false
	}
	cur := stack.Current()
	if cur == nil || cur.Traversed() {
		return false
	}
	from, next := m.Unit().Position(), cur.NextNode()
	if !d.Obstruction.IsBlocked(from, next) {
		return false
	}

	route, ok := d.Router.ComputeRoute(from, next)
	if !ok {
		d.skip(g, m, next)
		return false
	}
	if err := stack.PushNodes(route); err != nil {
		d.skip(g, m, next)
		return false
	}
	cur.Increment()
	if d.OnDetour != nil {
		d.OnDetour(g, m, route)
	}
	return true
}

func (d *DetourPlanner) skip(g *command.Group, m *command.CommandUnit, node vmath.Vec3) {
	if d.OnSkip != nil {
		d.OnSkip(g, m, node)
	}
}
