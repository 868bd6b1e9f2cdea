package sim

import (
	"context"
	"fmt"

	"github.com/Garsondee/Unit-Commander/internal/command"
	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// record turns a group event into a SimLog entry and metric updates.
func (w *World) record(e command.Event) {
	entry := SimLogEntry{
		Tick:  w.tick,
		Unit:  "--",
		Team:  "--",
		Group: shortID(e.Group.ID()),
	}
	if a := agentOf(e.Member); a != nil {
		entry.Unit, entry.Team = a.label, string(a.team)
	}

	ctx := context.Background()
	kind := e.Group.Kind().String()
	switch e.Kind {
	case command.EventNewPathNode:
		entry.Category, entry.Key, entry.Value = CatPath, "new_node", fmtVec(e.Node)
	case command.EventNewPath:
		entry.Category, entry.Key, entry.Value = CatPath, "new_path", fmtVec(e.Node)
		defer w.recordRejoins(e.Group, e.Member)
	case command.EventPathsTraversed:
		entry.Category, entry.Key, entry.Value = CatPath, "traversed", fmtVec(e.Node)
		defer w.recordRejoins(e.Group, e.Member)
	case command.EventRouteAssigned:
		n := len(e.Group.Route())
		entry.Category, entry.Key = CatRoute, "assigned"
		entry.Value, entry.NumVal = fmt.Sprintf("%d nodes", n), float64(n)
	case command.EventRouteIncomplete:
		entry.Category, entry.Key = CatRoute, "incomplete"
		entry.Value = fmtVec(e.Group.Objective().Position())
		w.metrics.incomplete.Add(ctx, 1, kindAttr(kind))
		w.log.Debug().Str("group", e.Group.ID()).Str("order", kind).Msg("route incomplete")
	case command.EventUnitRemoving:
		entry.Category = CatUnit
		if e.Reason == command.ReasonArrived {
			entry.Key = "arrived"
			if a := agentOf(e.Member); a != nil {
				entry.Value = fmtVec(a.pos)
			}
			w.metrics.arrivals.Add(ctx, 1)
		} else {
			entry.Key, entry.Value = "left", e.Reason.String()
		}
	case command.EventTargetLost:
		entry.Category, entry.Key = CatGroup, "target_lost"
	case command.EventGroupFinished:
		entry.Category, entry.Key = CatGroup, "finished"
	default:
		return
	}
	w.simLog.Add(entry)
}

func (w *World) onDetour(g *command.Group, m *command.CommandUnit, route []vmath.Vec3) {
	a := agentOf(m)
	if a == nil {
		return
	}
	w.simLog.Add(SimLogEntry{Tick: w.tick, Unit: a.label, Team: string(a.team), Group: shortID(g.ID()),
		Category: CatDetour, Key: "pushed", Value: fmt.Sprintf("%d nodes to %s", len(route), fmtVec(route[len(route)-1])),
		NumVal: float64(len(route))})
	w.metrics.detours.Add(context.Background(), 1, kindAttr(g.Kind().String()))
	w.log.Debug().Str("unit", a.label).Int("nodes", len(route)).Msg("detour pushed")
}

func (w *World) onSkip(g *command.Group, m *command.CommandUnit, node vmath.Vec3) {
	a := agentOf(m)
	if a == nil {
		return
	}
	w.simLog.Add(SimLogEntry{Tick: w.tick, Unit: a.label, Team: string(a.team), Group: shortID(g.ID()),
		Category: CatDetour, Key: "skipped", Value: fmtVec(node)})
	w.log.Debug().Str("unit", a.label).Str("node", fmtVec(node)).Msg("no detour to blocked waypoint")
}

// recordRejoins logs every detour m finished during its last update. Paths
// dropped without being walked are not detours that ended.
func (w *World) recordRejoins(g *command.Group, m *command.CommandUnit) {
	a := agentOf(m)
	if a == nil {
		return
	}
	for _, p := range m.Paths().Recent() {
		if p == m.MainPath() || !p.Traversed() {
			continue
		}
		w.simLog.Add(SimLogEntry{Tick: w.tick, Unit: a.label, Team: string(a.team), Group: shortID(g.ID()),
			Category: CatDetour, Key: "rejoined", Value: fmtVec(p.Last())})
	}
}

func agentOf(m *command.CommandUnit) *Agent {
	if m == nil {
		return nil
	}
	a, _ := m.Unit().(*Agent)
	return a
}

func labelOf(m *command.CommandUnit) string {
	if a := agentOf(m); a != nil {
		return a.label
	}
	return "--"
}

func fmtVec(v vmath.Vec3) string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", v.X, v.Y, v.Z)
}
