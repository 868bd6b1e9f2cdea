package view

import (
	"github.com/Garsondee/Unit-Commander/internal/command"
	"github.com/Garsondee/Unit-Commander/internal/sim"
	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// pickRadius is how close (world units) a click must land to hit an agent.
const pickRadius = 0.9

var formationCycle = []command.FormationType{
	command.FormationNone,
	command.FormationLine,
	command.FormationWedge,
	command.FormationColumn,
	command.FormationEchelon,
}

// Controller turns selection and clicks into world orders.
type Controller struct {
	world     *sim.World
	selected  []*sim.Agent
	formation command.FormationType
}

func NewController(w *sim.World) *Controller {
	return &Controller{world: w, formation: command.ParseFormation(w.Config().Formation)}
}

func (c *Controller) Selected() []*sim.Agent           { return c.selected }
func (c *Controller) Formation() command.FormationType { return c.formation }

// AgentAt returns the closest live agent within pickRadius of p.
func (c *Controller) AgentAt(p vmath.Vec3) *sim.Agent {
	var best *sim.Agent
	bestD := pickRadius * pickRadius
	for _, a := range c.world.Agents() {
		if !a.Valid() || !a.Alive() {
			continue
		}
		if d := a.Position().Sub(p).LenXZSq(); d <= bestD {
			best, bestD = a, d
		}
	}
	return best
}

// Select replaces the selection with the agent at p, or adds it when add
// is set. Clicking empty ground without add clears the selection.
func (c *Controller) Select(p vmath.Vec3, add bool) {
	c.prune()
	a := c.AgentAt(p)
	if !add {
		c.selected = nil
	}
	if a == nil {
		return
	}
	for _, s := range c.selected {
		if s == a {
			return
		}
	}
	c.selected = append(c.selected, a)
}

// SelectTeam selects every live agent of team t.
func (c *Controller) SelectTeam(t sim.Team) {
	c.selected = nil
	for _, a := range c.world.Agents() {
		if a.Valid() && a.Alive() && a.Team() == t {
			c.selected = append(c.selected, a)
		}
	}
}

// CycleFormation advances to the next formation type.
func (c *Controller) CycleFormation() command.FormationType {
	for i, ft := range formationCycle {
		if ft == c.formation {
			c.formation = formationCycle[(i+1)%len(formationCycle)]
			return c.formation
		}
	}
	c.formation = command.FormationNone
	return c.formation
}

// Order issues the context order for a click at p. An enemy under the
// cursor is attacked, an ally is followed, and open ground is a GoTo, or a
// Patrol when patrol is set.
func (c *Controller) Order(p vmath.Vec3, patrol bool) (*command.Group, error) {
	c.prune()
	if len(c.selected) == 0 {
		return nil, command.ErrNoUnits
	}
	opts := []command.Option{command.WithFormation(c.formation, c.world.Config().FormationSpacing)}
	if t := c.AgentAt(p); t != nil {
		if t.Team() != c.selected[0].Team() {
			return c.world.CommandAttack(c.selected, t, opts...)
		}
		return c.world.CommandFollow(c.selected, t, opts...)
	}
	if patrol {
		return c.world.CommandPatrol(c.selected, p, opts...)
	}
	return c.world.CommandGoTo(c.selected, p, opts...)
}

func (c *Controller) prune() {
	var kept []*sim.Agent
	for _, a := range c.selected {
		if a.Valid() && a.Alive() {
			kept = append(kept, a)
		}
	}
	c.selected = kept
}
