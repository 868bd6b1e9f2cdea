// Package sim runs the command layer against a concrete world: agents on a
// walkable map with obstacles, indexed in a spatial grid and moved along the
// paths their groups assign.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/Garsondee/Unit-Commander/internal/behaviour"
	"github.com/Garsondee/Unit-Commander/internal/command"
	"github.com/Garsondee/Unit-Commander/internal/config"
	"github.com/Garsondee/Unit-Commander/internal/spatial"
	"github.com/Garsondee/Unit-Commander/internal/terrain"
	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// ErrUnknownAgent is returned when an order names an agent that does not exist.
var ErrUnknownAgent = errors.New("sim: unknown agent")

// World owns every piece of simulation state. Nothing is global.
type World struct {
	width, depth float64
	obstacles    []terrain.Rect
	cfg          config.SimConfig

	nav  *terrain.NavGrid
	los  *terrain.Obstacles
	grid *spatial.Grid[*Agent]

	agents     []*Agent
	byLabel    map[string]*Agent
	groups     []*command.Group
	behaviours []behaviour.Behaviour
	members    map[*Agent]*command.CommandUnit
	groupOpts  []command.Option

	simLog  *SimLog
	log     zerolog.Logger
	metrics *metrics
	rng     *rand.Rand

	tick   int
	nextID int
}

// Size is the map extent in world units.
func (w *World) Size() (width, depth float64) { return w.width, w.depth }

// Tick is the number of completed steps.
func (w *World) Tick() int { return w.tick }

// Dt is the simulated seconds per step.
func (w *World) Dt() float64 { return w.cfg.TickDuration() }

func (w *World) Config() config.SimConfig             { return w.cfg }
func (w *World) NavGrid() *terrain.NavGrid            { return w.nav }
func (w *World) Obstacles() []terrain.Rect            { return w.obstacles }
func (w *World) Grid() *spatial.Grid[*Agent]          { return w.grid }
func (w *World) Agents() []*Agent                     { return w.agents }
func (w *World) Groups() []*command.Group             { return w.groups }
func (w *World) SimLog() *SimLog                      { return w.simLog }
func (w *World) Logger() zerolog.Logger               { return w.log }
func (w *World) Member(a *Agent) *command.CommandUnit { return w.members[a] }

// Agent looks an agent up by label.
func (w *World) Agent(label string) (*Agent, bool) {
	a, ok := w.byLabel[label]
	return a, ok
}

// Close releases the metric callback.
func (w *World) Close() {
	if w.metrics != nil {
		w.metrics.close()
	}
}

// build derives the terrain queries and behaviours from the infra settings.
func (w *World) build() {
	w.nav = terrain.NewNavGrid(w.width, w.depth, w.cfg.NavCellSize, w.obstacles, w.cfg.NavPadding)
	w.los = terrain.NewObstacles(w.obstacles, DefaultExtents.X)
	w.behaviours = []behaviour.Behaviour{
		&behaviour.DetourPlanner{
			Router:      w.nav,
			Obstruction: w.los,
			OnDetour:    w.onDetour,
			OnSkip:      w.onSkip,
		},
		behaviour.StopNearTarget{MinFollowDistance: w.cfg.FollowDistance},
		behaviour.Separation{
			Query:  w.neighbours,
			Weight: w.cfg.SeparationWeight,
			Reach:  w.cfg.SeparationReach,
			Tilt:   w.cfg.SeparationTilt,
		},
	}
}

// Spawn adds an agent to the world and the grid.
func (w *World) Spawn(s AgentSpec) (*Agent, error) {
	if s.Label == "" {
		s.Label = fmt.Sprintf("U%d", w.nextID)
	}
	if _, dup := w.byLabel[s.Label]; dup {
		return nil, fmt.Errorf("sim: duplicate agent label %q", s.Label)
	}
	a := newAgent(w.nextID, s)
	w.nextID++
	if err := w.grid.Insert(a); err != nil {
		return nil, fmt.Errorf("indexing %s: %w", a.label, err)
	}
	w.agents = append(w.agents, a)
	w.byLabel[a.label] = a
	w.simLog.Add(SimLogEntry{Tick: w.tick, Unit: a.label, Team: string(a.team), Group: "--",
		Category: CatUnit, Key: "spawned", Value: fmtVec(a.pos)})
	return a, nil
}

// Despawn removes an agent from the world. Its group drops it on the next
// update.
func (w *World) Despawn(a *Agent) {
	if a == nil || a.removed {
		return
	}
	a.removed = true
	// Dead agents may already be out of the grid.
	_ = w.grid.Remove(a)
	w.simLog.Add(SimLogEntry{Tick: w.tick, Unit: a.label, Team: string(a.team), Group: "--",
		Category: CatUnit, Key: "removed"})
}

// CommandGoTo sends agents to p. The group disbands once every member arrived.
func (w *World) CommandGoTo(agents []*Agent, p vmath.Vec3, opts ...command.Option) (*command.Group, error) {
	return w.order(agents, command.GoTo(p), opts)
}

// CommandPatrol moves agents back and forth between their start and p.
func (w *World) CommandPatrol(agents []*Agent, p vmath.Vec3, opts ...command.Option) (*command.Group, error) {
	return w.order(agents, command.Patrol(p), opts)
}

// CommandFollow makes agents trail target. The target itself is never a member.
func (w *World) CommandFollow(agents []*Agent, target *Agent, opts ...command.Option) (*command.Group, error) {
	if target == nil {
		return nil, fmt.Errorf("follow order: %w", command.ErrNoTarget)
	}
	return w.order(without(agents, target), command.Follow(target), opts)
}

// CommandAttack makes agents chase and engage target.
func (w *World) CommandAttack(agents []*Agent, target *Agent, opts ...command.Option) (*command.Group, error) {
	if target == nil {
		return nil, fmt.Errorf("attack order: %w", command.ErrNoTarget)
	}
	return w.order(without(agents, target), command.Attack(target), opts)
}

func without(agents []*Agent, skip *Agent) []*Agent {
	out := make([]*Agent, 0, len(agents))
	for _, a := range agents {
		if a != skip {
			out = append(out, a)
		}
	}
	return out
}

func (w *World) tolerance() command.Tolerance {
	return command.Tolerance{
		ReachXZSq:    w.cfg.ReachXZ * w.cfg.ReachXZ,
		Vertical:     w.cfg.VerticalTolerance,
		Intermediate: w.cfg.IntermediateSlack,
	}
}

func (w *World) order(agents []*Agent, obj command.Objective, extra []command.Option) (*command.Group, error) {
	units := make([]command.Unit, 0, len(agents))
	for _, a := range agents {
		if a != nil && a.Valid() && a.alive {
			units = append(units, a)
		}
	}

	opts := []command.Option{
		command.WithRouter(w.nav),
		command.WithTolerance(w.tolerance()),
		command.WithRepathDistance(w.cfg.RepathDistance),
		command.WithCommanderPolicy(command.RandomCommander(w.rng)),
	}
	if ft := command.ParseFormation(w.cfg.Formation); ft != command.FormationNone {
		opts = append(opts, command.WithFormation(ft, w.cfg.FormationSpacing))
	}
	opts = append(opts, w.groupOpts...)
	opts = append(opts, extra...)

	g, err := command.NewGroup(units, obj, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s order: %w", obj.Kind, err)
	}
	for _, b := range w.behaviours {
		b.OnGroupCreated(g)
	}
	g.Subscribe(func(e command.Event) { w.record(e) })
	w.groups = append(w.groups, g)

	cmd := labelOf(g.Commander())
	w.simLog.Add(SimLogEntry{Tick: w.tick, Unit: cmd, Team: "--", Group: shortID(g.ID()),
		Category: CatOrder, Key: obj.Kind.String(),
		Value: fmt.Sprintf("%d units -> %s", g.Len(), fmtVec(obj.Position())), NumVal: float64(g.Len())})
	w.log.Info().
		Str("group", g.ID()).
		Str("order", obj.Kind.String()).
		Int("members", g.Len()).
		Str("commander", cmd).
		Msg("group created")
	return g, nil
}

// Step advances the world by one tick: grid refresh, group and behaviour
// updates, disbanding finished groups, movement and combat.
func (w *World) Step() {
	start := time.Now()
	dt := w.Dt()
	w.tick++

	w.refreshGrid()

	kept := make([]*command.Group, 0, len(w.groups))
	for _, g := range w.groups {
		g.Update(dt)
		if !g.Done() {
			for _, b := range w.behaviours {
				b.OnUpdate(g)
			}
		}
		if g.Done() {
			g.Disband()
			w.log.Info().Str("group", g.ID()).Str("order", g.Kind().String()).Msg("group disbanded")
			continue
		}
		kept = append(kept, g)
	}
	w.groups = kept

	clear(w.members)
	for _, g := range w.groups {
		for _, m := range g.Members() {
			if a, ok := m.Unit().(*Agent); ok {
				w.members[a] = m
			}
		}
	}

	w.integrate(dt)
	w.resolveAttacks(dt)

	ctx := context.Background()
	w.metrics.ticks.Add(ctx, 1)
	w.metrics.observeGroups(w.groups)
	w.metrics.tickDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000)
}

// refreshGrid re-indexes live agents and retires dead ones.
func (w *World) refreshGrid() {
	for _, a := range w.agents {
		if a.removed {
			continue
		}
		if !a.alive {
			w.Despawn(a)
			continue
		}
		if err := w.grid.Update(a); err != nil {
			w.log.Error().Err(err).Str("unit", a.label).Msg("grid update failed")
		}
	}
}

func (w *World) integrate(dt float64) {
	for _, a := range w.agents {
		if a.removed || !a.alive {
			a.vel, a.steering = vmath.Vec3{}, vmath.Vec3{}
			continue
		}
		var vel vmath.Vec3
		if m := w.members[a]; m != nil {
			if next, ok := m.NextNode(); ok {
				d := next.Sub(a.pos)
				if dist := d.Len(); dist > 1e-9 {
					if dist <= a.speed*dt {
						vel = d.Scale(1 / dt)
					} else {
						vel = d.Scale(a.speed / dist)
					}
				}
			}
		}
		vel = vel.Add(a.steering)
		a.steering = vmath.Vec3{}
		a.vel = vel
		if vel.IsZero() {
			continue
		}
		a.pos = w.clampToMap(a.pos.Add(vel.Scale(dt)))
		if vel.LenXZSq() > 1e-12 {
			a.yaw = vel.Heading()
		}
		w.simLog.AddVerbose(SimLogEntry{Tick: w.tick, Unit: a.label, Team: string(a.team), Group: shortID(a.groupID),
			Category: CatMove, Key: "position", Value: fmtVec(a.pos), NumVal: vel.Len()})
	}
}

func (w *World) clampToMap(p vmath.Vec3) vmath.Vec3 {
	p.X = min(max(p.X, 0), w.width)
	p.Z = min(max(p.Z, 0), w.depth)
	return p
}

// resolveAttacks applies damage from every agent holding a live target
// inside its engagement range.
func (w *World) resolveAttacks(dt float64) {
	for _, a := range w.agents {
		if a.removed || !a.alive || a.target == nil || a.attackRange <= 0 {
			continue
		}
		t, ok := a.target.(*Agent)
		if !ok || !t.alive {
			continue
		}
		if a.pos.DistXZ(t.pos) > a.attackRange {
			continue
		}
		t.Damage(w.cfg.AttackDPS * dt)
		if !t.alive {
			w.simLog.Add(SimLogEntry{Tick: w.tick, Unit: t.label, Team: string(t.team), Group: shortID(t.groupID),
				Category: CatUnit, Key: "killed", Value: "by " + a.label})
			w.log.Debug().Str("unit", t.label).Str("by", a.label).Msg("unit killed")
		}
	}
}

// neighbours backs the separation behaviour.
func (w *World) neighbours(center, halfExtents vmath.Vec3) []command.Unit {
	found := w.grid.FindNear(center, halfExtents)
	out := make([]command.Unit, len(found))
	for i, a := range found {
		out[i] = a
	}
	return out
}

// RunTicks advances the world n ticks.
func (w *World) RunTicks(n int) {
	for i := 0; i < n; i++ {
		w.Step()
	}
}

// RunUntil steps up to maxTicks, stopping as soon as predicate holds. It
// returns the tick at which the predicate was satisfied, or -1.
func (w *World) RunUntil(predicate func(*World) bool, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		w.Step()
		if predicate(w) {
			return w.tick
		}
	}
	return -1
}

// Summary renders the SimLog summary for the current state.
func (w *World) Summary() string {
	return w.simLog.Summary(w.tick, w.agents, w.groups)
}
