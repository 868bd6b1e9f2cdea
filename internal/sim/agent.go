package sim

import (
	"github.com/Garsondee/Unit-Commander/internal/command"
	"github.com/Garsondee/Unit-Commander/internal/spatial"
	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// Team tags agents for display and report grouping.
type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// DefaultExtents is the half-size of an agent's footprint.
var DefaultExtents = vmath.Vec3{X: 0.3, Y: 0.9, Z: 0.3}

// Agent is the world's unit. It satisfies every interface the command and
// behaviour packages query.
type Agent struct {
	id      int
	label   string
	team    Team
	pos     vmath.Vec3
	vel     vmath.Vec3
	speed   float64
	extents vmath.Vec3
	yaw     float64

	health      float64
	attackRange float64
	target      command.Attackable

	steering vmath.Vec3
	groupID  string
	alive    bool
	removed  bool
}

// AgentSpec describes an agent to spawn.
type AgentSpec struct {
	Label       string
	Team        Team
	Pos         vmath.Vec3
	Speed       float64
	Extents     vmath.Vec3
	Health      float64
	AttackRange float64
}

func newAgent(id int, s AgentSpec) *Agent {
	if s.Extents.IsZero() {
		s.Extents = DefaultExtents
	}
	if s.Health <= 0 {
		s.Health = 100
	}
	return &Agent{
		id:          id,
		label:       s.Label,
		team:        s.Team,
		pos:         s.Pos,
		speed:       s.Speed,
		extents:     s.Extents,
		health:      s.Health,
		attackRange: s.AttackRange,
		alive:       true,
	}
}

func (a *Agent) ID() int             { return a.id }
func (a *Agent) Label() string       { return a.label }
func (a *Agent) Team() Team          { return a.team }
func (a *Agent) Health() float64     { return a.health }
func (a *Agent) Yaw() float64        { return a.yaw }
func (a *Agent) Extents() vmath.Vec3 { return a.extents }

// Position implements command.Unit.
func (a *Agent) Position() vmath.Vec3 { return a.pos }

// Velocity implements command.Movable.
func (a *Agent) Velocity() vmath.Vec3 { return a.vel }

// Speed implements command.Unit.
func (a *Agent) Speed() float64 { return a.speed }

// GroupID implements command.Unit.
func (a *Agent) GroupID() string { return a.groupID }

// SetGroupID implements command.Unit.
func (a *Agent) SetGroupID(id string) { a.groupID = id }

// Valid reports whether the agent is still part of the world.
func (a *Agent) Valid() bool { return !a.removed }

// Alive implements command.Attackable.
func (a *Agent) Alive() bool { return a.alive }

// SetAttackTarget implements command.AttackTargetHolder.
func (a *Agent) SetAttackTarget(t command.Attackable) { a.target = t }

// ClearAttackTarget implements command.AttackTargetHolder.
func (a *Agent) ClearAttackTarget() { a.target = nil }

// AttackTarget is the target set by an Attack group, or nil.
func (a *Agent) AttackTarget() command.Attackable { return a.target }

// EngagementRange implements behaviour.Engager.
func (a *Agent) EngagementRange() float64 { return a.attackRange }

// TeamName implements behaviour.Teamed.
func (a *Agent) TeamName() string { return string(a.team) }

// AddSteering implements behaviour.Steerable.
func (a *Agent) AddSteering(v vmath.Vec3) { a.steering = a.steering.Add(v) }

// Footprint implements spatial.Occupant.
func (a *Agent) Footprint() spatial.Footprint {
	return spatial.Footprint{Center: a.pos, Extents: a.extents, Yaw: a.yaw}
}

// Teleport moves the agent without integrating velocity.
func (a *Agent) Teleport(p vmath.Vec3) { a.pos = p }

// Damage removes health and kills the agent at zero.
func (a *Agent) Damage(amount float64) {
	if !a.alive {
		return
	}
	a.health -= amount
	if a.health <= 0 {
		a.health = 0
		a.alive = false
	}
}

// Kill sets health to zero.
func (a *Agent) Kill() { a.Damage(a.health) }
