// Package scenario reads YAML scenario files and turns them into world
// options and timed orders.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Garsondee/Unit-Commander/internal/command"
	"github.com/Garsondee/Unit-Commander/internal/sim"
	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("scenario: invalid")

type Scenario struct {
	Name      string     `yaml:"name"`
	Seed      int64      `yaml:"seed"`
	Ticks     int        `yaml:"ticks"`
	Map       MapSpec    `yaml:"map"`
	Obstacles []Obstacle `yaml:"obstacles"`
	Agents    []Agent    `yaml:"agents"`
	Orders    []Order    `yaml:"orders"`
}

type MapSpec struct {
	Width float64 `yaml:"width"`
	Depth float64 `yaml:"depth"`
}

type Obstacle struct {
	MinX float64 `yaml:"min_x"`
	MinZ float64 `yaml:"min_z"`
	MaxX float64 `yaml:"max_x"`
	MaxZ float64 `yaml:"max_z"`
}

type Agent struct {
	Label       string    `yaml:"label"`
	Team        string    `yaml:"team"`
	Pos         []float64 `yaml:"pos"`
	Speed       float64   `yaml:"speed"`
	Health      float64   `yaml:"health"`
	AttackRange float64   `yaml:"attack_range"`
}

// Order is issued once the world reaches AtTick. Orders at tick 0 are part
// of world construction.
type Order struct {
	AtTick    int       `yaml:"at_tick"`
	Kind      string    `yaml:"kind"`
	Units     []string  `yaml:"units"`
	To        []float64 `yaml:"to"`
	Target    string    `yaml:"target"`
	Formation string    `yaml:"formation"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes and validates scenario YAML.
func Parse(raw []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("scenario yaml: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// vec accepts [x, z] or [x, y, z].
func vec(v []float64) (vmath.Vec3, error) {
	switch len(v) {
	case 2:
		return vmath.V3(v[0], 0, v[1]), nil
	case 3:
		return vmath.V3(v[0], v[1], v[2]), nil
	}
	return vmath.Vec3{}, fmt.Errorf("%w: vector needs 2 or 3 components, got %d", ErrInvalid, len(v))
}

func (s *Scenario) Validate() error {
	labels := make(map[string]bool, len(s.Agents))
	for i, a := range s.Agents {
		if a.Label == "" {
			return fmt.Errorf("%w: agent %d has no label", ErrInvalid, i)
		}
		if labels[a.Label] {
			return fmt.Errorf("%w: duplicate agent %q", ErrInvalid, a.Label)
		}
		labels[a.Label] = true
		if _, err := vec(a.Pos); err != nil {
			return fmt.Errorf("agent %q: %w", a.Label, err)
		}
	}
	for i, o := range s.Orders {
		if len(o.Units) == 0 {
			return fmt.Errorf("%w: order %d has no units", ErrInvalid, i)
		}
		for _, u := range o.Units {
			if !labels[u] {
				return fmt.Errorf("%w: order %d names unknown agent %q", ErrInvalid, i, u)
			}
		}
		switch o.Kind {
		case "goto", "patrol":
			if _, err := vec(o.To); err != nil {
				return fmt.Errorf("order %d: %w", i, err)
			}
		case "follow", "attack":
			if !labels[o.Target] {
				return fmt.Errorf("%w: order %d targets unknown agent %q", ErrInvalid, i, o.Target)
			}
		default:
			return fmt.Errorf("%w: order %d has unknown kind %q", ErrInvalid, i, o.Kind)
		}
		if o.AtTick < 0 {
			return fmt.Errorf("%w: order %d at negative tick", ErrInvalid, i)
		}
	}
	return nil
}

// Options builds the world's map, obstacles and agents. Orders are issued
// by Apply.
func (s *Scenario) Options() []sim.Option {
	var opts []sim.Option
	if s.Map.Width > 0 && s.Map.Depth > 0 {
		opts = append(opts, sim.WithMapSize(s.Map.Width, s.Map.Depth))
	}
	if s.Seed != 0 {
		opts = append(opts, sim.WithSeed(s.Seed))
	}
	for _, o := range s.Obstacles {
		opts = append(opts, sim.WithObstacle(o.MinX, o.MinZ, o.MaxX, o.MaxZ))
	}
	for _, a := range s.Agents {
		pos, _ := vec(a.Pos)
		opts = append(opts, sim.WithAgent(sim.AgentSpec{
			Label:       a.Label,
			Team:        sim.Team(a.Team),
			Pos:         pos,
			Speed:       a.Speed,
			Health:      a.Health,
			AttackRange: a.AttackRange,
		}))
	}
	return opts
}

// Apply issues every order scheduled for the world's current tick. Call it
// once right after construction and again after every Step.
func (s *Scenario) Apply(w *sim.World) error {
	for i, o := range s.Orders {
		if o.AtTick != w.Tick() {
			continue
		}
		if err := issue(w, o); err != nil {
			return fmt.Errorf("order %d (%s): %w", i, o.Kind, err)
		}
	}
	return nil
}

func issue(w *sim.World, o Order) error {
	agents := make([]*sim.Agent, 0, len(o.Units))
	for _, l := range o.Units {
		a, ok := w.Agent(l)
		if !ok {
			return fmt.Errorf("%w: %q", sim.ErrUnknownAgent, l)
		}
		agents = append(agents, a)
	}
	var opts []command.Option
	if ft := command.ParseFormation(o.Formation); ft != command.FormationNone {
		opts = append(opts, command.WithFormation(ft, w.Config().FormationSpacing))
	}

	var err error
	switch o.Kind {
	case "goto":
		to, _ := vec(o.To)
		_, err = w.CommandGoTo(agents, to, opts...)
	case "patrol":
		to, _ := vec(o.To)
		_, err = w.CommandPatrol(agents, to, opts...)
	case "follow", "attack":
		t, ok := w.Agent(o.Target)
		if !ok {
			return fmt.Errorf("%w: %q", sim.ErrUnknownAgent, o.Target)
		}
		if o.Kind == "follow" {
			_, err = w.CommandFollow(agents, t, opts...)
		} else {
			_, err = w.CommandAttack(agents, t, opts...)
		}
	}
	return err
}

// Build creates the world and issues its tick 0 orders.
func (s *Scenario) Build(extra ...sim.Option) (*sim.World, error) {
	w, err := sim.New(append(extra, s.Options()...)...)
	if err != nil {
		return nil, err
	}
	if err := s.Apply(w); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// Run builds the world and steps it for Ticks ticks (or maxTicks when Ticks
// is unset), issuing timed orders along the way.
func (s *Scenario) Run(maxTicks int, extra ...sim.Option) (*sim.World, error) {
	w, err := s.Build(extra...)
	if err != nil {
		return nil, err
	}
	n := s.Ticks
	if n <= 0 {
		n = maxTicks
	}
	for i := 0; i < n; i++ {
		w.Step()
		if err := s.Apply(w); err != nil {
			return w, err
		}
	}
	return w, nil
}
