package sim

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/Garsondee/Unit-Commander/internal/command"
	"github.com/Garsondee/Unit-Commander/internal/config"
	"github.com/Garsondee/Unit-Commander/internal/spatial"
	"github.com/Garsondee/Unit-Commander/internal/terrain"
	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// optionKind controls the pass in which an option is applied.
type optionKind int

const (
	optConfig optionKind = iota // whole config, applied before anything else
	optInfra                    // map size, obstacles, seed, verbose, tick rate, logger
	optAgent                    // spawn agents, after the nav grid is built
	optOrder                    // issue orders, after agents exist
)

// Option is a builder step applied to a World during construction.
type Option struct {
	kind optionKind
	fn   func(*World) error
}

// WithConfig replaces the simulation config.
func WithConfig(c config.SimConfig) Option {
	return Option{optConfig, func(w *World) error {
		w.cfg = c
		return nil
	}}
}

// WithMapSize sets the playfield extent on X and Z.
func WithMapSize(width, depth float64) Option {
	return Option{optInfra, func(w *World) error {
		w.width, w.depth = width, depth
		return nil
	}}
}

// WithObstacle adds an impassable rectangle.
func WithObstacle(minX, minZ, maxX, maxZ float64) Option {
	return Option{optInfra, func(w *World) error {
		w.obstacles = append(w.obstacles, terrain.Rect{MinX: minX, MinZ: minZ, MaxX: maxX, MaxZ: maxZ})
		return nil
	}}
}

// WithSeed sets the RNG seed used for commander selection.
func WithSeed(seed int64) Option {
	return Option{optInfra, func(w *World) error {
		w.rng = rand.New(rand.NewSource(seed)) // #nosec G404 -- simulation rng
		return nil
	}}
}

// WithVerbose enables per-tick movement entries in the SimLog.
func WithVerbose(v bool) Option {
	return Option{optInfra, func(w *World) error {
		w.simLog.verbose = v
		return nil
	}}
}

// WithTickRate sets the number of steps per simulated second.
func WithTickRate(hz int) Option {
	return Option{optInfra, func(w *World) error {
		if hz <= 0 {
			return fmt.Errorf("%w: tick rate %d", config.ErrInvalid, hz)
		}
		w.cfg.TickRate = hz
		return nil
	}}
}

// WithLogger sets the operational logger.
func WithLogger(l zerolog.Logger) Option {
	return Option{optInfra, func(w *World) error {
		w.log = l
		return nil
	}}
}

// WithAgent spawns an agent.
func WithAgent(s AgentSpec) Option {
	return Option{optAgent, func(w *World) error {
		_, err := w.Spawn(s)
		return err
	}}
}

// WithGoTo orders the labelled agents to p.
func WithGoTo(p vmath.Vec3, labels ...string) Option {
	return Option{optOrder, func(w *World) error {
		agents, err := w.lookup(labels)
		if err != nil {
			return err
		}
		_, err = w.CommandGoTo(agents, p)
		return err
	}}
}

// WithPatrol orders the labelled agents to patrol to p.
func WithPatrol(p vmath.Vec3, labels ...string) Option {
	return Option{optOrder, func(w *World) error {
		agents, err := w.lookup(labels)
		if err != nil {
			return err
		}
		_, err = w.CommandPatrol(agents, p)
		return err
	}}
}

// WithFollow orders the labelled agents to follow target.
func WithFollow(target string, labels ...string) Option {
	return Option{optOrder, func(w *World) error {
		t, err := w.lookupOne(target)
		if err != nil {
			return err
		}
		agents, err := w.lookup(labels)
		if err != nil {
			return err
		}
		_, err = w.CommandFollow(agents, t)
		return err
	}}
}

// WithAttack orders the labelled agents to attack target.
func WithAttack(target string, labels ...string) Option {
	return Option{optOrder, func(w *World) error {
		t, err := w.lookupOne(target)
		if err != nil {
			return err
		}
		agents, err := w.lookup(labels)
		if err != nil {
			return err
		}
		_, err = w.CommandAttack(agents, t)
		return err
	}}
}

// WithGroupOptions appends command options to every order issued by the
// order pass.
func WithGroupOptions(opts ...command.Option) Option {
	return Option{optInfra, func(w *World) error {
		w.groupOpts = append(w.groupOpts, opts...)
		return nil
	}}
}

func (w *World) lookupOne(label string) (*Agent, error) {
	a, ok := w.byLabel[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, label)
	}
	return a, nil
}

func (w *World) lookup(labels []string) ([]*Agent, error) {
	out := make([]*Agent, 0, len(labels))
	for _, l := range labels {
		a, err := w.lookupOne(l)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// New builds a World from options in ordered passes: config, infrastructure,
// then the nav grid and behaviours, then agents, then orders.
func New(opts ...Option) (*World, error) {
	w := &World{
		width:   128,
		depth:   128,
		cfg:     config.Default().Sim,
		grid:    spatial.NewGrid[*Agent](),
		byLabel: make(map[string]*Agent),
		members: make(map[*Agent]*command.CommandUnit),
		simLog:  NewSimLog(false),
		log:     zerolog.Nop(),
		rng:     rand.New(rand.NewSource(1)), // #nosec G404 -- simulation rng
	}
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}
	w.metrics = m

	for _, pass := range []optionKind{optConfig, optInfra, optAgent, optOrder} {
		if pass == optAgent {
			if err := (config.Config{Sim: w.cfg}).Validate(); err != nil {
				w.Close()
				return nil, err
			}
			w.build()
		}
		for _, o := range opts {
			if o.kind != pass {
				continue
			}
			if err := o.fn(w); err != nil {
				w.Close()
				return nil, err
			}
		}
	}
	return w, nil
}
