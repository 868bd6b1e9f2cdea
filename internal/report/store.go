package report

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/peterstace/simplefeatures/geom"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Garsondee/Unit-Commander/internal/sim"
	"github.com/Garsondee/Unit-Commander/internal/spatial"
)

// Run is one stored simulation run.
type Run struct {
	ID         uint `gorm:"primarykey"`
	CreatedAt  time.Time
	Name       string `gorm:"index"`
	Seed       int64
	Ticks      int
	Agents     int
	Alive      int
	Arrivals   int
	Detours    int
	Incomplete int
	Summary    string
	States     []AgentState `gorm:"constraint:OnDelete:CASCADE"`
}

// AgentState is an agent's final state in a run. Footprint is the WKT of
// the footprint's horizontal outline.
type AgentState struct {
	ID        uint `gorm:"primarykey"`
	RunID     uint `gorm:"index"`
	Label     string
	Team      string
	Alive     bool
	X, Y, Z   float64
	Health    float64
	Footprint string
}

// Store saves runs to a SQLite database.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// OpenStore opens (and migrates) the database at path. An empty path opens
// a private in-memory database.
func OpenStore(path string, log zerolog.Logger) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %q: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	// a single connection keeps an in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	if err := db.AutoMigrate(&Run{}, &AgentState{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	if path == "" {
		log.Info().Msg("Using in-memory SQLite run store")
	} else {
		log.Info().Str("path", path).Msg("Using SQLite run store")
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRun records the world's current state under name.
func (s *Store) SaveRun(w *sim.World, name string, seed int64) (*Run, error) {
	log := w.SimLog()
	run := &Run{
		Name:       name,
		Seed:       seed,
		Ticks:      w.Tick(),
		Agents:     len(w.Agents()),
		Arrivals:   log.CountCategory(sim.CatUnit, "arrived"),
		Detours:    log.CountCategory(sim.CatDetour, "pushed"),
		Incomplete: log.CountCategory(sim.CatRoute, "incomplete"),
		Summary:    w.Summary(),
	}
	for _, a := range w.Agents() {
		if a.Alive() {
			run.Alive++
		}
		p := a.Position()
		run.States = append(run.States, AgentState{
			Label:     a.Label(),
			Team:      string(a.Team()),
			Alive:     a.Alive(),
			X:         p.X,
			Y:         p.Y,
			Z:         p.Z,
			Health:    a.Health(),
			Footprint: FootprintWKT(a.Footprint()),
		})
	}
	if err := s.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("saving run %q: %w", name, err)
	}
	s.log.Debug().Uint("run", run.ID).Str("name", name).Int("agents", run.Agents).Msg("run saved")
	return run, nil
}

// Runs lists stored runs, newest first, without agent states.
func (s *Store) Runs() ([]Run, error) {
	var runs []Run
	if err := s.db.Order("id desc").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Run loads one run with its agent states.
func (s *Store) Run(id uint) (*Run, error) {
	var run Run
	if err := s.db.Preload("States").First(&run, id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// FootprintWKT renders the horizontal outline of f as a WKT polygon.
func FootprintWKT(f spatial.Footprint) string {
	return FootprintPolygon(f).AsText()
}

// FootprintPolygon is the closed XZ outline of f's top face.
func FootprintPolygon(f spatial.Footprint) geom.Polygon {
	c := f.Corners()
	flat := make([]float64, 0, 10)
	for i := 0; i < 4; i++ {
		flat = append(flat, c[i].X, c[i].Z)
	}
	flat = append(flat, c[0].X, c[0].Z)
	ring := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	return geom.NewPolygon([]geom.LineString{ring})
}
