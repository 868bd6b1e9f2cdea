package main

import (
	"flag"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog"

	"github.com/Garsondee/Unit-Commander/internal/config"
	"github.com/Garsondee/Unit-Commander/internal/scenario"
	"github.com/Garsondee/Unit-Commander/internal/sim"
	"github.com/Garsondee/Unit-Commander/internal/view"
)

const (
	windowWidth  = 1600
	windowHeight = 900
)

func main() {
	configDir := flag.String("config", ".", "directory holding unitcommander.yaml")
	scenarioPath := flag.String("scenario", "scenarios/crossing.yaml", "scenario file")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(lvl)
	}

	sc, err := scenario.Load(*scenarioPath)
	if err != nil {
		log.Fatal().Err(err).Str("scenario", *scenarioPath).Msg("failed to load scenario")
	}
	w, err := sc.Build(sim.WithConfig(cfg.Sim), sim.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build world")
	}
	defer w.Close()
	log.Info().Str("scenario", sc.Name).Int("agents", len(w.Agents())).Msg("world ready")

	ebiten.SetWindowTitle("Unit Commander - " + sc.Name)
	ebiten.SetWindowSize(windowWidth, windowHeight)
	ebiten.SetTPS(cfg.Sim.TickRate)
	if err := ebiten.RunGame(view.New(w, sc, windowWidth, windowHeight)); err != nil {
		log.Error().Err(err).Msg("game exited")
	}
}
