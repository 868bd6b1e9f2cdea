// Package config loads unitcommander.yaml through viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "unitcommander"

// EnvPrefix prefixes environment overrides, e.g. UNITCMD_SIM_TICKRATE.
const EnvPrefix = "UNITCMD"

// SimConfig holds the simulation tunables.
type SimConfig struct {
	TickRate          int     `mapstructure:"tickRate"`
	ReachXZ           float64 `mapstructure:"reachXZ"`
	VerticalTolerance float64 `mapstructure:"verticalTolerance"`
	IntermediateSlack float64 `mapstructure:"intermediateSlack"`
	RepathDistance    float64 `mapstructure:"repathDistance"`
	FollowDistance    float64 `mapstructure:"followDistance"`
	SeparationReach   float64 `mapstructure:"separationReach"`
	SeparationWeight  float64 `mapstructure:"separationWeight"`
	SeparationTilt    float64 `mapstructure:"separationTilt"`
	NavCellSize       float64 `mapstructure:"navCellSize"`
	NavPadding        float64 `mapstructure:"navPadding"`
	AttackDPS         float64 `mapstructure:"attackDPS"`
	Formation         string  `mapstructure:"formation"`
	FormationSpacing  float64 `mapstructure:"formationSpacing"`
}

// ReportConfig holds output locations for the headless runner.
type ReportConfig struct {
	TracePath string `mapstructure:"tracePath"`
	DBPath    string `mapstructure:"dbPath"`
}

// Config is the full application configuration.
type Config struct {
	LogLevel string       `mapstructure:"logLevel"`
	Sim      SimConfig    `mapstructure:"sim"`
	Report   ReportConfig `mapstructure:"report"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")

	v.SetDefault("sim.tickRate", 60)
	v.SetDefault("sim.reachXZ", 0.1)
	v.SetDefault("sim.verticalTolerance", 1.0)
	v.SetDefault("sim.intermediateSlack", 0.0)
	v.SetDefault("sim.repathDistance", 1.0)
	v.SetDefault("sim.followDistance", 2.0)
	v.SetDefault("sim.separationReach", 2.5)
	v.SetDefault("sim.separationWeight", 1.5)
	v.SetDefault("sim.separationTilt", 0.5)
	v.SetDefault("sim.navCellSize", 1.0)
	v.SetDefault("sim.navPadding", 0.5)
	v.SetDefault("sim.attackDPS", 25.0)
	v.SetDefault("sim.formation", "none")
	v.SetDefault("sim.formationSpacing", 1.5)

	v.SetDefault("report.tracePath", "")
	v.SetDefault("report.dbPath", "")
}

// Default returns the configuration with every default applied.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	// Defaults alone always decode.
	_ = v.Unmarshal(&c)
	return c
}

// Load reads unitcommander.yaml from configDir. A missing file is not an
// error: defaults and environment overrides still apply.
func Load(configDir string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid value")

// Validate checks the values the simulation cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Sim.TickRate <= 0:
		return fmt.Errorf("%w: sim.tickRate must be positive, got %d", ErrInvalid, c.Sim.TickRate)
	case c.Sim.NavCellSize <= 0:
		return fmt.Errorf("%w: sim.navCellSize must be positive, got %g", ErrInvalid, c.Sim.NavCellSize)
	case c.Sim.ReachXZ <= 0:
		return fmt.Errorf("%w: sim.reachXZ must be positive, got %g", ErrInvalid, c.Sim.ReachXZ)
	case c.Sim.SeparationTilt < 0:
		return fmt.Errorf("%w: sim.separationTilt must not be negative, got %g", ErrInvalid, c.Sim.SeparationTilt)
	}
	return nil
}

// TickDuration is the simulated seconds per tick.
func (s SimConfig) TickDuration() float64 { return 1 / float64(s.TickRate) }
