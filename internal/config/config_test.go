package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := `
logLevel: debug
sim:
  tickRate: 30
  followDistance: 4
  formation: wedge
report:
  dbPath: runs.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unitcommander.yaml"), []byte(cfg), 0o644))

	c, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 30, c.Sim.TickRate)
	assert.Equal(t, 4.0, c.Sim.FollowDistance)
	assert.Equal(t, "wedge", c.Sim.Formation)
	assert.Equal(t, "runs.db", c.Report.DBPath)
	// untouched keys keep their defaults
	assert.Equal(t, 1.0, c.Sim.RepathDistance)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, 60, c.Sim.TickRate)
	assert.Equal(t, 0.1, c.Sim.ReachXZ)
	assert.Equal(t, 1.0, c.Sim.VerticalTolerance)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("UNITCMD_SIM_TICKRATE", "20")
	c, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 20, c.Sim.TickRate)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unitcommander.yaml"), []byte("sim: [1, 2"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unitcommander.yaml"), []byte("sim:\n  tickRate: 0\n"), 0o644))

	_, err := Load(dir)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_RejectsNegativeSeparationTilt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unitcommander.yaml"), []byte("sim:\n  separationTilt: -1\n"), 0o644))

	_, err := Load(dir)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "separationTilt")
}

func TestTickDuration(t *testing.T) {
	assert.InDelta(t, 1.0/60, Default().Sim.TickDuration(), 1e-12)
}
