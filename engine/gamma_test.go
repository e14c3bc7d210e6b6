package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gammaFixture = `# calibration 2024-11-03
[rig1]
red -1 -1
red 0 -0.2
red 1 1
green -1 -1
green 1 1

[rig2]
blue -1 -0.9
blue 1 0.9
`

func writeGamma(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gamma.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadGammaTables(t *testing.T) {
	tables, err := LoadGammaTables(writeGamma(t, gammaFixture))
	require.NoError(t, err)
	require.Contains(t, tables, "rig1")
	require.Contains(t, tables, "rig2")

	g := tables["rig1"]
	assert.InDelta(t, -0.2, g.Correct(0, 0), 1e-12, "exact sample")
	assert.InDelta(t, 0.4, g.Correct(0.5, 0), 1e-12, "interpolated between 0 and 1")
	assert.InDelta(t, -0.6, g.Correct(-0.5, 0), 1e-12)

	// channel without samples passes through
	assert.Equal(t, 0.3, g.Correct(0.3, 2))
}

func TestGammaClampsOutOfRange(t *testing.T) {
	tables, err := LoadGammaTables(writeGamma(t, gammaFixture))
	require.NoError(t, err)

	g := tables["rig2"]
	assert.Equal(t, -0.9, g.Correct(-2, 2))
	assert.Equal(t, 0.9, g.Correct(2, 2))
}

func TestLoadGammaTablesErrors(t *testing.T) {
	_, err := LoadGammaTables(writeGamma(t, "red -1 -1\n"))
	assert.Error(t, err, "sample before a profile header")

	_, err = LoadGammaTables(writeGamma(t, "[p]\nred -1\n"))
	assert.Error(t, err)

	_, err = LoadGammaTables(writeGamma(t, "[p]\ncyan -1 -1\n"))
	assert.Error(t, err)

	_, err = LoadGammaTables(writeGamma(t, "[p]\nred 1 1\nred -1 -1\n"))
	assert.Error(t, err, "samples out of ascending order")
}

func TestGammaForProfile(t *testing.T) {
	path := writeGamma(t, gammaFixture)

	cfg := DefaultConfig()
	g, err := GammaForProfile(cfg, path)
	require.NoError(t, err)
	assert.Nil(t, g, "the default profile means no correction")

	cfg.GammaProfile = "rig1"
	g, err = GammaForProfile(cfg, path)
	require.NoError(t, err)
	assert.NotNil(t, g)

	cfg.GammaProfile = "missing"
	_, err = GammaForProfile(cfg, path)
	assert.Error(t, err)
}
