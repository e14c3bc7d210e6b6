package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveColorIntensityBoth(t *testing.T) {
	cfg := testConfig()
	p := DefaultParams()
	p.Intensity = 1
	d, err := NewDescriptor(p, cfg)
	require.NoError(t, err)

	// green background 0 scales to 0.5
	lv := resolveColor(d, [3]float64{-1, 0, -1}, nil)

	assert.InDelta(t, 0.5, lv.Background, 1e-12)
	assert.InDelta(t, 0.5, lv.Delta, 1e-12)
	assert.InDelta(t, 1, lv.High, 1e-12)
	assert.InDelta(t, -1, lv.Low, 1e-12)
}

func TestResolveColorIntensitySingle(t *testing.T) {
	cfg := testConfig()
	p := DefaultParams()
	p.Intensity = 1
	p.IntensityDir = DirSingle
	d, err := NewDescriptor(p, cfg)
	require.NoError(t, err)

	lv := resolveColor(d, [3]float64{-1, 0, -1}, nil)

	// one-sided swing: low rises to the old background, delta halves and the
	// background moves to the new midpoint
	assert.InDelta(t, 0.75, lv.Background, 1e-12)
	assert.InDelta(t, 0.25, lv.Delta, 1e-12)
	assert.InDelta(t, 1, lv.High, 1e-12)
	assert.InDelta(t, 0, lv.Low, 1e-12)
}

func TestResolveColorIntensityScalesWithBackground(t *testing.T) {
	cfg := testConfig()
	p := DefaultParams()
	p.Intensity = 0.5
	d, err := NewDescriptor(p, cfg)
	require.NoError(t, err)

	lv := resolveColor(d, [3]float64{-1, 0.5, -1}, nil)

	bg := 0.75 // (0.5+1)/2
	assert.InDelta(t, bg*0.5, lv.Delta, 1e-12)
	assert.InDelta(t, (bg+bg*0.5)*2-1, lv.High, 1e-12)
	assert.InDelta(t, (bg-bg*0.5)*2-1, lv.Low, 1e-12)
}

func TestResolveColorRGB(t *testing.T) {
	cfg := testConfig()
	p := DefaultParams()
	p.ColorMode = ColorRGB
	p.Color = [3]float64{-1, 1, 0}
	p.Alpha = 0.5
	d, err := NewDescriptor(p, cfg)
	require.NoError(t, err)

	lv := resolveColor(d, [3]float64{0, 0, 0}, nil)

	assert.Equal(t, [4]float64{0, 1, 0.5, 0.5}, lv.HighRGBA)
	assert.Equal(t, [4]float64{0.5, 0.5, 0.5, 0.5}, lv.LowRGBA)
	// contrast channel is green
	assert.InDelta(t, 0.5, lv.Delta, 1e-12)
}

func TestResolveColorGamma(t *testing.T) {
	cfg := testConfig()
	p := DefaultParams()
	p.Intensity = 1
	d, err := NewDescriptor(p, cfg)
	require.NoError(t, err)

	g := &TableGamma{}
	for ch := 0; ch < 3; ch++ {
		g.in[ch] = []float64{-1, 1}
		g.out[ch] = []float64{-0.5, 0.5}
	}
	lv := resolveColor(d, [3]float64{-1, 0, -1}, g)

	assert.InDelta(t, 0.5, lv.High, 1e-12)
	assert.InDelta(t, -0.5, lv.Low, 1e-12)
}

func TestBoardLevels(t *testing.T) {
	lv := Levels{Mode: ColorIntensity, High: 0.8, Low: -0.2}
	high, low := lv.boardLevels(1)
	assert.Equal(t, 0.8, high)
	assert.Equal(t, -0.2, low)

	lv = Levels{Mode: ColorRGB, HighRGBA: [4]float64{0, 1, 0, 1}, LowRGBA: [4]float64{0.5, 0.5, 0.5, 1}}
	high, low = lv.boardLevels(1)
	assert.InDelta(t, 1, high, 1e-12)
	assert.InDelta(t, 0, low, 1e-12)
}
