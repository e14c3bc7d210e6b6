package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformRect(t *testing.T, cfg *Config, mutate func(*Params)) (*Descriptor, Levels) {
	t.Helper()
	p := DefaultParams()
	p.Shape = ShapeRectangle
	p.Fill = FillUniform
	p.Size = [2]float64{10, 10}
	if mutate != nil {
		mutate(&p)
	}
	d, err := NewDescriptor(p, cfg)
	require.NoError(t, err)
	return d, resolveColor(d, [3]float64{-1, 0, -1}, nil)
}

func TestGenerateTextureUniform(t *testing.T) {
	cfg := testConfig()
	cfg.PixPerMicron = 1
	d, lv := uniformRect(t, cfg, nil)

	tex, err := GenerateTexture(d, lv, nil)
	require.NoError(t, err)
	require.Equal(t, 10, tex.W)
	require.Equal(t, 10, tex.H)

	want := (lv.Background + lv.Delta)*2 - 1
	for y := 0; y < tex.H; y++ {
		for x := 0; x < tex.W; x++ {
			px := tex.At(x, y)
			assert.InDelta(t, want, px[1], 1e-12)
			assert.Equal(t, -1.0, px[0], "untouched channels stay at the floor")
			assert.Equal(t, -1.0, px[2])
			assert.Equal(t, 1.0, px[3])
		}
	}
}

func TestGenerateTextureSquareGrating(t *testing.T) {
	cfg := testConfig()
	cfg.PixPerMicron = 1
	d, lv := uniformRect(t, cfg, func(p *Params) { p.Fill = FillSquare })

	tex, err := GenerateTexture(d, lv, nil)
	require.NoError(t, err)

	high := (lv.Background+lv.Delta)*2 - 1
	low := (lv.Background-lv.Delta)*2 - 1
	for x := 0; x < tex.W; x++ {
		v := tex.At(x, 0)[1]
		if v != high && v != low {
			t.Fatalf("column %d: value %g is neither high %g nor low %g", x, v, high, low)
		}
	}
	// one cycle across the texture: first half high, second half low
	assert.InDelta(t, high, tex.At(1, 0)[1], 1e-12)
	assert.InDelta(t, low, tex.At(tex.W-1, 0)[1], 1e-12)
}

func TestGenerateTextureSineGratingMidpoint(t *testing.T) {
	cfg := testConfig()
	cfg.PixPerMicron = 1
	d, lv := uniformRect(t, cfg, func(p *Params) { p.Fill = FillSine })

	tex, err := GenerateTexture(d, lv, nil)
	require.NoError(t, err)

	// sin(0) at x=0 leaves the background level
	assert.InDelta(t, lv.Background*2-1, tex.At(0, 0)[1], 1e-12)
}

func TestMaskCircle(t *testing.T) {
	cfg := testConfig()
	cfg.PixPerMicron = 1
	d, lv := uniformRect(t, cfg, func(p *Params) {
		p.Shape = ShapeCircle
		p.OuterDiameter = 10
	})

	tex, err := GenerateTexture(d, lv, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, tex.At(0, 0)[3], "corner is outside the circle")
	assert.Equal(t, 1.0, tex.At(5, 5)[3], "center is inside")
}

func TestMaskAnnulus(t *testing.T) {
	cfg := testConfig()
	cfg.PixPerMicron = 1
	d, lv := uniformRect(t, cfg, func(p *Params) {
		p.Shape = ShapeAnnulus
		p.OuterDiameter = 10
		p.InnerDiameter = 4
	})

	tex, err := GenerateTexture(d, lv, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, tex.At(0, 0)[3], "corner is outside the outer radius")
	assert.Equal(t, 0.0, tex.At(5, 5)[3], "center is inside the cutoff")
	assert.Equal(t, 1.0, tex.At(9, 5)[3], "ring itself is opaque")
	// (7,5) sits 2.55 px from center, past the 2 px inner radius
	assert.Equal(t, 1.0, tex.At(7, 5)[3], "inner cutoff is half the inner diameter")
}

func TestMaskAnnulusDefaultDiameters(t *testing.T) {
	cfg := testConfig()
	cfg.PixPerMicron = 1
	d, lv := uniformRect(t, cfg, func(p *Params) { p.Shape = ShapeAnnulus })

	tex, err := GenerateTexture(d, lv, nil)
	require.NoError(t, err)
	require.Equal(t, 75, tex.W)

	// outer 75, inner 40: the ring spans radii 20..37.5
	assert.Equal(t, 1.0, tex.At(67, 37)[3], "30 px from center is on the ring")
	assert.Equal(t, 0.0, tex.At(52, 37)[3], "15 px from center is inside the cutoff")

	opaque := 0
	for y := 0; y < tex.H; y++ {
		for x := 0; x < tex.W; x++ {
			if tex.At(x, y)[3] > 0 {
				opaque++
			}
		}
	}
	assert.Greater(t, opaque, 0, "the default annulus is visible")
}

func TestGenerateTextureRejectsBoardFills(t *testing.T) {
	cfg := testConfig()
	cfg.PixPerMicron = 1
	d, lv := uniformRect(t, cfg, func(p *Params) { p.Fill = FillCheckerboard })

	_, err := GenerateTexture(d, lv, nil)
	assert.Error(t, err)
}

func TestTimingValueLinear(t *testing.T) {
	assert.InDelta(t, -1, timingValue(TimingLinear, DirBoth, 2, 0), 1e-12)
	assert.InDelta(t, 0, timingValue(TimingLinear, DirBoth, 2, 0.5), 1e-12)
	assert.InDelta(t, 1, timingValue(TimingLinear, DirBoth, 2, 1), 1e-12)
}

func TestTimingValueSine(t *testing.T) {
	// both directions start at the background level
	assert.InDelta(t, 0, timingValue(TimingSine, DirBoth, 2, 0), 1e-12)
	// single direction starts at the trough
	assert.InDelta(t, -1, timingValue(TimingSine, DirSingle, 2, 0), 1e-12)
	assert.InDelta(t, 0, timingValue(TimingSine, DirSingle, 2, 0.25), 1e-12)
}

func TestTimingValueSquare(t *testing.T) {
	assert.Equal(t, 1.0, timingValue(TimingSquare, DirBoth, 2, 0.25))
	assert.Equal(t, -1.0, timingValue(TimingSquare, DirBoth, 2, 0.75))
}

func TestTimingValueSawtooth(t *testing.T) {
	assert.InDelta(t, -1, timingValue(TimingSawtooth, DirBoth, 2, 0), 1e-12)
	assert.InDelta(t, 0, timingValue(TimingSawtooth, DirBoth, 2, 0.25), 1e-12)
	assert.InDelta(t, 1, timingValue(TimingSawtooth, DirBoth, 2, 0.5), 1e-12)
	assert.InDelta(t, 0, timingValue(TimingSawtooth, DirBoth, 2, 0.75), 1e-12)
}

func TestApplyTimingOnlyTouchesContrastChannel(t *testing.T) {
	cfg := testConfig()
	cfg.PixPerMicron = 1
	d, lv := uniformRect(t, cfg, func(p *Params) { p.Timing = TimingLinear })

	tex, err := GenerateTexture(d, lv, nil)
	require.NoError(t, err)

	applyTiming(tex, d, lv, 10, 10, nil)

	want := (1*lv.Delta + lv.Background) * 2 // timing value 1 at f=1
	want -= 1
	px := tex.At(3, 3)
	assert.InDelta(t, want, px[1], 1e-12)
	assert.Equal(t, -1.0, px[0])
	assert.Equal(t, -1.0, px[2])
}

func TestRadialNormCenterAndCorner(t *testing.T) {
	assert.InDelta(t, 0, radialNorm(5, 5, 11), 1e-12)
	assert.InDelta(t, math.Sqrt2, radialNorm(0, 0, 11), 1e-12)
}
