package engine

import (
	"math"
)

// Texture is a CPU-side RGBA buffer. Color channels are in [-1, 1] (display
// range, 0 = background gray), alpha in [0, 1]. Renderers convert on upload.
type Texture struct {
	W, H int
	Pix  []float64 // stride 4, row major
}

// NewTexture returns a buffer with all color channels at -1 and the given
// alpha.
func NewTexture(w, h int, alpha float64) *Texture {
	t := &Texture{W: w, H: h, Pix: make([]float64, w*h*4)}
	for i := 0; i < len(t.Pix); i += 4 {
		t.Pix[i] = -1
		t.Pix[i+1] = -1
		t.Pix[i+2] = -1
		t.Pix[i+3] = alpha
	}
	return t
}

func (t *Texture) At(x, y int) [4]float64 {
	i := (y*t.W + x) * 4
	return [4]float64{t.Pix[i], t.Pix[i+1], t.Pix[i+2], t.Pix[i+3]}
}

func (t *Texture) Set(x, y int, c [4]float64) {
	i := (y*t.W + x) * 4
	t.Pix[i], t.Pix[i+1], t.Pix[i+2], t.Pix[i+3] = c[0], c[1], c[2], c[3]
}

// SetChannel writes one color channel of one pixel.
func (t *Texture) SetChannel(x, y, ch int, v float64) {
	t.Pix[(y*t.W+x)*4+ch] = v
}

// FillChannel writes one color channel of every pixel.
func (t *Texture) FillChannel(ch int, v float64) {
	for i := ch; i < len(t.Pix); i += 4 {
		t.Pix[i] = v
	}
}

// GenerateTexture produces the square texture for a descriptor's shape, fill
// and color levels. Image fills load through LoadImageTexture instead;
// movie and board fills have no texture.
func GenerateTexture(d *Descriptor, lv Levels, g Gamma) (*Texture, error) {
	if d.Fill == FillImage {
		return LoadImageTexture(d, g)
	}

	side := int(d.MaxExtent() + 0.5)
	if side < 1 {
		return nil, &ConfigError{Stim: d.Name, Reason: "stimulus size rounds to zero pixels"}
	}
	t := NewTexture(side, side, d.Alpha)

	switch d.Fill {
	case FillUniform:
		if d.ColorMode == ColorRGB {
			for i := 0; i < 3; i++ {
				t.FillChannel(i, lv.HighRGBA[i]*2-1)
			}
		} else {
			t.FillChannel(d.ContrastChannel, (lv.Background+lv.Delta)*2-1)
		}

	case FillSine:
		fillGrating(t, d.ContrastChannel, lv, func(v float64) float64 { return v })

	case FillSquare:
		fillGrating(t, d.ContrastChannel, lv, func(v float64) float64 {
			if v >= 0 {
				return 1
			}
			return -1
		})

	case FillConcentric:
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				r := radialNorm(x, y, side)
				color := math.Sin(r*2-1)*lv.Delta + lv.Background
				t.SetChannel(x, y, d.ContrastChannel, color*2-1)
			}
		}

	default:
		return nil, &ConfigError{Stim: d.Name, Reason: "fill mode " + d.Fill.String() + " has no texture"}
	}

	if g != nil {
		for i := 0; i < len(t.Pix); i += 4 {
			t.Pix[i] = g.Correct(t.Pix[i], 0)
			t.Pix[i+1] = g.Correct(t.Pix[i+1], 1)
			t.Pix[i+2] = g.Correct(t.Pix[i+2], 2)
		}
	}

	maskShape(t, d)
	return t, nil
}

// fillGrating writes a one-cycle horizontal grating scaled by the color
// levels. shape maps the raw sinusoid to the grating profile.
func fillGrating(t *Texture, ch int, lv Levels, shape func(float64) float64) {
	for x := 0; x < t.W; x++ {
		v := shape(math.Sin(2 * math.Pi * float64(x) / float64(t.W)))
		color := v*lv.Delta + lv.Background
		for y := 0; y < t.H; y++ {
			t.SetChannel(x, y, ch, color*2-1)
		}
	}
}

// radialNorm is the distance of pixel (x, y) from the buffer center,
// normalized so the half-width maps to 1.
func radialNorm(x, y, side int) float64 {
	half := float64(side-1) / 2
	nx := (float64(x) - half) / half
	ny := (float64(y) - half) / half
	return math.Hypot(nx, ny)
}

// maskShape bakes the stimulus shape into the alpha channel: circles and
// annuli are transparent outside the outer radius, and annuli additionally
// inside the inner radius. Both cutoffs compare the radial distance
// normalized by the half-width, so the inner threshold is
// innerDiameter/outerDiameter of the outer radius.
func maskShape(t *Texture, d *Descriptor) {
	if d.Shape == ShapeRectangle {
		return
	}
	side := t.W
	half := float64(side) / 2
	inner := d.InnerDiameter / d.OuterDiameter
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			dx := float64(x) + 0.5 - half
			dy := float64(y) + 0.5 - half
			dist := math.Hypot(dx, dy)
			if dist > half {
				t.Set(x, y, [4]float64{-1, -1, -1, 0})
				continue
			}
			if d.Shape == ShapeAnnulus && dist/half < inner {
				t.Set(x, y, [4]float64{-1, -1, -1, 0})
			}
		}
	}
}

// timingValue evaluates the timing-modulation waveform at elapsed fraction
// f, in the raw [-1, 1] range before delta/background scaling. periodMod is
// cycle count times two, as resolved by the descriptor.
func timingValue(mode TimingMode, dir IntensityDir, periodMod, f float64) float64 {
	switch mode {
	case TimingSine:
		if dir == DirSingle {
			return math.Sin(periodMod*math.Pi*f - math.Pi/2)
		}
		return math.Sin(periodMod * math.Pi * f)

	case TimingSquare:
		phase := math.Mod(periodMod*math.Pi*f, 2*math.Pi) / (2 * math.Pi)
		if phase < 0 {
			phase += 1
		}
		if phase < 0.5 {
			return 1
		}
		return -1

	case TimingSawtooth:
		// triangle wave: rises over the first half period, falls over the second
		phase := math.Mod(periodMod*math.Pi*f, 2*math.Pi) / (2 * math.Pi)
		if phase < 0 {
			phase += 1
		}
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase

	case TimingLinear:
		return f*2 - 1
	}
	return 0
}

// applyTiming recomputes the contrast channel of an existing texture for the
// current frame. Cheap incremental update: only the single channel changes,
// the rest of the buffer (including the shape mask) is untouched.
func applyTiming(t *Texture, d *Descriptor, lv Levels, frameSinceStart, drawDuration int, g Gamma) {
	f := float64(frameSinceStart) / float64(drawDuration)
	color := timingValue(d.Timing, d.IntensityDir, d.PeriodMod, f)*lv.Delta + lv.Background
	color = color*2 - 1
	if d.Fill != FillImage {
		color = gammaCorrect(g, color, d.ContrastChannel)
	}
	t.FillChannel(d.ContrastChannel, color)
}
