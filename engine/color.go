package engine

// Levels are the resolved color levels for one stimulus: the high and low
// values the fill swings between, the channel delta, and the (possibly
// shifted) background level. Delta and Background live in [0, 1] space;
// High and Low are unscaled back to the [-1, 1] display range.
type Levels struct {
	Mode       ColorMode
	HighRGBA   [4]float64 // rgb mode: stimulus color scaled to [0, 1] + alpha
	LowRGBA    [4]float64 // rgb mode: background scaled to [0, 1] + alpha
	High       float64    // intensity mode, [-1, 1], gamma corrected
	Low        float64    // intensity mode, [-1, 1], gamma corrected
	Delta      float64
	Background float64
}

// resolveColor computes the color levels for a descriptor against the window
// background.
//
// In intensity mode the swing is relative to the background level in the
// contrast channel: delta = background * intensity. Single-direction
// modulation raises the low level up to the background, halves the delta and
// shifts the background to the new midpoint, so the modulation is one-sided.
// Gamma correction applies to the unscaled high/low except for image fills,
// which are corrected at load time.
func resolveColor(d *Descriptor, windowBG [3]float64, g Gamma) Levels {
	background := (windowBG[d.ContrastChannel] + 1) / 2

	lv := Levels{Mode: d.ColorMode}

	switch d.ColorMode {
	case ColorRGB:
		for i := 0; i < 3; i++ {
			lv.HighRGBA[i] = (d.Color[i] + 1) / 2
			lv.LowRGBA[i] = (windowBG[i] + 1) / 2
		}
		lv.HighRGBA[3] = d.Alpha
		lv.LowRGBA[3] = d.Alpha
		lv.Delta = lv.HighRGBA[d.ContrastChannel] - lv.LowRGBA[d.ContrastChannel]
		lv.Background = background

	case ColorIntensity:
		delta := background * d.Intensity
		high := background + delta
		low := background - delta

		if d.IntensityDir == DirSingle {
			low += delta
			delta /= 2
			background += delta
		}

		high = high*2 - 1
		low = low*2 - 1

		if d.Fill != FillImage {
			high = gammaCorrect(g, high, d.ContrastChannel)
			low = gammaCorrect(g, low, d.ContrastChannel)
		}

		lv.High = high
		lv.Low = low
		lv.Delta = delta
		lv.Background = background
	}

	return lv
}

// boardLevels returns the high/low cell colors for element-array fills in
// the [-1, 1] display range, whichever color mode is active.
func (lv Levels) boardLevels(channel int) (high, low float64) {
	if lv.Mode == ColorRGB {
		return lv.HighRGBA[channel]*2 - 1, lv.LowRGBA[channel]*2 - 1
	}
	return lv.High, lv.Low
}
