package engine

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the experiment-wide constants. It is built once before a run
// and passed by pointer to every component; nothing mutates it afterwards.
//
// All physical quantities entering the engine are converted through this
// struct exactly once, so downstream code only ever sees frames and pixels.
type Config struct {
	FrameRate    float64    // monitor frame rate, Hz
	PixPerMicron float64    // pixels per micron of retinal space
	Scale        float64    // extra scale factor applied by the renderer
	DisplaySize  [2]float64 // window size, px
	WindowPos    [2]int     // window position on the desktop, px
	Offset       [2]float64 // view center offset, px (converted from microns)
	ProtocolReps int        // repetitions of the full stimulus list
	Background   [3]float64 // window background, RGB in [-1, 1]
	PrefDir      float64    // preferred direction override; -1 = unset
	Fullscreen   bool
	ScreenNum    int
	GammaProfile string  // named calibration profile, "default" = none
	TriggerWait  float64 // warm-up between initial pulse and first stim, seconds
	Log          bool
	LogDir       string
	DLPDevice    string // serial device of the trigger box, "" = none
}

func DefaultConfig() *Config {
	return &Config{
		FrameRate:    75,
		PixPerMicron: 1,
		Scale:        1,
		DisplaySize:  [2]float64{400, 400},
		ProtocolReps: 1,
		Background:   [3]float64{-1, 0, -1},
		PrefDir:      -1,
		ScreenNum:    1,
		GammaProfile: "default",
		TriggerWait:  0.1,
		LogDir:       "logs",
	}
}

// Frames converts seconds to a whole frame count, rounding up. The 0.99
// guard keeps exact multiples of the frame period from spilling into an
// extra frame through floating error.
func (c *Config) Frames(sec float64) int {
	return int(sec*c.FrameRate + 0.99)
}

// Pix converts microns to pixels.
func (c *Config) Pix(um float64) float64 {
	return um * c.PixPerMicron
}

// PxPerFrame converts a speed in microns per second to pixels per frame.
func (c *Config) PxPerFrame(umPerSec float64) float64 {
	return umPerSec * c.PixPerMicron / c.FrameRate
}

// WarmupFrames is the number of frames the background is held between the
// initial trigger pulse and the first stimulus frame.
func (c *Config) WarmupFrames() int {
	return c.Frames(c.TriggerWait)
}

// ParseRGB parses "r,g,b" with components in [-1, 1].
func ParseRGB(s string) ([3]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]float64{}, fmt.Errorf("color %q: want 3 comma-separated values", s)
	}
	var rgb [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return [3]float64{}, fmt.Errorf("color %q: %v", s, err)
		}
		rgb[i] = v
	}
	return rgb, nil
}

const CacheFile = ".retistim_cache"

// SaveCache persists the handful of settings worth remembering between
// sessions. Best effort; failures are ignored.
func (c *Config) SaveCache() {
	f, err := os.Create(CacheFile)
	if err != nil {
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "frame_rate=%g\n", c.FrameRate)
	fmt.Fprintf(f, "pix_per_micron=%g\n", c.PixPerMicron)
	fmt.Fprintf(f, "display=%g,%g\n", c.DisplaySize[0], c.DisplaySize[1])
	fmt.Fprintf(f, "gamma_profile=%s\n", c.GammaProfile)
	fmt.Fprintf(f, "dlp_device=%s\n", c.DLPDevice)
	fmt.Fprintf(f, "log_dir=%s\n", c.LogDir)
	if c.Fullscreen {
		fmt.Fprintf(f, "fullscreen=1\n")
	} else {
		fmt.Fprintf(f, "fullscreen=0\n")
	}
}

func (c *Config) LoadCache() {
	data, err := os.ReadFile(CacheFile)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, val := parts[0], strings.TrimSpace(parts[1])

		switch key {
		case "frame_rate":
			fmt.Sscanf(val, "%g", &c.FrameRate)
		case "pix_per_micron":
			fmt.Sscanf(val, "%g", &c.PixPerMicron)
		case "display":
			fmt.Sscanf(val, "%g,%g", &c.DisplaySize[0], &c.DisplaySize[1])
		case "gamma_profile":
			c.GammaProfile = val
		case "dlp_device":
			c.DLPDevice = val
		case "log_dir":
			c.LogDir = val
		case "fullscreen":
			c.Fullscreen = val != "0"
		}
	}
}
