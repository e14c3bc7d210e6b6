package engine

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

type Shape int

const (
	ShapeCircle Shape = iota
	ShapeRectangle
	ShapeAnnulus
)

type FillMode int

const (
	FillUniform FillMode = iota
	FillSine
	FillSquare
	FillConcentric
	FillCheckerboard
	FillRandom
	FillImage
	FillMovie
)

type TimingMode int

const (
	TimingStep TimingMode = iota
	TimingSine
	TimingSquare
	TimingSawtooth
	TimingLinear
)

type ColorMode int

const (
	ColorIntensity ColorMode = iota
	ColorRGB
)

// IntensityDir selects whether intensity modulation swings to both sides of
// the background or only one.
type IntensityDir int

const (
	DirBoth IntensityDir = iota
	DirSingle
)

type MotionType int

const (
	MotionStatic MotionType = iota
	MotionSweep
	MotionRandomWalk
	MotionTable
)

var (
	shapeNames  = map[Shape]string{ShapeCircle: "circle", ShapeRectangle: "rectangle", ShapeAnnulus: "annulus"}
	fillNames   = map[FillMode]string{FillUniform: "uniform", FillSine: "sine", FillSquare: "square", FillConcentric: "concentric", FillCheckerboard: "checkerboard", FillRandom: "random", FillImage: "image", FillMovie: "movie"}
	timingNames = map[TimingMode]string{TimingStep: "step", TimingSine: "sine", TimingSquare: "square", TimingSawtooth: "sawtooth", TimingLinear: "linear"}
	colorNames  = map[ColorMode]string{ColorIntensity: "intensity", ColorRGB: "rgb"}
	dirNames    = map[IntensityDir]string{DirBoth: "both", DirSingle: "single"}
	motionNames = map[MotionType]string{MotionStatic: "static", MotionSweep: "sweep", MotionRandomWalk: "randomwalk", MotionTable: "table"}
)

func (s Shape) String() string        { return shapeNames[s] }
func (f FillMode) String() string     { return fillNames[f] }
func (t TimingMode) String() string   { return timingNames[t] }
func (c ColorMode) String() string    { return colorNames[c] }
func (d IntensityDir) String() string { return dirNames[d] }
func (m MotionType) String() string   { return motionNames[m] }

func ParseShape(s string) (Shape, error) {
	for k, v := range shapeNames {
		if v == strings.ToLower(s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown shape %q", s)
}

func ParseFillMode(s string) (FillMode, error) {
	for k, v := range fillNames {
		if v == strings.ToLower(s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown fill mode %q", s)
}

func ParseTimingMode(s string) (TimingMode, error) {
	for k, v := range timingNames {
		if v == strings.ToLower(s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown timing mode %q", s)
}

func ParseColorMode(s string) (ColorMode, error) {
	for k, v := range colorNames {
		if v == strings.ToLower(s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown color mode %q", s)
}

func ParseIntensityDir(s string) (IntensityDir, error) {
	for k, v := range dirNames {
		if v == strings.ToLower(s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown intensity direction %q", s)
}

func ParseMotionType(s string) (MotionType, error) {
	for k, v := range motionNames {
		if v == strings.ToLower(s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown motion type %q", s)
}

// ParseChannel maps a channel name to its RGB index.
func ParseChannel(s string) (int, error) {
	switch strings.ToLower(s) {
	case "red":
		return 0, nil
	case "green":
		return 1, nil
	case "blue":
		return 2, nil
	}
	return 0, fmt.Errorf("unknown channel %q", s)
}

// ImageChannelAll selects all three channels of an image fill.
const ImageChannelAll = 3

// ParseImageChannel is ParseChannel plus "all".
func ParseImageChannel(s string) (int, error) {
	if strings.ToLower(s) == "all" {
		return ImageChannelAll, nil
	}
	return ParseChannel(s)
}

// Params is the raw, physical-unit parameter set for one stimulus as entered
// by the operator. Distances are microns, times seconds, speeds microns per
// second. NewDescriptor converts it into frame/pixel units.
type Params struct {
	Name   string
	Motion MotionType
	Shape  Shape
	Fill   FillMode
	Timing TimingMode

	Orientation   float64    // degrees
	Size          [2]float64 // rectangle size, microns
	OuterDiameter float64    // circle/annulus outer diameter, microns
	InnerDiameter float64    // annulus inner diameter, microns
	CheckSize     [2]float64 // board cell size, microns
	NumCheck      int        // cells per board side
	Location      [2]float64 // center, microns

	Delay     float64 // seconds before first visible frame
	Duration  float64 // seconds of animation
	MoveDelay float64 // seconds parked off screen between legs
	ForceStop float64 // seconds; nonzero overrides the computed end

	ColorMode       ColorMode
	IntensityDir    IntensityDir
	Intensity       float64 // relative to background, [-1, 1]
	Alpha           float64
	Color           [3]float64 // rgb mode color, [-1, 1]
	ContrastChannel string     // red | green | blue
	PeriodMod       float64    // cycles for cyclic timing modes

	FillSeed int64
	MoveSeed int64

	Speed          float64 // microns per second
	NumDirs        int
	StartDir       float64 // degrees
	StartRadius    float64 // microns
	TravelDistance float64 // microns
	OriWithDir     bool

	SF         float64
	Phase      [2]float64 // cycles
	PhaseSpeed [2]float64 // cycles per second

	ImageFile    string
	ImageSize    [2]float64 // microns
	ImageChannel string     // red | green | blue | all
	MovieFile    string
	MovieSize    [2]float64 // microns
	TableFile    string

	Trigger bool
}

// DefaultParams mirrors the historical defaults of the acquisition rig.
func DefaultParams() Params {
	return Params{
		Name:            "stim",
		Motion:          MotionStatic,
		Shape:           ShapeCircle,
		Fill:            FillUniform,
		Timing:          TimingStep,
		Size:            [2]float64{100, 100},
		OuterDiameter:   75,
		InnerDiameter:   40,
		CheckSize:       [2]float64{100, 100},
		NumCheck:        64,
		Duration:        0.5,
		ColorMode:       ColorIntensity,
		IntensityDir:    DirBoth,
		Intensity:       1,
		Alpha:           1,
		Color:           [3]float64{-1, 1, -1},
		ContrastChannel: "green",
		PeriodMod:       1,
		FillSeed:        1,
		MoveSeed:        1,
		Speed:           10,
		NumDirs:         4,
		StartRadius:     300,
		TravelDistance:  50,
		SF:              1,
		ImageChannel:    "all",
		MovieSize:       [2]float64{100, 100},
		ImageSize:       [2]float64{100, 100},
	}
}

// Descriptor is the fully resolved parameter set for one stimulus instance.
// Every physical-unit field of Params is converted exactly once here;
// downstream components see frames and pixels only. Immutable after
// construction apart from the two private random streams.
type Descriptor struct {
	Name   string
	Motion MotionType
	Shape  Shape
	Fill   FillMode
	Timing TimingMode

	Orientation   float64
	Size          [2]float64 // px
	OuterDiameter float64    // px
	InnerDiameter float64    // px
	CheckSize     [2]float64 // px
	NumCheck      int
	Location      [2]float64 // px

	DelayFrames     int
	DurationFrames  int
	MoveDelayFrames int
	ForceStopFrame  int

	ColorMode       ColorMode
	IntensityDir    IntensityDir
	Intensity       float64
	Alpha           float64
	Color           [3]float64
	ContrastChannel int
	PeriodMod       float64 // cycles * 2 * duration seconds

	Speed          float64 // px per frame
	NumDirs        int
	StartDir       float64
	StartRadius    float64 // px
	TravelDistance float64 // px
	OriWithDir     bool

	SF         float64
	Phase      [2]float64
	PhaseSpeed [2]float64 // cycles per frame

	ImageFile    string
	ImageSize    [2]float64 // px
	ImageChannel int
	MovieFile    string
	MovieSize    [2]float64 // px
	TableFile    string

	Trigger bool

	fillRand *rand.Rand
	moveRand *rand.Rand
}

// NewDescriptor resolves raw parameters against the global configuration.
// It validates fill-mode-dependent requirements and seeds the two private
// random streams so that identical seeds reproduce identical runs.
func NewDescriptor(p Params, cfg *Config) (*Descriptor, error) {
	contrast, err := ParseChannel(p.ContrastChannel)
	if err != nil {
		return nil, &ConfigError{Stim: p.Name, Reason: err.Error()}
	}
	imgCh, err := ParseImageChannel(p.ImageChannel)
	if err != nil {
		return nil, &ConfigError{Stim: p.Name, Reason: err.Error()}
	}

	switch p.Fill {
	case FillImage:
		if p.ImageFile == "" {
			return nil, &ConfigError{Stim: p.Name, Reason: "image fill requires an image file"}
		}
	case FillMovie:
		if p.MovieFile == "" {
			return nil, &ConfigError{Stim: p.Name, Reason: "movie fill requires a movie file"}
		}
	}
	if p.Motion == MotionTable && p.TableFile == "" {
		return nil, &ConfigError{Stim: p.Name, Reason: "table motion requires a table file"}
	}
	if p.NumDirs < 1 {
		return nil, &ConfigError{Stim: p.Name, Reason: "num dirs must be at least 1"}
	}
	if (p.Motion == MotionSweep || p.Motion == MotionRandomWalk) && p.Speed <= 0 {
		return nil, &ConfigError{Stim: p.Name, Reason: "moving stimulus requires a positive speed"}
	}

	startDir := p.StartDir
	if cfg.PrefDir != -1 {
		startDir = cfg.PrefDir
	}

	d := &Descriptor{
		Name:   p.Name,
		Motion: p.Motion,
		Shape:  p.Shape,
		Fill:   p.Fill,
		Timing: p.Timing,

		Orientation:   p.Orientation,
		Size:          [2]float64{cfg.Pix(p.Size[0]), cfg.Pix(p.Size[1])},
		OuterDiameter: cfg.Pix(p.OuterDiameter),
		InnerDiameter: cfg.Pix(p.InnerDiameter),
		CheckSize:     [2]float64{cfg.Pix(p.CheckSize[0]), cfg.Pix(p.CheckSize[1])},
		NumCheck:      p.NumCheck,
		Location:      [2]float64{cfg.Pix(p.Location[0]), cfg.Pix(p.Location[1])},

		DelayFrames:     cfg.Frames(p.Delay),
		DurationFrames:  cfg.Frames(p.Duration),
		MoveDelayFrames: int(p.MoveDelay * cfg.FrameRate),
		ForceStopFrame:  cfg.Frames(p.ForceStop),

		ColorMode:       p.ColorMode,
		IntensityDir:    p.IntensityDir,
		Intensity:       p.Intensity,
		Alpha:           p.Alpha,
		Color:           p.Color,
		ContrastChannel: contrast,
		PeriodMod:       p.PeriodMod * 2 * p.Duration,

		Speed:          cfg.PxPerFrame(p.Speed),
		NumDirs:        p.NumDirs,
		StartDir:       startDir,
		StartRadius:    cfg.Pix(p.StartRadius),
		TravelDistance: cfg.Pix(p.TravelDistance),
		OriWithDir:     p.OriWithDir,

		SF:         p.SF,
		Phase:      p.Phase,
		PhaseSpeed: [2]float64{p.PhaseSpeed[0] / cfg.FrameRate, p.PhaseSpeed[1] / cfg.FrameRate},

		ImageFile:    p.ImageFile,
		ImageSize:    [2]float64{cfg.Pix(p.ImageSize[0]), cfg.Pix(p.ImageSize[1])},
		ImageChannel: imgCh,
		MovieFile:    p.MovieFile,
		MovieSize:    [2]float64{cfg.Pix(p.MovieSize[0]), cfg.Pix(p.MovieSize[1])},
		TableFile:    p.TableFile,

		Trigger: p.Trigger,

		fillRand: rand.New(rand.NewSource(p.FillSeed)),
		moveRand: rand.New(rand.NewSource(p.MoveSeed)),
	}
	if p.ForceStop == 0 {
		d.ForceStopFrame = 0
	}
	return d, nil
}

// DrawSize is the on-screen extent of the stimulus: image size for image
// fills, the bounding square for circles and annuli, width/height otherwise.
func (d *Descriptor) DrawSize() [2]float64 {
	switch {
	case d.Fill == FillImage:
		return d.ImageSize
	case d.Fill == FillMovie:
		return d.MovieSize
	case d.Shape == ShapeCircle || d.Shape == ShapeAnnulus:
		return [2]float64{d.OuterDiameter, d.OuterDiameter}
	default:
		return d.Size
	}
}

// MaxExtent is the larger dimension of DrawSize, used for texture sizing and
// for parking stimuli off screen between legs.
func (d *Descriptor) MaxExtent() float64 {
	s := d.DrawSize()
	if s[0] > s[1] {
		return s[0]
	}
	return s[1]
}

// Describe returns a sorted parameter dump for the run log.
func (d *Descriptor) Describe() string {
	fields := map[string]any{
		"motion":           d.Motion,
		"shape":            d.Shape,
		"fill_mode":        d.Fill,
		"timing":           d.Timing,
		"orientation":      d.Orientation,
		"size":             d.Size,
		"outer_diameter":   d.OuterDiameter,
		"inner_diameter":   d.InnerDiameter,
		"location":         d.Location,
		"delay_frames":     d.DelayFrames,
		"duration_frames":  d.DurationFrames,
		"move_delay":       d.MoveDelayFrames,
		"force_stop":       d.ForceStopFrame,
		"color_mode":       d.ColorMode,
		"intensity_dir":    d.IntensityDir,
		"intensity":        d.Intensity,
		"alpha":            d.Alpha,
		"color":            d.Color,
		"contrast_channel": d.ContrastChannel,
		"speed":            d.Speed,
		"num_dirs":         d.NumDirs,
		"start_dir":        d.StartDir,
		"start_radius":     d.StartRadius,
		"travel_distance":  d.TravelDistance,
		"trigger":          d.Trigger,
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "\nStim %s (%s):\n", d.Name, d.Motion)
	for _, k := range keys {
		fmt.Fprintf(&b, "   %s: %v\n", k, fields[k])
	}
	return b.String()
}
