package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Zyko0/go-sdl3/bin/binsdl"

	"retistim/dlpio"
	"retistim/engine"
	"retistim/sdlrender"
)

func init() {
	// SDL3 requires the main thread for some operations.
	runtime.LockOSThread()
}

func main() {
	// Load binaries
	defer binsdl.Load().Unload()

	cfg := engine.DefaultConfig()
	cfg.LoadCache()
	p := engine.DefaultParams()

	frameRate := flag.Float64("frame-rate", cfg.FrameRate, "Monitor frame rate (Hz)")
	pixPerMicron := flag.Float64("pix-per-micron", cfg.PixPerMicron, "Pixels per micron")
	scale := flag.Float64("scale", cfg.Scale, "Extra scale factor")
	displayW := flag.Float64("width", cfg.DisplaySize[0], "Window width (px)")
	displayH := flag.Float64("height", cfg.DisplaySize[1], "Window height (px)")
	windowX := flag.Int("window-x", cfg.WindowPos[0], "Window x position")
	windowY := flag.Int("window-y", cfg.WindowPos[1], "Window y position")
	offsetX := flag.Float64("offset-x", 0, "View center x offset (microns)")
	offsetY := flag.Float64("offset-y", 0, "View center y offset (microns)")
	protocolReps := flag.Int("reps", cfg.ProtocolReps, "Protocol repetitions")
	bgStr := flag.String("background", "-1,0,-1", "Background color r,g,b in [-1,1]")
	prefDir := flag.Float64("pref-dir", cfg.PrefDir, "Preferred direction override (-1 = unset)")
	fullscreen := flag.Bool("fullscreen", cfg.Fullscreen, "Fullscreen")
	screenNum := flag.Int("screen", cfg.ScreenNum, "Screen number")
	gammaProfile := flag.String("gamma", cfg.GammaProfile, "Gamma calibration profile")
	gammaFile := flag.String("gamma-file", ".retistim_gamma", "Gamma tables file")
	triggerWait := flag.Float64("trigger-wait", cfg.TriggerWait, "Warm-up after initial pulse (s)")
	logEnabled := flag.Bool("log", cfg.Log, "Write run logs")
	logDir := flag.String("log-dir", cfg.LogDir, "Log directory")
	dlpDevice := flag.String("dlp", cfg.DLPDevice, "DLP-IO8-G serial device")

	name := flag.String("name", p.Name, "Stimulus name")
	motionStr := flag.String("motion", p.Motion.String(), "Motion: static|sweep|randomwalk|table")
	shapeStr := flag.String("shape", p.Shape.String(), "Shape: circle|rectangle|annulus")
	fillStr := flag.String("fill", p.Fill.String(), "Fill: uniform|sine|square|concentric|checkerboard|random|image|movie")
	timingStr := flag.String("timing", p.Timing.String(), "Timing: step|sine|square|sawtooth|linear")
	orientation := flag.Float64("orientation", p.Orientation, "Orientation (degrees)")
	sizeW := flag.Float64("size-w", p.Size[0], "Rectangle width (microns)")
	sizeH := flag.Float64("size-h", p.Size[1], "Rectangle height (microns)")
	outerDiam := flag.Float64("outer-diameter", p.OuterDiameter, "Outer diameter (microns)")
	innerDiam := flag.Float64("inner-diameter", p.InnerDiameter, "Annulus inner diameter (microns)")
	checkW := flag.Float64("check-w", p.CheckSize[0], "Board cell width (microns)")
	checkH := flag.Float64("check-h", p.CheckSize[1], "Board cell height (microns)")
	numCheck := flag.Int("num-check", p.NumCheck, "Cells per board side")
	locX := flag.Float64("x", p.Location[0], "Center x (microns)")
	locY := flag.Float64("y", p.Location[1], "Center y (microns)")
	delay := flag.Float64("delay", p.Delay, "Delay before first frame (s)")
	duration := flag.Float64("duration", p.Duration, "Animation duration (s)")
	moveDelay := flag.Float64("move-delay", p.MoveDelay, "Off-screen delay between legs (s)")
	forceStop := flag.Float64("force-stop", p.ForceStop, "Force stop time (s, 0 = off)")
	colorModeStr := flag.String("color-mode", p.ColorMode.String(), "Color mode: intensity|rgb")
	dirStr := flag.String("intensity-dir", p.IntensityDir.String(), "Intensity direction: both|single")
	intensity := flag.Float64("intensity", p.Intensity, "Intensity relative to background [-1,1]")
	alpha := flag.Float64("alpha", p.Alpha, "Alpha [0,1]")
	colorStr := flag.String("color", "-1,1,-1", "RGB mode color r,g,b in [-1,1]")
	contrastCh := flag.String("contrast-channel", p.ContrastChannel, "Contrast channel: red|green|blue")
	periodMod := flag.Float64("period-mod", p.PeriodMod, "Cycles for cyclic timing")
	fillSeed := flag.Int64("fill-seed", p.FillSeed, "Fill random seed")
	moveSeed := flag.Int64("move-seed", p.MoveSeed, "Move random seed")
	speed := flag.Float64("speed", p.Speed, "Speed (microns/s)")
	numDirs := flag.Int("num-dirs", p.NumDirs, "Number of directions")
	startDir := flag.Float64("start-dir", p.StartDir, "Start direction (degrees)")
	startRadius := flag.Float64("start-radius", p.StartRadius, "Sweep start radius (microns)")
	travelDist := flag.Float64("travel-distance", p.TravelDistance, "Random walk leg length (microns)")
	oriWithDir := flag.Bool("ori-with-dir", p.OriWithDir, "Orient with travel direction")
	sf := flag.Float64("sf", p.SF, "Spatial frequency multiplier")
	phaseSpeedX := flag.Float64("phase-speed-x", p.PhaseSpeed[0], "Phase speed x (cycles/s)")
	phaseSpeedY := flag.Float64("phase-speed-y", p.PhaseSpeed[1], "Phase speed y (cycles/s)")
	imageFile := flag.String("image", p.ImageFile, "Image file (image fill)")
	imageW := flag.Float64("image-w", p.ImageSize[0], "Image width (microns)")
	imageH := flag.Float64("image-h", p.ImageSize[1], "Image height (microns)")
	imageChannel := flag.String("image-channel", p.ImageChannel, "Image channel: red|green|blue|all")
	movieFile := flag.String("movie", p.MovieFile, "Movie file (movie fill)")
	tableFile := flag.String("table", p.TableFile, "Coordinate table (.txt or .ibw)")
	trigger := flag.Bool("trigger", p.Trigger, "Pulse the trigger line for this stimulus")

	flag.Parse()

	cfg.FrameRate = *frameRate
	cfg.PixPerMicron = *pixPerMicron
	cfg.Scale = *scale
	cfg.DisplaySize = [2]float64{*displayW, *displayH}
	cfg.WindowPos = [2]int{*windowX, *windowY}
	cfg.Offset = [2]float64{cfg.Pix(*offsetX), cfg.Pix(*offsetY)}
	cfg.ProtocolReps = *protocolReps
	cfg.PrefDir = *prefDir
	cfg.Fullscreen = *fullscreen
	cfg.ScreenNum = *screenNum
	cfg.GammaProfile = *gammaProfile
	cfg.TriggerWait = *triggerWait
	cfg.Log = *logEnabled
	cfg.LogDir = *logDir
	cfg.DLPDevice = *dlpDevice

	bg, err := engine.ParseRGB(*bgStr)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	cfg.Background = bg

	p.Name = *name
	p.Orientation = *orientation
	p.Size = [2]float64{*sizeW, *sizeH}
	p.OuterDiameter = *outerDiam
	p.InnerDiameter = *innerDiam
	p.CheckSize = [2]float64{*checkW, *checkH}
	p.NumCheck = *numCheck
	p.Location = [2]float64{*locX, *locY}
	p.Delay = *delay
	p.Duration = *duration
	p.MoveDelay = *moveDelay
	p.ForceStop = *forceStop
	p.Intensity = *intensity
	p.Alpha = *alpha
	p.ContrastChannel = *contrastCh
	p.PeriodMod = *periodMod
	p.FillSeed = *fillSeed
	p.MoveSeed = *moveSeed
	p.Speed = *speed
	p.NumDirs = *numDirs
	p.StartDir = *startDir
	p.StartRadius = *startRadius
	p.TravelDistance = *travelDist
	p.OriWithDir = *oriWithDir
	p.SF = *sf
	p.PhaseSpeed = [2]float64{*phaseSpeedX, *phaseSpeedY}
	p.ImageFile = *imageFile
	p.ImageSize = [2]float64{*imageW, *imageH}
	p.ImageChannel = *imageChannel
	p.MovieFile = *movieFile
	p.TableFile = *tableFile
	p.Trigger = *trigger

	if p.Motion, err = engine.ParseMotionType(*motionStr); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if p.Shape, err = engine.ParseShape(*shapeStr); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if p.Fill, err = engine.ParseFillMode(*fillStr); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if p.Timing, err = engine.ParseTimingMode(*timingStr); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if p.ColorMode, err = engine.ParseColorMode(*colorModeStr); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if p.IntensityDir, err = engine.ParseIntensityDir(*dirStr); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if p.Color, err = engine.ParseRGB(*colorStr); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	gamma, err := engine.GammaForProfile(cfg, *gammaFile)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	renderer, err := sdlrender.New(cfg)
	if err != nil {
		fmt.Printf("Renderer Error: %v\n", err)
		os.Exit(1)
	}
	defer renderer.Close()

	var trig engine.TriggerDevice
	if cfg.DLPDevice != "" {
		dev, err := dlpio.Open(cfg.DLPDevice, 9600)
		if err != nil {
			fmt.Printf("Failed to initialize DLP device: %v\n", err)
		} else {
			defer dev.Close()
			trig = dev
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver := engine.NewDriver(cfg, renderer, trig, gamma, []engine.Params{p})
	stats, err := driver.Run(ctx)
	if err != nil {
		fmt.Printf("Run failed: %v\n", err)
	}

	if stats != nil {
		fmt.Printf("\nRun %s: %d/%d reps, %.2f avg fps", stats.RunID, stats.RepsCompleted, stats.RepsTotal, stats.AvgFPS())
		if stats.Interrupted {
			fmt.Printf(" (interrupted at frame %d)", stats.FramesShown)
		}
		fmt.Println()
		if werr := stats.WriteLogs(cfg); werr != nil {
			fmt.Printf("Failed to save run logs: %v\n", werr)
		}
	}

	cfg.SaveCache()
	if err != nil {
		os.Exit(1)
	}
}
