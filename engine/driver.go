package engine

import (
	"context"
	"fmt"
	"log"
	"time"
)

// stimRun is one stimulus prepared for a repetition: the resolved
// descriptor composed with its render strategy (texture, element array or
// movie) and, for moving stimuli, its trajectory state. Discarded at the
// end of the repetition.
type stimRun struct {
	d     *Descriptor
	lv    Levels
	gamma Gamma

	tex    *Texture
	texH   Handle
	board  *Board
	movieH Handle

	motion *mover

	start, end int
	drawDur    int

	pos   [2]float64
	ori   float64
	phase [2]float64
}

func newStimRun(p Params, cfg *Config, r Renderer, g Gamma) (*stimRun, error) {
	d, err := NewDescriptor(p, cfg)
	if err != nil {
		return nil, err
	}

	s := &stimRun{
		d:     d,
		gamma: g,
		pos:   d.Location,
		ori:   d.Orientation,
		phase: d.Phase,
	}
	s.lv = resolveColor(d, cfg.Background, g)

	switch d.Fill {
	case FillCheckerboard, FillRandom:
		s.board, err = GenerateBoard(d, s.lv)
		if err != nil {
			return nil, err
		}

	case FillMovie:
		s.movieH, err = r.OpenMovie(d.MovieFile, d.MovieSize)
		if err != nil {
			return nil, &ConfigError{Stim: d.Name, Reason: "movie: " + err.Error()}
		}

	default:
		s.tex, err = GenerateTexture(d, s.lv, g)
		if err != nil {
			return nil, err
		}
		s.texH, err = r.UploadTexture(s.tex)
		if err != nil {
			return nil, fmt.Errorf("stim %q: uploading texture: %w", d.Name, err)
		}
	}

	if d.Motion != MotionStatic {
		s.motion, err = newMotion(d, cfg)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// computeWindow resolves the stimulus's draw window, registers its trigger
// frames, and returns the end frame for the repetition-length computation.
func (s *stimRun) computeWindow(sched *Schedule) (int, error) {
	d := s.d

	if s.motion == nil {
		s.start = d.DelayFrames
		s.end = s.start + d.DurationFrames
		if d.Trigger {
			sched.Add(s.start)
		}
	} else {
		start, end, err := s.motion.window(sched)
		if err != nil {
			return 0, err
		}
		s.start, s.end = start, end
	}

	s.drawDur = s.end - s.start
	if d.ForceStopFrame != 0 {
		s.end = d.ForceStopFrame
	}
	return s.end, nil
}

// animate advances the stimulus by one frame and issues its draw call.
// Outside the draw window it does nothing.
func (s *stimRun) animate(frame int, r Renderer) error {
	if frame < s.start || frame >= s.end {
		return nil
	}

	if s.motion != nil {
		pos, ori, err := s.motion.next(frame)
		if err != nil {
			return err
		}
		s.pos, s.ori = pos, ori
	}

	switch {
	case s.board != nil:
		r.DrawElements(s.board.Cells, s.pos, s.board.CellSize)

	case s.movieH != nil:
		r.DrawMovie(s.movieH, s.pos)
		if frame+1 == s.end {
			r.PauseMovie(s.movieH)
		}

	default:
		if s.d.Timing != TimingStep && s.d.Fill != FillImage {
			applyTiming(s.tex, s.d, s.lv, frame-s.start, s.drawDur, s.gamma)
			if err := r.UpdateTexture(s.texH, s.tex); err != nil {
				return fmt.Errorf("stim %q: updating texture: %w", s.d.Name, err)
			}
		}
		// phase drift is independent of timing modulation
		s.phase[0] += s.d.PhaseSpeed[0]
		s.phase[1] += s.d.PhaseSpeed[1]
		r.DrawTexture(s.texH, DrawOptions{
			Pos:         s.pos,
			Size:        s.d.DrawSize(),
			Orientation: s.ori,
			Phase:       s.phase,
			SF:          s.d.SF,
		})
	}
	return nil
}

// Driver owns the per-frame run loop. It instantiates the configured
// stimuli afresh for every repetition (so seeded streams reproduce),
// schedules triggers, and aggregates run statistics. Single threaded: one
// frame counter advances everything, and cancellation is polled once per
// frame boundary.
type Driver struct {
	cfg      *Config
	renderer Renderer
	trigger  TriggerDevice
	gamma    Gamma
	params   []Params
}

func NewDriver(cfg *Config, r Renderer, t TriggerDevice, g Gamma, params []Params) *Driver {
	if t == nil {
		t = NopTrigger{}
	}
	return &Driver{cfg: cfg, renderer: r, trigger: t, gamma: g, params: params}
}

// Run executes the protocol: ProtocolReps repetitions of the configured
// stimulus list. Setup errors abort before the frame loop; runtime errors
// abort the whole run. Cancellation (via ctx or the renderer's quit event)
// is not an error: it returns partial statistics with Interrupted set.
// Every exit path issues one final flip to clear the display.
func (dr *Driver) Run(ctx context.Context) (*RunStats, error) {
	stats := NewRunStats(dr.cfg)
	sched := NewSchedule()

	defer dr.finalFlip()

	for rep := 0; rep < dr.cfg.ProtocolReps; rep++ {
		runs := make([]*stimRun, 0, len(dr.params))
		for _, p := range dr.params {
			s, err := newStimRun(p, dr.cfg, dr.renderer, dr.gamma)
			if err != nil {
				return stats, err
			}
			runs = append(runs, s)
		}

		sched.Reset()
		total := 0
		for _, s := range runs {
			end, err := s.computeWindow(sched)
			if err != nil {
				return stats, err
			}
			if end > total {
				total = end
			}
		}
		stats.TotalFrames = total
		stats.record(rep, runs)

		// initial pulse, then hold the background for the warm-up interval
		if w := dr.cfg.WarmupFrames(); w > 0 {
			dr.trigger.Pulse()
			stats.Events.Log(rep, -1, uint64(time.Since(stats.Started).Milliseconds()))
			for i := 0; i < w; i++ {
				dr.renderer.Clear()
				if err := dr.renderer.Flip(); err != nil {
					return stats, fmt.Errorf("warm-up flip: %w", err)
				}
			}
		}

		started := time.Now()
		for frame := 0; frame < total; frame++ {
			dr.renderer.Clear()
			for _, s := range runs {
				if err := s.animate(frame, dr.renderer); err != nil {
					stats.Elapsed += time.Since(started).Seconds()
					return stats, err
				}
			}

			if err := dr.renderer.Flip(); err != nil {
				stats.Elapsed += time.Since(started).Seconds()
				return stats, fmt.Errorf("flip at frame %d: %w", frame, err)
			}

			if sched.Due(frame) {
				dr.trigger.Pulse()
				stats.Events.Log(rep, frame, uint64(time.Since(stats.Started).Milliseconds()))
			}

			if ctx.Err() != nil || dr.renderer.PollQuit() {
				stats.FramesShown = frame + 1
				stats.Interrupted = true
				break
			}
		}
		stats.Elapsed += time.Since(started).Seconds()

		for _, s := range runs {
			if s.movieH != nil {
				dr.renderer.PauseMovie(s.movieH)
			}
		}

		if stats.Interrupted {
			log.Printf("run interrupted at rep %d, frame %d", rep+1, stats.FramesShown)
			break
		}
		stats.RepsCompleted++
	}

	return stats, nil
}

func (dr *Driver) finalFlip() {
	dr.renderer.Clear()
	if err := dr.renderer.Flip(); err != nil {
		log.Printf("clearing flip: %v", err)
	}
}
