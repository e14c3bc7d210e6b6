package engine

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// MotionLog records every leg of a moving stimulus: the travel angle, the
// frame at which the leg was (re)generated, and the position it started
// from. Frames starts at 0 for the leg prepared before the run.
type MotionLog struct {
	Angles    []float64
	Frames    []int
	Positions [][2]float64
}

// Len is the number of complete (angle, frame, position) records.
func (l *MotionLog) Len() int {
	n := len(l.Angles)
	if len(l.Frames) < n {
		n = len(l.Frames)
	}
	if len(l.Positions) < n {
		n = len(l.Positions)
	}
	return n
}

// mover owns the trajectory state of one moving stimulus: the position
// arrays for the current leg, the frame cursor into them, and the bounded
// retry counter. When a leg is exhausted the next one is regenerated and
// the same frame retried once; a second consecutive failure is fatal.
type mover struct {
	d   *Descriptor
	cfg *Config

	xs, ys    []float64
	idx       int
	legFrames int

	startDir   float64
	curX, curY float64
	curOri     float64
	failCount  int

	Log MotionLog

	regen func(*mover) error

	table       []TableEntry // table motion: radii already in px
	triggerIdx  []int        // table motion: flagged row indices
}

// newMotion builds the trajectory generator for a descriptor, loading the
// coordinate table up front for table motion so format errors surface at
// setup time.
func newMotion(d *Descriptor, cfg *Config) (*mover, error) {
	m := &mover{
		d:        d,
		cfg:      cfg,
		startDir: d.StartDir,
		curX:     d.Location[0],
		curY:     d.Location[1],
		curOri:   d.Orientation,
		Log:      MotionLog{Frames: []int{0}},
	}

	switch d.Motion {
	case MotionSweep:
		m.regen = (*mover).regenSweep
	case MotionRandomWalk:
		m.regen = (*mover).regenWalk
	case MotionTable:
		entries, err := LoadTable(d.TableFile)
		if err != nil {
			return nil, err
		}
		m.table = make([]TableEntry, len(entries))
		for i, e := range entries {
			m.table[i] = TableEntry{Radius: cfg.Pix(e.Radius), Trigger: e.Trigger}
			if e.Trigger {
				m.triggerIdx = append(m.triggerIdx, i)
			}
		}
		m.regen = (*mover).regenTable
	default:
		return nil, &ConfigError{Stim: d.Name, Reason: "motion type " + d.Motion.String() + " has no trajectory"}
	}
	return m, nil
}

// window computes the draw window [start, end) for this stimulus and adds
// its trigger frames to the schedule. The first leg is generated here since
// the per-leg frame count determines the window. The caller applies any
// force-stop override after recording the unforced draw duration.
func (m *mover) window(sched *Schedule) (start, end int, err error) {
	d := m.d
	start = d.DelayFrames

	if err := m.regen(m); err != nil {
		return 0, 0, err
	}

	switch d.Motion {
	case MotionSweep:
		end = start + m.legFrames*d.NumDirs
		if d.Trigger {
			for k := 0; k < d.NumDirs; k++ {
				sched.Add(m.legFrames*k + start)
			}
		}

	case MotionRandomWalk:
		// the end frame comes from the configured duration, not from the
		// leg count: a best-effort upper bound, the final leg may not land
		// exactly on it
		end = start + d.DurationFrames
		if d.Trigger {
			legs := int(float64(d.DurationFrames)/float64(m.legFrames) + 0.99)
			for k := 0; k < legs; k++ {
				sched.Add(m.legFrames*k + start)
			}
		}

	case MotionTable:
		end = start + m.legFrames*d.NumDirs
		if d.Trigger {
			for j := 0; j < d.NumDirs; j++ {
				for _, i := range m.triggerIdx {
					sched.Add(start + j*m.legFrames + i)
				}
			}
		}
	}

	return start, end, nil
}

// next pops the position for the current frame. An exhausted array
// regenerates the following leg (logging the frame) and retries once;
// recurring failure aborts the stimulus. Success resets the failure count.
func (m *mover) next(frame int) (pos [2]float64, ori float64, err error) {
	for {
		if m.idx < len(m.xs) && m.idx < len(m.ys) {
			m.curX, m.curY = m.xs[m.idx], m.ys[m.idx]
			m.idx++
			m.failCount = 0
			return [2]float64{m.curX, m.curY}, m.curOri, nil
		}

		m.failCount++
		if m.failCount >= 2 {
			return pos, ori, &FatalAnimationError{Stim: m.d.Name, Frame: frame, Err: errExhausted}
		}
		if err := m.regen(m); err != nil {
			return pos, ori, fmt.Errorf("stim %q: regenerating leg at frame %d: %w", m.d.Name, frame, err)
		}
		m.Log.Frames = append(m.Log.Frames, frame)
	}
}

// regenSweep prepares one radial-sweep leg: start on the configured radius
// at the leg's angle and travel through the center to the far side.
func (m *mover) regenSweep() error {
	d := m.d

	m.curX = d.StartRadius * math.Sin(rad(m.startDir))
	m.curY = d.StartRadius * math.Cos(rad(m.startDir))
	m.idx = 0

	// travel direction is opposite the origin direction
	angle := m.startDir + 180
	if angle >= 360 {
		angle -= 360
	}

	if d.OriWithDir {
		m.curOri = m.startDir + d.Orientation
	}

	m.startDir += 360 / float64(d.NumDirs)
	if m.startDir >= 360 {
		m.startDir -= 360
	}

	m.Log.Angles = append(m.Log.Angles, angle)
	m.Log.Positions = append(m.Log.Positions, [2]float64{m.curX, m.curY})

	travel := math.Hypot(m.curX, m.curY) * 2
	m.legFrames = int(travel/d.Speed + 0.99)

	m.genArray(m.curX, m.curY, m.legFrames, angle)
	m.appendOffscreen()
	return nil
}

// regenWalk prepares one random-walk leg: continue from the current
// position at a fresh angle from the move stream.
func (m *mover) regenWalk() error {
	d := m.d
	m.idx = 0

	angle := float64(d.moveRand.Intn(360))

	m.Log.Angles = append(m.Log.Angles, angle)
	m.Log.Positions = append(m.Log.Positions, [2]float64{m.curX, m.curY})

	m.legFrames = int(d.TravelDistance/d.Speed + 0.99)
	m.genArray(m.curX, m.curY, m.legFrames, angle)
	return nil
}

// regenTable prepares one full table traversal. Radii map to Cartesian
// coordinates at theta = -startDir - 90; the polar origin convention
// differs from the sweep case.
func (m *mover) regenTable() error {
	d := m.d
	m.idx = 0

	theta := rad(-m.startDir - 90)
	m.xs = make([]float64, len(m.table))
	m.ys = make([]float64, len(m.table))
	for i, e := range m.table {
		m.xs[i] = e.Radius * math.Cos(theta)
		m.ys[i] = e.Radius * math.Sin(theta)
	}
	m.legFrames = len(m.table)

	if d.OriWithDir {
		m.curOri = m.startDir + d.Orientation
	}

	m.appendOffscreen()

	m.startDir += 360 / float64(d.NumDirs)
	if m.startDir >= 360 {
		m.startDir -= 360
	}
	return nil
}

// genArray fills the leg's position arrays by constant per-frame
// displacement along angle from (startX, startY).
func (m *mover) genArray(startX, startY float64, n int, angle float64) {
	dx := m.d.Speed * math.Sin(rad(angle))
	dy := m.d.Speed * math.Cos(rad(angle))

	m.xs = make([]float64, n)
	m.ys = make([]float64, n)
	switch n {
	case 0:
	case 1:
		m.xs[0], m.ys[0] = startX, startY
	default:
		floats.Span(m.xs, startX, startX+float64(n-1)*dx)
		floats.Span(m.ys, startY, startY+float64(n-1)*dy)
	}
}

// appendOffscreen parks the stimulus just outside the display for the
// configured number of delay frames between legs.
func (m *mover) appendOffscreen() {
	if m.d.MoveDelayFrames <= 0 {
		return
	}
	offX := (m.cfg.DisplaySize[0] + m.d.MaxExtent()) / 2
	offY := (m.cfg.DisplaySize[1] + m.d.MaxExtent()) / 2
	for i := 0; i < m.d.MoveDelayFrames; i++ {
		m.xs = append(m.xs, offX)
		m.ys = append(m.ys, offY)
	}
	m.legFrames += m.d.MoveDelayFrames
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}
