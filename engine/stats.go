package engine

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// TriggerEvent is one pulse sent to the trigger device, tagged with the
// repetition and frame it was scheduled for. Frame -1 marks the warm-up
// pulse that precedes the frame loop.
type TriggerEvent struct {
	Rep   int
	Frame int
	AtMS  uint64
}

type EventLog struct {
	Entries []TriggerEvent
}

func (l *EventLog) Log(rep, frame int, at uint64) {
	l.Entries = append(l.Entries, TriggerEvent{Rep: rep, Frame: frame, AtMS: at})
}

func (l *EventLog) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{"rep", "frame", "elapsed_ms"})
	for _, e := range l.Entries {
		w.Write([]string{
			strconv.Itoa(e.Rep),
			strconv.Itoa(e.Frame),
			strconv.FormatUint(e.AtMS, 10),
		})
	}
	return nil
}

// RunStats aggregates everything a finished (or interrupted) run reports:
// frame counts, wall time, the trigger event log, and the trajectory log of
// every moving stimulus keyed by "<name>_repNN".
type RunStats struct {
	RunID   uuid.UUID
	Started time.Time

	RepsTotal     int
	RepsCompleted int
	TotalFrames   int
	FramesShown   int
	Elapsed       float64
	Interrupted   bool

	Events EventLog
	Motion map[string]*MotionLog
	Descs  []*Descriptor
}

func NewRunStats(cfg *Config) *RunStats {
	return &RunStats{
		RunID:     uuid.New(),
		Started:   time.Now(),
		RepsTotal: cfg.ProtocolReps,
		Motion:    make(map[string]*MotionLog),
	}
}

// record registers the repetition's stimuli. Motion logs are stored by
// pointer so entries appended later in the repetition are visible in the
// final stats without a second pass.
func (st *RunStats) record(rep int, runs []*stimRun) {
	if len(st.Descs) == 0 {
		for _, s := range runs {
			st.Descs = append(st.Descs, s.d)
		}
	}
	for _, s := range runs {
		if s.motion != nil {
			key := fmt.Sprintf("%s_rep%02d", s.d.Name, rep+1)
			st.Motion[key] = &s.motion.Log
		}
	}
}

// AvgFPS is the achieved frame rate over the whole run, counting completed
// repetitions in full and the interrupted one by its shown frames.
func (st *RunStats) AvgFPS() float64 {
	if st.Elapsed <= 0 {
		return 0
	}
	frames := st.RepsCompleted*st.TotalFrames + st.FramesShown
	return float64(frames) / st.Elapsed
}

// WriteLogs saves the run's log files under a dated directory below
// cfg.LogDir: one parameter dump per stimulus, one trajectory file per
// moving stimulus per repetition, the trigger event CSV, and a trajectory
// plot. A no-op when logging is disabled.
func (st *RunStats) WriteLogs(cfg *Config) error {
	if !cfg.Log {
		return nil
	}

	dir := filepath.Join(cfg.LogDir, st.Started.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	ts := st.Started.Format("150405")

	for _, d := range st.Descs {
		name := fmt.Sprintf("stimlog_%s_%s.txt", ts, d.Fill)
		if err := st.writeStimLog(filepath.Join(dir, name), d, cfg); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(st.Motion))
	for k := range st.Motion {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		prefix := "Movinglog_"
		if descByKey(st.Descs, k) == MotionRandomWalk {
			prefix = "Randomlog_"
		}
		name := fmt.Sprintf("%s%s_%s.txt", prefix, ts, k)
		if err := writeMotionLog(filepath.Join(dir, name), st.Motion[k]); err != nil {
			return err
		}
	}

	if len(st.Events.Entries) > 0 {
		if err := st.Events.Save(filepath.Join(dir, "triggers_"+ts+".csv")); err != nil {
			return fmt.Errorf("saving trigger log: %w", err)
		}
	}

	if len(st.Motion) > 0 {
		if err := st.plotTrajectories(filepath.Join(dir, "trajectories_"+ts+".png"), keys); err != nil {
			return err
		}
	}
	return nil
}

// descByKey recovers the motion type from a "<name>_repNN" log key. Exact
// name match after stripping the repetition suffix; a stimulus named "bar"
// must not claim the logs of one named "bar2".
func descByKey(descs []*Descriptor, key string) MotionType {
	name := key
	if i := strings.LastIndex(key, "_rep"); i >= 0 {
		name = key[:i]
	}
	for _, d := range descs {
		if d.Name == name {
			return d.Motion
		}
	}
	return MotionStatic
}

func (st *RunStats) writeStimLog(path string, d *Descriptor, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating stim log: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "run %s\n", st.RunID)
	fmt.Fprintf(f, "started %s\n", st.Started.Format(time.RFC3339))
	fmt.Fprintf(f, "frame rate %g Hz\n", cfg.FrameRate)
	fmt.Fprintf(f, "reps %d/%d, %d frames per rep\n",
		st.RepsCompleted, st.RepsTotal, st.TotalFrames)
	fmt.Fprintf(f, "elapsed %.3f s, avg fps %.2f\n", st.Elapsed, st.AvgFPS())
	if st.Interrupted {
		fmt.Fprintf(f, "interrupted at frame %d\n", st.FramesShown)
	}
	fmt.Fprintln(f)
	fmt.Fprint(f, d.Describe())
	return nil
}

// writeMotionLog dumps one trajectory as four lists: leg angles, the frames
// at which legs were generated, and the leg start positions.
func writeMotionLog(path string, l *MotionLog) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating motion log: %w", err)
	}
	defer f.Close()

	fmt.Fprintln(f, "angles:")
	for _, a := range l.Angles {
		fmt.Fprintf(f, "%g\n", a)
	}
	fmt.Fprintln(f, "frames:")
	for _, fr := range l.Frames {
		fmt.Fprintf(f, "%d\n", fr)
	}
	fmt.Fprintln(f, "x positions:")
	for _, p := range l.Positions {
		fmt.Fprintf(f, "%g\n", p[0])
	}
	fmt.Fprintln(f, "y positions:")
	for _, p := range l.Positions {
		fmt.Fprintf(f, "%g\n", p[1])
	}
	return nil
}

func (st *RunStats) plotTrajectories(path string, keys []string) error {
	p := plot.New()
	p.Title.Text = "Leg start positions"
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"

	for _, k := range keys {
		l := st.Motion[k]
		pts := make(plotter.XYs, len(l.Positions))
		for i, pos := range l.Positions {
			pts[i].X, pts[i].Y = pos[0], pos[1]
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("plotting %s: %w", k, err)
		}
		p.Add(line, points)
		p.Legend.Add(k, line)
	}

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("saving trajectory plot: %w", err)
	}
	return nil
}
