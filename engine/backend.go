package engine

// Handle identifies an uploaded texture or movie inside a Renderer.
type Handle any

// DrawOptions carries the per-frame placement of a textured stimulus.
// Positions are in stimulus space: origin at the window center, y up.
type DrawOptions struct {
	Pos         [2]float64
	Size        [2]float64
	Orientation float64    // degrees, clockwise
	Phase       [2]float64 // texture phase offset, cycles per axis
	SF          float64    // spatial frequency multiplier
}

// Renderer is the capability set the engine consumes from the graphics
// backend. The engine never rasterizes; it produces buffers and placement
// and asks the renderer to show them. Within one frame every draw call
// precedes the single Flip.
type Renderer interface {
	// UploadTexture transfers an RGBA buffer and returns a handle for
	// drawing. UpdateTexture rewrites an already uploaded buffer in place
	// (used by per-frame timing modulation).
	UploadTexture(t *Texture) (Handle, error)
	UpdateTexture(h Handle, t *Texture) error
	DrawTexture(h Handle, opts DrawOptions)

	// DrawElements draws a rigid field of colored cells centered on fieldPos.
	DrawElements(cells []Cell, fieldPos [2]float64, cellSize [2]float64)

	// OpenMovie prepares a looping video stimulus. Renderers without video
	// support return an error at setup time.
	OpenMovie(path string, size [2]float64) (Handle, error)
	DrawMovie(h Handle, pos [2]float64)
	PauseMovie(h Handle)

	Clear()
	Flip() error
	// PollQuit drains pending window events and reports whether the operator
	// requested cancellation. Polled once per frame.
	PollQuit() bool
	Close()
}

// TriggerDevice emits the synchronization pulse consumed by the recording
// rig. Pulse is fire and forget.
type TriggerDevice interface {
	Pulse()
}

// NopTrigger is the degraded trigger used when no hardware is available.
type NopTrigger struct{}

func (NopTrigger) Pulse() {}

// Gamma applies monitor calibration to color values in [-1, 1]. A nil Gamma
// means no correction.
type Gamma interface {
	// Correct maps a single value in the given RGB channel.
	Correct(v float64, channel int) float64
}

func gammaCorrect(g Gamma, v float64, channel int) float64 {
	if g == nil {
		return v
	}
	return g.Correct(v, channel)
}
