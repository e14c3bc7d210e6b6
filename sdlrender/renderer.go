// Package sdlrender implements the engine's Renderer on SDL3. All drawing
// happens on the renderer's 2D API with vsync enabled, so Flip blocks until
// the next refresh and the frame loop runs at the display rate.
package sdlrender

import (
	"fmt"
	"math"

	"github.com/Zyko0/go-sdl3/sdl"

	"retistim/engine"
)

type sdlTexture struct {
	tex *sdl.Texture
	buf []byte
	w   int
	h   int
}

type Renderer struct {
	cfg      *engine.Config
	window   *sdl.Window
	renderer *sdl.Renderer
	w, h     int
	textures []*sdlTexture
}

// New initializes SDL's video subsystem and opens the stimulus window. With
// cfg.Fullscreen the window covers the configured screen; otherwise it is a
// borderless window of the configured display size at cfg.WindowPos.
func New(cfg *engine.Config) (*Renderer, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("SDL init: %w", err)
	}

	w := int(cfg.DisplaySize[0])
	h := int(cfg.DisplaySize[1])

	windowFlags := sdl.WINDOW_BORDERLESS
	if cfg.Fullscreen {
		windowFlags = sdl.WINDOW_FULLSCREEN
	}

	window, renderer, err := sdl.CreateWindowAndRenderer("retistim", w, h, windowFlags)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("creating window: %w", err)
	}

	renderer.SetVSync(1)

	if !cfg.Fullscreen && (cfg.WindowPos[0] != 0 || cfg.WindowPos[1] != 0) {
		window.SetPosition(int32(cfg.WindowPos[0]), int32(cfg.WindowPos[1]))
	}

	return &Renderer{cfg: cfg, window: window, renderer: renderer, w: w, h: h}, nil
}

// toByte maps a [-1, 1] color component to its 8-bit channel value.
func toByte(v float64) uint8 {
	v = (v + 1) / 2 * 255
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

func alphaByte(a float64) uint8 {
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	return uint8(a * 255)
}

// screenRect maps a window-centered, y-up stimulus position and size to a
// destination rect in SDL's top-left, y-down pixel space, honoring the view
// offset and the global scale factor.
func (r *Renderer) screenRect(pos, size [2]float64) sdl.FRect {
	sw := size[0] * r.cfg.Scale
	sh := size[1] * r.cfg.Scale
	cx := float64(r.w)/2 + r.cfg.Offset[0] + pos[0]*r.cfg.Scale
	cy := float64(r.h)/2 - r.cfg.Offset[1] - pos[1]*r.cfg.Scale
	return sdl.FRect{
		X: float32(cx - sw/2),
		Y: float32(cy - sh/2),
		W: float32(sw),
		H: float32(sh),
	}
}

func fillBuf(t *engine.Texture, buf []byte) {
	for i := 0; i < t.W*t.H; i++ {
		p := t.Pix[i*4 : i*4+4]
		buf[i*4+0] = toByte(p[0])
		buf[i*4+1] = toByte(p[1])
		buf[i*4+2] = toByte(p[2])
		buf[i*4+3] = alphaByte(p[3])
	}
}

func (r *Renderer) UploadTexture(t *engine.Texture) (engine.Handle, error) {
	tex, err := r.renderer.CreateTexture(sdl.PIXELFORMAT_RGBA32, sdl.TEXTUREACCESS_STREAMING, t.W, t.H)
	if err != nil {
		return nil, fmt.Errorf("creating texture: %w", err)
	}
	tex.SetBlendMode(sdl.BLENDMODE_BLEND)

	st := &sdlTexture{tex: tex, buf: make([]byte, t.W*t.H*4), w: t.W, h: t.H}
	r.textures = append(r.textures, st)
	if err := r.UpdateTexture(st, t); err != nil {
		return nil, err
	}
	return st, nil
}

func (r *Renderer) UpdateTexture(h engine.Handle, t *engine.Texture) error {
	st := h.(*sdlTexture)
	fillBuf(t, st.buf)
	if err := st.tex.Update(nil, st.buf, int32(st.w*4)); err != nil {
		return fmt.Errorf("updating texture: %w", err)
	}
	return nil
}

// DrawTexture draws the stimulus rotated about its center. A fractional
// phase scrolls the texture with wraparound, split into up to four pieces
// that share the stimulus center as rotation pivot.
func (r *Renderer) DrawTexture(h engine.Handle, opts engine.DrawOptions) {
	st := h.(*sdlTexture)
	dst := r.screenRect(opts.Pos, opts.Size)
	angle := opts.Orientation

	fx := frac(opts.Phase[0])
	fy := frac(opts.Phase[1])
	if fx == 0 && fy == 0 {
		r.renderer.RenderTextureRotated(st.tex, nil, &dst, angle, nil, sdl.FLIP_NONE)
		return
	}

	// source offset in texture pixels
	ox := fx * float64(st.w)
	oy := fy * float64(st.h)
	cx := dst.X + dst.W/2
	cy := dst.Y + dst.H/2

	xs := wrapSplit(ox, float64(st.w))
	ys := wrapSplit(oy, float64(st.h))
	for _, px := range xs {
		for _, py := range ys {
			src := sdl.FRect{
				X: float32(px.srcOff),
				Y: float32(py.srcOff),
				W: float32(px.span),
				H: float32(py.span),
			}
			piece := sdl.FRect{
				X: dst.X + float32(px.dstOff/float64(st.w))*dst.W,
				Y: dst.Y + float32(py.dstOff/float64(st.h))*dst.H,
				W: float32(px.span/float64(st.w)) * dst.W,
				H: float32(py.span/float64(st.h)) * dst.H,
			}
			pivot := sdl.FPoint{X: cx - piece.X, Y: cy - piece.Y}
			r.renderer.RenderTextureRotated(st.tex, &src, &piece, angle, &pivot, sdl.FLIP_NONE)
		}
	}
}

type wrapPiece struct {
	srcOff, dstOff, span float64
}

// wrapSplit divides one axis of a scrolled texture into the piece starting
// at the offset and the piece wrapping around from zero.
func wrapSplit(off, size float64) []wrapPiece {
	if off <= 0 || off >= size {
		return []wrapPiece{{0, 0, size}}
	}
	return []wrapPiece{
		{srcOff: off, dstOff: 0, span: size - off},
		{srcOff: 0, dstOff: size - off, span: off},
	}
}

func frac(v float64) float64 {
	f := v - math.Floor(v)
	if f < 0 {
		f += 1
	}
	return f
}

func (r *Renderer) DrawElements(cells []engine.Cell, fieldPos [2]float64, cellSize [2]float64) {
	for _, c := range cells {
		pos := [2]float64{fieldPos[0] + c.Offset[0], fieldPos[1] + c.Offset[1]}
		rect := r.screenRect(pos, cellSize)
		r.renderer.SetDrawColor(toByte(c.Color[0]), toByte(c.Color[1]), toByte(c.Color[2]), alphaByte(c.Color[3]))
		r.renderer.RenderFillRect(&rect)
	}
}

// OpenMovie is not supported by the SDL renderer; SDL3 has no video decode.
func (r *Renderer) OpenMovie(path string, size [2]float64) (engine.Handle, error) {
	return nil, fmt.Errorf("movie playback is not supported by the SDL renderer: %s", path)
}

func (r *Renderer) DrawMovie(h engine.Handle, pos [2]float64) {}

func (r *Renderer) PauseMovie(h engine.Handle) {}

func (r *Renderer) Clear() {
	bg := r.cfg.Background
	r.renderer.SetDrawColor(toByte(bg[0]), toByte(bg[1]), toByte(bg[2]), 255)
	r.renderer.Clear()
}

func (r *Renderer) Flip() error {
	r.renderer.Present()
	return nil
}

// PollQuit drains the event queue and reports whether the window was closed
// or escape pressed.
func (r *Renderer) PollQuit() bool {
	quit := false
	for {
		var ev sdl.Event
		if !sdl.PollEvent(&ev) {
			break
		}
		switch ev.Type {
		case sdl.EVENT_QUIT:
			quit = true
		case sdl.EVENT_KEY_DOWN:
			if ev.KeyboardEvent().Key == sdl.K_ESCAPE {
				quit = true
			}
		}
	}
	return quit
}

func (r *Renderer) Close() {
	for _, st := range r.textures {
		st.tex.Destroy()
	}
	r.renderer.Destroy()
	r.window.Destroy()
	sdl.Quit()
}
