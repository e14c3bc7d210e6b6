package engine

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stim.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func imageDescriptor(t *testing.T, path string, sizePx float64, channel string, mutate func(*Params)) *Descriptor {
	t.Helper()
	cfg := testConfig()
	cfg.PixPerMicron = 1
	p := DefaultParams()
	p.Fill = FillImage
	p.ImageFile = path
	p.ImageSize = [2]float64{sizePx, sizePx}
	p.ImageChannel = channel
	if mutate != nil {
		mutate(&p)
	}
	d, err := NewDescriptor(p, cfg)
	require.NoError(t, err)
	return d
}

func TestLoadImageTextureRotates(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	// single white pixel in the top-left corner
	src.Set(0, 0, color.White)
	d := imageDescriptor(t, writePNG(t, src), 10, "all", nil)

	tex, err := LoadImageTexture(d, nil)
	require.NoError(t, err)
	require.Equal(t, 4, tex.W)

	assert.InDelta(t, 1, tex.At(3, 3)[0], 0.01, "display path flips the image 180 degrees")
	assert.InDelta(t, -1, tex.At(0, 0)[0], 0.01)
}

func TestLoadImageTextureChannelIsolation(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			src.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	d := imageDescriptor(t, writePNG(t, src), 10, "green", nil)

	tex, err := LoadImageTexture(d, nil)
	require.NoError(t, err)

	px := tex.At(0, 0)
	assert.Equal(t, -1.0, px[0], "other channels drop to the floor")
	assert.InDelta(t, 1, px[1], 0.01)
	assert.Equal(t, -1.0, px[2])
}

func TestLoadImageTextureDownscales(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 20))
	d := imageDescriptor(t, writePNG(t, src), 10, "all", nil)

	tex, err := LoadImageTexture(d, nil)
	require.NoError(t, err)

	assert.Equal(t, 10, tex.W, "oversized sources shrink to the stimulus size")
	assert.Equal(t, 5, tex.H, "aspect ratio is preserved")
}

func TestLoadImageTextureCaches(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	d := imageDescriptor(t, writePNG(t, src), 10, "all", nil)

	t1, err := LoadImageTexture(d, nil)
	require.NoError(t, err)
	t2, err := LoadImageTexture(d, nil)
	require.NoError(t, err)

	assert.Same(t, t1, t2, "repeated loads reuse the corrected buffer")
}

func TestLoadImageTexturePerStimulusAlpha(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	path := writePNG(t, src)

	opaque := imageDescriptor(t, path, 10, "all", nil)
	faint := imageDescriptor(t, path, 10, "all", func(p *Params) { p.Alpha = 0.5 })

	t1, err := LoadImageTexture(opaque, nil)
	require.NoError(t, err)
	t2, err := LoadImageTexture(faint, nil)
	require.NoError(t, err)

	assert.NotSame(t, t1, t2, "different alphas never share a buffer")
	assert.Equal(t, 1.0, t1.At(0, 0)[3])
	assert.Equal(t, 0.5, t2.At(0, 0)[3])
}

func TestLoadImageTextureMissingFile(t *testing.T) {
	d := imageDescriptor(t, filepath.Join(t.TempDir(), "missing.png"), 10, "all", nil)

	_, err := LoadImageTexture(d, nil)
	var dfe *DataFormatError
	assert.ErrorAs(t, err, &dfe)
}

func TestLoadIML(t *testing.T) {
	buf := make([]byte, imlWidth*imlHeight*2)
	// one bright sample at the 12-bit ceiling, top-left corner
	binary.BigEndian.PutUint16(buf[0:], imlFloor)

	path := filepath.Join(t.TempDir(), "capture.iml")
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	d := imageDescriptor(t, path, 10, "all", nil)
	tex, err := LoadImageTexture(d, nil)
	require.NoError(t, err)
	require.Equal(t, imlWidth, tex.W)
	require.Equal(t, imlHeight, tex.H)

	// after the 180-degree rotation the bright sample sits bottom-right
	assert.InDelta(t, 1, tex.At(imlWidth-1, imlHeight-1)[0], 1e-9)
	assert.InDelta(t, -1, tex.At(0, 0)[0], 1e-9)
}

func TestLoadIMLTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.iml")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))

	d := imageDescriptor(t, path, 10, "all", nil)
	_, err := LoadImageTexture(d, nil)

	var dfe *DataFormatError
	assert.ErrorAs(t, err, &dfe)
}
