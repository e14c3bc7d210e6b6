package engine

import (
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// Raw .iml frames are fixed-size 16-bit big-endian captures from the
// imaging rig.
const (
	imlWidth  = 1536
	imlHeight = 1024
	imlFloor  = 4095 // 12-bit ceiling used when the data max is lower
)

// Gamma correction of large images is slow, so corrected buffers are cached
// for the lifetime of the process; repetitions reuse them.
var imageCache sync.Map // key string -> *Texture

// imageCacheKey covers everything baked into the cached buffer: the source
// file, channel isolation, the calibration profile, the per-stimulus alpha
// and the target size.
func imageCacheKey(d *Descriptor, g Gamma) string {
	profile := ""
	if g != nil {
		profile = "corrected"
		if p, ok := g.(interface{ Profile() string }); ok {
			profile = p.Profile()
		}
	}
	s := d.DrawSize()
	return fmt.Sprintf("%s|%d|%s|%g|%.0fx%.0f", d.ImageFile, d.ImageChannel, profile, d.Alpha, s[0], s[1])
}

// LoadImageTexture loads an image fill into a [-1, 1] texture: decode,
// downscale to the stimulus size when larger, optional single-channel
// isolation, optional gamma correction, and the 180-degree rotation the
// display path expects. Supports PNG/JPEG and the raw .iml capture format.
func LoadImageTexture(d *Descriptor, g Gamma) (*Texture, error) {
	key := imageCacheKey(d, g)
	if cached, ok := imageCache.Load(key); ok {
		return cached.(*Texture), nil
	}

	var (
		t   *Texture
		err error
	)
	if strings.EqualFold(filepath.Ext(d.ImageFile), ".iml") {
		t, err = loadIML(d)
	} else {
		t, err = loadDecodedImage(d, g)
	}
	if err != nil {
		return nil, err
	}

	rotate180(t)
	imageCache.Store(key, t)
	return t, nil
}

func loadDecodedImage(d *Descriptor, g Gamma) (*Texture, error) {
	f, err := os.Open(d.ImageFile)
	if err != nil {
		return nil, &DataFormatError{Path: d.ImageFile, Reason: err.Error()}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &DataFormatError{Path: d.ImageFile, Reason: "decode: " + err.Error()}
	}

	// downscale oversized sources before the slow per-pixel work
	bounds := img.Bounds()
	target := d.DrawSize()
	maxTarget := int(d.MaxExtent())
	if bounds.Dx() > maxTarget || bounds.Dy() > maxTarget {
		w, h := fitWithin(bounds.Dx(), bounds.Dy(), int(target[0]), int(target[1]))
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
		img = dst
		bounds = dst.Bounds()
	}

	t := NewTexture(bounds.Dx(), bounds.Dy(), d.Alpha)
	for y := 0; y < t.H; y++ {
		for x := 0; x < t.W; x++ {
			r, gr, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			c := [4]float64{
				float64(r)/65535*2 - 1,
				float64(gr)/65535*2 - 1,
				float64(b)/65535*2 - 1,
				d.Alpha,
			}
			if d.ImageChannel != ImageChannelAll {
				for ch := 0; ch < 3; ch++ {
					if ch != d.ImageChannel {
						c[ch] = -1
					}
				}
			}
			if g != nil {
				for ch := 0; ch < 3; ch++ {
					c[ch] = g.Correct(c[ch], ch)
				}
			}
			t.Set(x, y, c)
		}
	}
	return t, nil
}

// loadIML reads the raw 16-bit big-endian capture format: fixed 1536x1024
// samples, normalized against the larger of the data maximum and the 12-bit
// ceiling. No gamma correction applies to raw captures.
func loadIML(d *Descriptor) (*Texture, error) {
	data, err := os.ReadFile(d.ImageFile)
	if err != nil {
		return nil, &DataFormatError{Path: d.ImageFile, Reason: err.Error()}
	}
	want := imlWidth * imlHeight * 2
	if len(data) < want {
		return nil, &DataFormatError{
			Path:   d.ImageFile,
			Reason: fmt.Sprintf("raw image has %d bytes, want %d", len(data), want),
		}
	}

	samples := make([]uint16, imlWidth*imlHeight)
	maxi := uint16(0)
	for i := range samples {
		v := binary.BigEndian.Uint16(data[i*2:])
		samples[i] = v
		if v > maxi {
			maxi = v
		}
	}
	if maxi < imlFloor {
		maxi = imlFloor
	}

	t := NewTexture(imlWidth, imlHeight, d.Alpha)
	for y := 0; y < imlHeight; y++ {
		for x := 0; x < imlWidth; x++ {
			v := float64(samples[y*imlWidth+x])/float64(maxi)*2 - 1
			c := [4]float64{v, v, v, d.Alpha}
			if d.ImageChannel != ImageChannelAll {
				c = [4]float64{-1, -1, -1, d.Alpha}
				c[d.ImageChannel] = v
			}
			t.Set(x, y, c)
		}
	}
	return t, nil
}

func fitWithin(w, h, maxW, maxH int) (int, int) {
	if maxW < 1 || maxH < 1 {
		return w, h
	}
	scale := float64(maxW) / float64(w)
	if s := float64(maxH) / float64(h); s < scale {
		scale = s
	}
	if scale >= 1 {
		return w, h
	}
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

func rotate180(t *Texture) {
	for y := 0; y < t.H/2; y++ {
		for x := 0; x < t.W; x++ {
			ox, oy := t.W-1-x, t.H-1-y
			a, b := t.At(x, y), t.At(ox, oy)
			t.Set(x, y, b)
			t.Set(ox, oy, a)
		}
	}
	if t.H%2 == 1 {
		y := t.H / 2
		for x := 0; x < t.W/2; x++ {
			ox := t.W - 1 - x
			a, b := t.At(x, y), t.At(ox, y)
			t.Set(x, y, b)
			t.Set(ox, y, a)
		}
	}
}
