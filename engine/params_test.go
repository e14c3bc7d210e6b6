package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	c := DefaultConfig()
	c.FrameRate = 10
	c.PixPerMicron = 2
	return c
}

func TestNewDescriptorConversions(t *testing.T) {
	cfg := testConfig()
	p := DefaultParams()
	p.Size = [2]float64{100, 50}
	p.OuterDiameter = 75
	p.Location = [2]float64{10, -20}
	p.Delay = 0.5
	p.Duration = 2
	p.MoveDelay = 0.95
	p.Speed = 40
	p.PeriodMod = 3
	p.PhaseSpeed = [2]float64{1, 0}

	d, err := NewDescriptor(p, cfg)
	require.NoError(t, err)

	assert.Equal(t, [2]float64{200, 100}, d.Size)
	assert.Equal(t, 150.0, d.OuterDiameter)
	assert.Equal(t, [2]float64{20, -40}, d.Location)
	assert.Equal(t, 5, d.DelayFrames)
	assert.Equal(t, 20, d.DurationFrames)
	// move delay truncates rather than rounds
	assert.Equal(t, 9, d.MoveDelayFrames)
	assert.InDelta(t, 8.0, d.Speed, 1e-12, "40 um/s at 2 px/um over 10 Hz")
	assert.Equal(t, 3*2*2.0, d.PeriodMod)
	assert.InDelta(t, 0.1, d.PhaseSpeed[0], 1e-12)
}

func TestNewDescriptorForceStop(t *testing.T) {
	cfg := testConfig()

	p := DefaultParams()
	p.ForceStop = 0
	d, err := NewDescriptor(p, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, d.ForceStopFrame)

	p.ForceStop = 1.5
	d, err = NewDescriptor(p, cfg)
	require.NoError(t, err)
	assert.Equal(t, 15, d.ForceStopFrame)
}

func TestNewDescriptorValidation(t *testing.T) {
	cfg := testConfig()

	p := DefaultParams()
	p.Fill = FillImage
	_, err := NewDescriptor(p, cfg)
	assert.Error(t, err, "image fill without a file must fail")

	p = DefaultParams()
	p.Fill = FillMovie
	_, err = NewDescriptor(p, cfg)
	assert.Error(t, err)

	p = DefaultParams()
	p.Motion = MotionTable
	_, err = NewDescriptor(p, cfg)
	assert.Error(t, err)

	p = DefaultParams()
	p.NumDirs = 0
	_, err = NewDescriptor(p, cfg)
	assert.Error(t, err)

	p = DefaultParams()
	p.Motion = MotionSweep
	p.Speed = 0
	_, err = NewDescriptor(p, cfg)
	assert.Error(t, err, "moving stimulus with zero speed must fail")

	p = DefaultParams()
	p.Motion = MotionRandomWalk
	p.Speed = -5
	_, err = NewDescriptor(p, cfg)
	assert.Error(t, err)

	p = DefaultParams()
	p.ContrastChannel = "magenta"
	_, err = NewDescriptor(p, cfg)
	assert.Error(t, err)
}

func TestPrefDirOverride(t *testing.T) {
	cfg := testConfig()
	p := DefaultParams()
	p.StartDir = 45

	d, err := NewDescriptor(p, cfg)
	require.NoError(t, err)
	assert.Equal(t, 45.0, d.StartDir)

	cfg.PrefDir = 270
	d, err = NewDescriptor(p, cfg)
	require.NoError(t, err)
	assert.Equal(t, 270.0, d.StartDir, "a set preferred direction overrides the stimulus")
}

func TestDrawSize(t *testing.T) {
	cfg := testConfig()
	cfg.PixPerMicron = 1

	p := DefaultParams()
	p.Shape = ShapeCircle
	p.OuterDiameter = 80
	d, err := NewDescriptor(p, cfg)
	require.NoError(t, err)
	assert.Equal(t, [2]float64{80, 80}, d.DrawSize())

	p.Shape = ShapeRectangle
	p.Fill = FillSine
	p.Size = [2]float64{120, 40}
	d, err = NewDescriptor(p, cfg)
	require.NoError(t, err)
	assert.Equal(t, [2]float64{120, 40}, d.DrawSize())
	assert.Equal(t, 120.0, d.MaxExtent())

	p.Fill = FillImage
	p.ImageFile = "scene.png"
	p.ImageSize = [2]float64{300, 200}
	d, err = NewDescriptor(p, cfg)
	require.NoError(t, err)
	assert.Equal(t, [2]float64{300, 200}, d.DrawSize())
}

func TestParseEnums(t *testing.T) {
	m, err := ParseMotionType("Sweep")
	require.NoError(t, err)
	assert.Equal(t, MotionSweep, m)

	_, err = ParseMotionType("orbit")
	assert.Error(t, err)

	ch, err := ParseChannel("blue")
	require.NoError(t, err)
	assert.Equal(t, 2, ch)

	ch, err = ParseImageChannel("all")
	require.NoError(t, err)
	assert.Equal(t, ImageChannelAll, ch)
}

func TestDescribeNamesStim(t *testing.T) {
	cfg := testConfig()
	p := DefaultParams()
	p.Name = "bar1"
	d, err := NewDescriptor(p, cfg)
	require.NoError(t, err)

	s := d.Describe()
	assert.Contains(t, s, "bar1")
	assert.Contains(t, s, "duration_frames")
}
