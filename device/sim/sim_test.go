package sim

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/camcorder/device"
	"github.com/opd-ai/camcorder/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu      sync.Mutex
	buffers []media.SampleBuffer
	changes []device.Change
}

func (h *recordingHandler) HandleSampleBuffer(buf media.SampleBuffer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buffers = append(h.buffers, buf)
}

func (h *recordingHandler) HandleConfigurationChange(change device.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changes = append(h.changes, change)
}

func (h *recordingHandler) counts() (video, audio int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, b := range h.buffers {
		if b.IsVideo() {
			video++
		} else {
			audio++
		}
	}
	return video, audio
}

func TestOpenWiringFailures(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		cfg  device.Config
		want error
	}{
		{"no front camera", Options{Back: true}, device.Config{Position: device.PositionFront}, device.ErrVideoDeviceNotFound},
		{"default camera missing", Options{Front: true}, device.Config{Position: device.PositionNone}, device.ErrVideoDeviceNotFound},
		{"no microphone", Options{Back: true}, device.Config{Position: device.PositionBack, Audio: true}, device.ErrAudioDeviceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.opts)
			err := d.Open(tt.cfg)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.False(t, d.IsOpen())
		})
	}
}

func TestOpenResolvesDefaultPosition(t *testing.T) {
	d := New(DefaultOptions())
	require.NoError(t, d.Open(device.Config{Audio: true}))
	assert.Equal(t, device.Config{Position: device.PositionBack, Audio: true}, d.Config())

	assert.Error(t, d.Open(device.Config{}), "second open must fail")
	require.NoError(t, d.Close())
	require.NoError(t, d.Open(device.Config{Position: device.PositionFront}))

	opens, closes := d.Counts()
	assert.Equal(t, 2, opens)
	assert.Equal(t, 1, closes)
}

func TestInjectedFailures(t *testing.T) {
	d := New(DefaultOptions())

	d.FailOpen(device.ErrAddVideoInput)
	assert.ErrorIs(t, d.Open(device.Config{}), device.ErrAddVideoInput)
	d.FailOpen(nil)
	require.NoError(t, d.Open(device.Config{}))

	d.FailStart(device.ErrAddAudioOutput)
	assert.ErrorIs(t, d.Start(&recordingHandler{}), device.ErrAddAudioOutput)
	assert.False(t, d.Running())

	d.FailStart(nil)
	require.NoError(t, d.Start(&recordingHandler{}))
	assert.True(t, d.Running())
}

func TestStartRequiresOpen(t *testing.T) {
	d := New(DefaultOptions())
	assert.ErrorIs(t, d.Start(&recordingHandler{}), device.ErrNotOpen)
}

func TestEmitDelivery(t *testing.T) {
	d := New(DefaultOptions())
	h := &recordingHandler{}

	assert.False(t, d.Emit(SyntheticVideoFrame(0, true)), "not started")

	require.NoError(t, d.Open(device.Config{Position: device.PositionBack}))
	require.NoError(t, d.Start(h))

	assert.True(t, d.Emit(SyntheticVideoFrame(0, true)))
	assert.False(t, d.Emit(SyntheticAudioFrame(0)), "audio not captured")
	assert.True(t, d.ChangeConfiguration(device.Change{Reason: "orientation"}))

	require.NoError(t, d.Stop())
	assert.False(t, d.Emit(SyntheticVideoFrame(time.Second, false)))
	assert.False(t, d.ChangeConfiguration(device.Change{Reason: "exposure"}))

	video, audio := h.counts()
	assert.Equal(t, 1, video)
	assert.Equal(t, 0, audio)
	require.Len(t, h.changes, 1)
	assert.Equal(t, "orientation", h.changes[0].Reason)
}

func TestFocus(t *testing.T) {
	d := New(DefaultOptions())
	assert.ErrorIs(t, d.Focus(device.FocusAuto, device.Point{}), device.ErrNotOpen)

	require.NoError(t, d.Open(device.Config{}))
	require.NoError(t, d.Focus(device.FocusAuto, device.Point{X: 0.5, Y: 0.5}))
	require.NoError(t, d.Focus(device.FocusContinuous, device.Point{X: 0.1, Y: 0.9}))

	d.FailFocus(errors.New("lens stuck"))
	assert.Error(t, d.Focus(device.FocusAuto, device.Point{}))

	calls := d.FocusCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, device.FocusContinuous, calls[1].Mode)

	noFocus := New(Options{Back: true})
	assert.False(t, noFocus.SupportsFocus())
	require.NoError(t, noFocus.Open(device.Config{}))
	assert.ErrorIs(t, noFocus.Focus(device.FocusAuto, device.Point{}), device.ErrFocusUnsupported)
}

func TestGeneratorProducesStream(t *testing.T) {
	opts := DefaultOptions()
	opts.FrameInterval = 5 * time.Millisecond
	opts.AudioInterval = 5 * time.Millisecond
	d := New(opts)
	h := &recordingHandler{}

	require.NoError(t, d.Open(device.Config{Audio: true}))
	require.NoError(t, d.Start(h))

	assert.Eventually(t, func() bool {
		video, audio := h.counts()
		return video >= 3 && audio >= 3
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, d.Close())
	video, audio := h.counts()
	time.Sleep(20 * time.Millisecond)
	afterVideo, afterAudio := h.counts()
	assert.Equal(t, video, afterVideo, "no delivery after close")
	assert.Equal(t, audio, afterAudio)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.True(t, h.buffers[0].Keyframe || h.buffers[0].IsAudio())
}

func TestSyntheticFrames(t *testing.T) {
	key := SyntheticVideoFrame(40*time.Millisecond, true)
	assert.True(t, key.IsVideo())
	assert.True(t, key.Keyframe)
	assert.Equal(t, vp8KeyframeHeader, key.Data[3:6])

	delta := SyntheticVideoFrame(80*time.Millisecond, false)
	assert.False(t, delta.Keyframe)
	assert.Equal(t, byte(0x11), delta.Data[0])

	a := SyntheticAudioFrame(20 * time.Millisecond)
	assert.True(t, a.IsAudio())
	a.Data[0] = 0xff
	assert.Equal(t, byte(0x08), silentOpusFrame[0], "frames must not alias the template")
}
