// Package sim provides a simulated camera and microphone.
//
// The simulated device honours the full device.Device contract, including the
// wiring failures real hardware reports, and can either be driven by hand
// with Emit or left to generate a synthetic stream on its own.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/camcorder/device"
	"github.com/opd-ai/camcorder/media"
	"github.com/sirupsen/logrus"
)

// Options describes the simulated hardware.
type Options struct {
	Front      bool
	Back       bool
	Microphone bool
	Focus      bool
	// FrameInterval enables the built-in generator when non-zero. Video
	// frames are produced at this interval and audio every AudioInterval.
	FrameInterval time.Duration
	AudioInterval time.Duration
	// KeyframeEvery marks every Nth generated video frame as a keyframe.
	KeyframeEvery int
}

// DefaultOptions returns a phone-like device with both cameras, a microphone
// and focus control, generating nothing.
func DefaultOptions() Options {
	return Options{
		Front:         true,
		Back:          true,
		Microphone:    true,
		Focus:         true,
		AudioInterval: 20 * time.Millisecond,
		KeyframeEvery: 30,
	}
}

// FocusCall records one Focus request.
type FocusCall struct {
	Mode  device.FocusMode
	Point device.Point
}

// Device is a simulated capture device.
type Device struct {
	mu      sync.Mutex
	opts    Options
	cfg     device.Config
	open    bool
	handler device.Handler

	openErr  error
	startErr error
	focusErr error

	opens      int
	closes     int
	focusCalls []FocusCall

	stop chan struct{}
	done chan struct{}
}

// New creates a simulated device.
func New(opts Options) *Device {
	if opts.AudioInterval <= 0 {
		opts.AudioInterval = 20 * time.Millisecond
	}
	if opts.KeyframeEvery <= 0 {
		opts.KeyframeEvery = 30
	}
	return &Device{opts: opts}
}

// FailOpen makes subsequent Open calls return err. Pass nil to clear.
func (d *Device) FailOpen(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openErr = err
}

// FailStart makes subsequent Start calls return err. Pass nil to clear.
func (d *Device) FailStart(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startErr = err
}

// FailFocus makes subsequent Focus calls return err. Pass nil to clear.
func (d *Device) FailFocus(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.focusErr = err
}

// Open implements device.Device.
func (d *Device) Open(cfg device.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return fmt.Errorf("%w: session already open", device.ErrAddVideoInput)
	}
	if d.openErr != nil {
		return d.openErr
	}

	pos := cfg.Position.Resolve()
	if (pos == device.PositionFront && !d.opts.Front) || (pos == device.PositionBack && !d.opts.Back) {
		return fmt.Errorf("%w: no %s camera", device.ErrVideoDeviceNotFound, pos)
	}
	if cfg.Audio && !d.opts.Microphone {
		return device.ErrAudioDeviceNotFound
	}

	d.cfg = device.Config{Position: pos, Audio: cfg.Audio}
	d.open = true
	d.opens++

	logrus.WithFields(logrus.Fields{
		"function": "sim.Device.Open",
		"position": pos.String(),
		"audio":    cfg.Audio,
	}).Debug("Simulated session opened")

	return nil
}

// Start implements device.Device.
func (d *Device) Start(h device.Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return device.ErrNotOpen
	}
	if d.startErr != nil {
		return d.startErr
	}
	if h == nil {
		return fmt.Errorf("%w: nil handler", device.ErrAddVideoOutput)
	}
	d.handler = h

	if d.opts.FrameInterval > 0 && d.stop == nil {
		d.stop = make(chan struct{})
		d.done = make(chan struct{})
		go d.generate(d.stop, d.done, d.cfg.Audio)
	}
	return nil
}

// Stop implements device.Device.
func (d *Device) Stop() error {
	d.mu.Lock()
	stop, done := d.stop, d.done
	d.stop, d.done = nil, nil
	d.handler = nil
	d.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

// Close implements device.Device.
func (d *Device) Close() error {
	if err := d.Stop(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		d.open = false
		d.closes++
	}
	return nil
}

// SupportsFocus implements device.Device.
func (d *Device) SupportsFocus() bool {
	return d.opts.Focus
}

// Focus implements device.Device.
func (d *Device) Focus(mode device.FocusMode, p device.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opts.Focus {
		return device.ErrFocusUnsupported
	}
	if !d.open {
		return device.ErrNotOpen
	}
	if d.focusErr != nil {
		return d.focusErr
	}
	d.focusCalls = append(d.focusCalls, FocusCall{Mode: mode, Point: p})
	return nil
}

// Emit delivers buf to the started handler. It reports false when the device
// is not started or the buffer kind is not being captured.
func (d *Device) Emit(buf media.SampleBuffer) bool {
	d.mu.Lock()
	h := d.handler
	audio := d.cfg.Audio
	d.mu.Unlock()

	if h == nil || (buf.Kind == media.KindAudio && !audio) {
		return false
	}
	h.HandleSampleBuffer(buf)
	return true
}

// ChangeConfiguration reports a hardware-initiated change to the handler.
func (d *Device) ChangeConfiguration(change device.Change) bool {
	d.mu.Lock()
	h := d.handler
	d.mu.Unlock()

	if h == nil {
		return false
	}
	h.HandleConfigurationChange(change)
	return true
}

// Running reports whether a handler is attached.
func (d *Device) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handler != nil
}

// IsOpen reports whether a session is open.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Config returns the configuration of the last successful Open.
func (d *Device) Config() device.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Counts returns how many times the session was opened and closed.
func (d *Device) Counts() (opens, closes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens, d.closes
}

// FocusCalls returns the Focus requests seen so far.
func (d *Device) FocusCalls() []FocusCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]FocusCall, len(d.focusCalls))
	copy(out, d.focusCalls)
	return out
}
