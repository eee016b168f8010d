package camcorder

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/opd-ai/camcorder/atomicflag"
	"github.com/opd-ai/camcorder/device"
	"github.com/opd-ai/camcorder/media"
	"github.com/opd-ai/camcorder/metrics"
	"github.com/opd-ai/camcorder/movie"
	"github.com/sirupsen/logrus"
)

// Camcorder controls one capture device and records what it delivers.
//
// Commands return immediately; they are queued together with sample
// buffers, ticks and timer expiries on a single FIFO drained by one
// goroutine, which owns the device session, the movie writer and the state.
// Outcomes are reported on Events.
type Camcorder struct {
	dev     device.Device
	opts    Options
	tp      TimeProvider
	metrics *metrics.Metrics

	queue   *workQueue
	outbox  *outbox
	preview *media.Preview
	gate    *atomicflag.AtomicFlag

	// Owned by the work loop.
	state        State
	session      device.Config
	writer       *movie.Writer
	recording    recordingRequest
	recGen       uint64
	ticker       Ticker
	tickerStop   chan struct{}
	autoOffArmed bool
	autoOffGen   uint64
	autoOffTimer Timer
	autoOffStop  chan struct{}

	snapMu      sync.RWMutex
	snapState   State
	snapElapsed time.Duration
	snapSession device.Config

	closeOnce sync.Once
	done      chan struct{}
}

type recordingRequest struct {
	dir      string
	width    int
	height   int
	audio    bool
	interval time.Duration
}

// Jobs carried by the work queue.
type (
	turnOnJob         struct{ cfg device.Config }
	turnOffJob        struct{}
	startRecordingJob struct{ req recordingRequest }
	stopRecordingJob  struct{}
	focusJob          struct {
		mode  device.FocusMode
		point device.Point
	}
	autoOffJob        struct{ arm bool }
	sampleJob         struct{ buf media.SampleBuffer }
	tickJob           struct{ gen uint64 }
	autoOffExpiredJob struct{ gen uint64 }
	changeJob         struct{ change device.Change }
	closeJob          struct{}
)

// New creates a Camcorder for dev and starts its work loop. opts may be nil
// to use NewOptions.
func New(dev device.Device, opts *Options) (*Camcorder, error) {
	if dev == nil {
		return nil, errors.New("device cannot be nil")
	}
	o := opts.normalized()

	var meter *media.AudioMeter
	if o.PreviewMeter {
		meter = media.NewOpusAudioMeter()
	}

	c := &Camcorder{
		dev:     dev,
		opts:    o,
		tp:      o.TimeProvider,
		metrics: o.Metrics,
		queue:   newWorkQueue(o.MaxPendingSamples),
		outbox:  newOutbox(o.EventBuffer),
		preview: media.NewPreview(meter),
		gate:    atomicflag.New(),
		done:    make(chan struct{}),
	}
	c.metrics.SetState(StateOff.String(), stateNames())

	go c.run()

	logrus.WithFields(logrus.Fields{
		"function":            "New",
		"max_pending_samples": o.MaxPendingSamples,
		"auto_off_interval":   o.AutoOffInterval,
	}).Info("Camcorder created")

	return c, nil
}

// TurnOn opens the capture session. When already on, the session is turned
// off first, stopping any recording.
func (c *Camcorder) TurnOn(position device.Position, captureAudio bool) {
	c.submit(cmdTurnOn.String(), turnOnJob{cfg: device.Config{Position: position, Audio: captureAudio}})
}

// TurnOff releases the capture session, sealing any recording first.
func (c *Camcorder) TurnOff() {
	c.submit(cmdTurnOff.String(), turnOffJob{})
}

// StartRecording opens a new movie file in outputDir. With a non-zero
// timeInterval the recording stops on its own once that much media time has
// been written. Audio is recorded only if the session captures audio too.
func (c *Camcorder) StartRecording(outputDir string, width, height int, captureAudio bool, timeInterval time.Duration) {
	c.submit(cmdStartRecording.String(), startRecordingJob{req: recordingRequest{
		dir:      outputDir,
		width:    width,
		height:   height,
		audio:    captureAudio,
		interval: timeInterval,
	}})
}

// StopRecording seals the current recording.
func (c *Camcorder) StopRecording() {
	c.submit(cmdStopRecording.String(), stopRecordingJob{})
}

// AutoFocus focuses once on p and locks.
func (c *Camcorder) AutoFocus(p device.Point) {
	c.submit("auto_focus", focusJob{mode: device.FocusAuto, point: p})
}

// ContinuousFocus keeps focusing around p.
func (c *Camcorder) ContinuousFocus(p device.Point) {
	c.submit("continuous_focus", focusJob{mode: device.FocusContinuous, point: p})
}

// StartAutoOffTimer arms the idle timer: while on and not recording, the
// camera turns itself off after Options.AutoOffInterval without commands.
func (c *Camcorder) StartAutoOffTimer() {
	c.submit("start_auto_off_timer", autoOffJob{arm: true})
}

// StopAutoOffTimer disarms the idle timer.
func (c *Camcorder) StopAutoOffTimer() {
	c.submit("stop_auto_off_timer", autoOffJob{arm: false})
}

// Close seals any recording, turns the camera off and stops the work loop.
// It blocks until the loop has exited. The Events channel is closed once the
// remaining events have been received.
func (c *Camcorder) Close() error {
	c.closeOnce.Do(func() {
		c.queue.push(closeJob{})
		c.queue.seal()
	})
	<-c.done
	return nil
}

func (c *Camcorder) submit(name string, job any) {
	if !c.queue.push(job) {
		logrus.WithFields(logrus.Fields{
			"function": "Camcorder.submit",
			"command":  name,
		}).Warn("Command ignored, camcorder is closed")
		return
	}
	c.metrics.IncCommand(name)
}

// State returns the current session state.
func (c *Camcorder) State() State {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snapState
}

// IsOn reports whether the capture session is running.
func (c *Camcorder) IsOn() bool {
	switch c.State() {
	case StateOn, StateStartingRecording, StateRecording, StateStoppingRecording:
		return true
	default:
		return false
	}
}

// IsRecording reports whether a recording holds the recording gate.
func (c *Camcorder) IsRecording() bool {
	return c.gate.IsSet()
}

// RecordingElapsedTime returns the media time of the current recording, or
// the duration of the last one.
func (c *Camcorder) RecordingElapsedTime() time.Duration {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snapElapsed
}

// Configuration returns the session configuration of the last turn-on.
func (c *Camcorder) Configuration() device.Config {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snapSession
}

// Preview returns the live preview handle.
func (c *Camcorder) Preview() *media.Preview {
	return c.preview
}

// Events returns the channel events are delivered on.
func (c *Camcorder) Events() <-chan Event {
	return c.outbox.out
}

// QueueDepth returns the number of jobs waiting on the work loop.
func (c *Camcorder) QueueDepth() int {
	return c.queue.len()
}

func (c *Camcorder) run() {
	defer close(c.done)
	defer c.outbox.close()

	for {
		job, ok := c.queue.pop()
		if !ok {
			return
		}
		c.metrics.SetQueueDepth(c.queue.len())
		if c.safeHandle(job) {
			return
		}
	}
}

func (c *Camcorder) safeHandle(job any) (stop bool) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Camcorder.run",
				"panic":    r,
				"state":    c.state.String(),
				"stack":    string(debug.Stack()),
			}).Error("Recovered from panic on the work loop")
			c.restoreAfterPanic(fmt.Errorf("panic: %v", r))
		}
	}()
	return c.handle(job)
}

// restoreAfterPanic returns a step interrupted by a panic to the stable
// state it started from and reports the failure. Panics in stable states
// leave nothing half done.
func (c *Camcorder) restoreAfterPanic(cause error) {
	switch c.state {
	case StateTurningOn:
		c.guard("Device.Stop", func() { _ = c.dev.Stop() })
		c.guard("Device.Close", func() { _ = c.dev.Close() })
		c.preview.Reset()
		c.setState(StateOff)
		c.fail(newError(CodeAddVideoInput, cause))
	case StateStartingRecording, StateStoppingRecording:
		code := CodeWriterInitializationFailed
		if c.state == StateStoppingRecording {
			code = CodeFinalizationFailed
		}
		c.stopTicker()
		c.abandonWriter()
		c.gate.TryClear()
		c.setState(StateOn)
		c.fail(newError(code, cause))
	default:
		return
	}
	c.rearmAutoOff()
}

// guard runs a cleanup action, containing any panic it raises.
func (c *Camcorder) guard(action string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Camcorder.guard",
				"action":   action,
				"panic":    r,
			}).Error("Cleanup action panicked")
		}
	}()
	fn()
}

// abandonWriter ends the current writer and removes whatever it produced.
func (c *Camcorder) abandonWriter() {
	w := c.writer
	c.writer = nil
	if w == nil {
		return
	}
	c.guard("Writer.End", func() {
		if res, err := w.End(); err == nil {
			_ = os.Remove(res.Path)
		}
	})
}

func (c *Camcorder) handle(job any) bool {
	switch j := job.(type) {
	case sampleJob:
		c.route(j.buf)
	case tickJob:
		c.tick(j.gen)
	case changeJob:
		logrus.WithFields(logrus.Fields{
			"function": "Camcorder.handle",
			"reason":   j.change.Reason,
		}).Info("Device configuration changed")
		c.emit(DeviceConfigurationChangedEvent{Change: j.change})
	case autoOffExpiredJob:
		c.autoOffExpired(j.gen)
	case autoOffJob:
		c.cancelAutoOff()
		c.autoOffArmed = j.arm
		c.rearmAutoOff()
	case turnOnJob:
		c.execute(cmdTurnOn, j)
	case turnOffJob:
		c.execute(cmdTurnOff, j)
	case startRecordingJob:
		c.execute(cmdStartRecording, j)
	case stopRecordingJob:
		c.execute(cmdStopRecording, j)
	case focusJob:
		c.execute(cmdFocus, j)
	case closeJob:
		c.shutdown()
		return true
	}
	return false
}

// execute runs a command with the auto-off timer suspended around it.
func (c *Camcorder) execute(cmd command, job any) {
	c.cancelAutoOff()
	defer c.rearmAutoOff()
	c.runPlan(cmd, job)
}

func (c *Camcorder) runPlan(cmd command, job any) {
	p, ok := planFor(c.state, cmd)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "Camcorder.runPlan",
			"command":  cmd.String(),
			"state":    c.state.String(),
		}).Error("No transition for command")
		return
	}

	if p.reject != 0 {
		logrus.WithFields(logrus.Fields{
			"function": "Camcorder.runPlan",
			"command":  cmd.String(),
			"state":    c.state.String(),
			"code":     p.reject.String(),
		}).Warn("Command rejected")
		c.metrics.IncRejection(cmd.String(), p.reject.String())
		c.fail(newError(p.reject, nil))
		return
	}

	for _, s := range p.steps {
		logrus.WithFields(logrus.Fields{
			"function": "Camcorder.runPlan",
			"command":  cmd.String(),
			"step":     s.String(),
			"state":    c.state.String(),
		}).Debug("Executing step")

		switch s {
		case stepTurnOn:
			c.turnOn(job.(turnOnJob).cfg)
		case stepTurnOff:
			c.turnOff()
		case stepStartRecording:
			c.startRecording(job.(startRecordingJob).req)
		case stepStopRecording:
			c.stopRecording()
		case stepFocus:
			f := job.(focusJob)
			c.focus(f.mode, f.point)
		}
	}
}

func (c *Camcorder) turnOn(cfg device.Config) {
	cfg.Position = cfg.Position.Resolve()
	c.setState(StateTurningOn)

	if err := c.dev.Open(cfg); err != nil {
		c.setState(StateOff)
		c.fail(deviceError(err, CodeAddVideoInput))
		return
	}
	if err := c.dev.Start(sink{c}); err != nil {
		if cerr := c.dev.Close(); cerr != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Camcorder.turnOn",
				"error":    cerr.Error(),
			}).Warn("Failed to close device after start failure")
		}
		c.setState(StateOff)
		c.fail(deviceError(err, CodeAddVideoOutput))
		return
	}

	c.session = cfg
	c.snapMu.Lock()
	c.snapSession = cfg
	c.snapMu.Unlock()
	c.setState(StateOn)

	logrus.WithFields(logrus.Fields{
		"function": "Camcorder.turnOn",
		"position": cfg.Position.String(),
		"audio":    cfg.Audio,
	}).Info("Camera turned on")

	c.emit(TurnedOnEvent{Config: cfg})
}

func (c *Camcorder) turnOff() {
	if err := c.dev.Stop(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Camcorder.turnOff",
			"error":    err.Error(),
		}).Warn("Failed to stop device")
	}
	if err := c.dev.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Camcorder.turnOff",
			"error":    err.Error(),
		}).Warn("Failed to close device")
	}
	c.preview.Reset()
	c.setState(StateOff)

	logrus.WithFields(logrus.Fields{
		"function": "Camcorder.turnOff",
	}).Info("Camera turned off")

	c.emit(TurnedOffEvent{})
}

func (c *Camcorder) startRecording(req recordingRequest) {
	c.setState(StateStartingRecording)

	if !c.gate.TrySet() {
		c.setState(StateOn)
		c.fail(newError(CodeAlreadyRecording, nil))
		return
	}

	audio := req.audio && c.session.Audio
	w, err := movie.New(req.dir, req.width, req.height, audio, c.opts.Movie)
	if err == nil {
		err = w.Begin()
	}
	if err != nil {
		c.gate.TryClear()
		c.setState(StateOn)
		c.fail(writerError(err, CodeWriterInitializationFailed))
		return
	}

	c.writer = w
	c.recording = req
	c.setElapsed(0)
	c.setState(StateRecording)
	c.startTicker()

	logrus.WithFields(logrus.Fields{
		"function": "Camcorder.startRecording",
		"path":     w.Path(),
		"width":    req.width,
		"height":   req.height,
		"audio":    audio,
		"interval": req.interval,
	}).Info("Recording started")

	c.emit(StartedRecordingEvent{Path: w.Path(), At: c.tp.Now()})
}

func (c *Camcorder) stopRecording() {
	c.setState(StateStoppingRecording)
	c.stopTicker()

	w := c.writer
	c.writer = nil
	result, err := w.End()
	c.gate.TryClear()
	c.setState(StateOn)

	if err != nil {
		c.fail(writerError(err, CodeFinalizationFailed))
		return
	}

	c.setElapsed(result.Duration)
	c.metrics.ObserveRecording(result.Duration, result.Size)

	logrus.WithFields(logrus.Fields{
		"function":     "Camcorder.stopRecording",
		"path":         result.Path,
		"duration":     result.Duration,
		"video_frames": result.VideoFrames,
		"audio_frames": result.AudioFrames,
	}).Info("Recording finished")

	c.emit(FinishedRecordingEvent{Path: result.Path, Result: result, At: c.tp.Now()})
}

func (c *Camcorder) focus(mode device.FocusMode, p device.Point) {
	if !c.dev.SupportsFocus() {
		logrus.WithFields(logrus.Fields{
			"function": "Camcorder.focus",
			"mode":     mode.String(),
		}).Info("Device has no focus control, ignoring request")
		return
	}
	if err := c.dev.Focus(mode, p.Clamp()); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Camcorder.focus",
			"mode":     mode.String(),
			"error":    err.Error(),
		}).Warn("Focus request failed")
	}
}

// shutdown turns the camera off as part of Close.
func (c *Camcorder) shutdown() {
	c.cancelAutoOff()
	c.autoOffArmed = false
	if c.state != StateOff {
		c.runPlan(cmdTurnOff, turnOffJob{})
	}

	logrus.WithFields(logrus.Fields{
		"function": "Camcorder.Close",
	}).Info("Camcorder closed")
}

// route hands a delivered buffer to the preview and, while recording, to the
// movie writer.
func (c *Camcorder) route(buf media.SampleBuffer) {
	c.preview.Update(buf)

	kind := buf.Kind.String()
	if c.state != StateRecording || c.writer == nil {
		c.metrics.IncSampleDropped(kind, "not_recording")
		return
	}

	var ok bool
	switch buf.Kind {
	case media.KindVideo:
		ok = c.writer.ProcessVideoSampleBuffer(buf)
	case media.KindAudio:
		ok = c.writer.ProcessAudioSampleBuffer(buf)
	}
	if ok {
		c.metrics.IncSampleWritten(kind)
	} else {
		c.metrics.IncSampleDropped(kind, "rejected")
	}

	c.setElapsed(c.writer.Elapsed())
	c.checkAutoStop()
}

func (c *Camcorder) tick(gen uint64) {
	if gen != c.recGen || c.state != StateRecording {
		return
	}
	elapsed := c.writer.Elapsed()
	c.setElapsed(elapsed)
	c.emit(RecordingElapsedTimeEvent{Elapsed: elapsed})
	c.checkAutoStop()
}

// checkAutoStop stops the recording through the regular StopRecording path
// once the requested time interval has been written.
func (c *Camcorder) checkAutoStop() {
	if c.state != StateRecording || c.recording.interval <= 0 {
		return
	}
	elapsed := c.writer.Elapsed()
	if elapsed < c.recording.interval {
		return
	}

	logrus.WithFields(logrus.Fields{
		"function": "Camcorder.checkAutoStop",
		"elapsed":  elapsed,
		"interval": c.recording.interval,
	}).Info("Recording time interval reached")

	c.execute(cmdStopRecording, stopRecordingJob{})
}

func (c *Camcorder) startTicker() {
	c.recGen++
	gen := c.recGen
	t := c.tp.NewTicker(c.opts.ElapsedTimeInterval)
	stop := make(chan struct{})
	c.ticker, c.tickerStop = t, stop

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-t.C():
				if !c.queue.push(tickJob{gen: gen}) {
					return
				}
			}
		}
	}()
}

func (c *Camcorder) stopTicker() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.tickerStop)
	c.ticker, c.tickerStop = nil, nil
	c.recGen++
}

// rearmAutoOff starts the idle timer when it is armed and the camera is on
// and not recording.
func (c *Camcorder) rearmAutoOff() {
	if !c.autoOffArmed || c.state != StateOn || c.autoOffTimer != nil {
		return
	}
	c.autoOffGen++
	gen := c.autoOffGen
	t := c.tp.NewTimer(c.opts.AutoOffInterval)
	stop := make(chan struct{})
	c.autoOffTimer, c.autoOffStop = t, stop

	go func() {
		select {
		case <-stop:
		case <-t.C():
			c.queue.push(autoOffExpiredJob{gen: gen})
		}
	}()
}

func (c *Camcorder) cancelAutoOff() {
	if c.autoOffTimer == nil {
		return
	}
	c.autoOffTimer.Stop()
	close(c.autoOffStop)
	c.autoOffTimer, c.autoOffStop = nil, nil
	c.autoOffGen++
}

func (c *Camcorder) autoOffExpired(gen uint64) {
	if gen != c.autoOffGen || c.autoOffTimer == nil {
		logrus.WithFields(logrus.Fields{
			"function": "Camcorder.autoOffExpired",
			"gen":      gen,
		}).Debug("Ignoring stale auto-off expiry")
		return
	}
	close(c.autoOffStop)
	c.autoOffTimer, c.autoOffStop = nil, nil

	if c.state != StateOn {
		return
	}

	logrus.WithFields(logrus.Fields{
		"function": "Camcorder.autoOffExpired",
		"interval": c.opts.AutoOffInterval,
	}).Info("Idle timeout reached, turning camera off")

	c.execute(cmdTurnOff, turnOffJob{})
}

func (c *Camcorder) setState(s State) {
	c.state = s
	c.snapMu.Lock()
	c.snapState = s
	c.snapMu.Unlock()
	c.metrics.SetState(s.String(), stateNames())
}

func (c *Camcorder) setElapsed(d time.Duration) {
	c.snapMu.Lock()
	c.snapElapsed = d
	c.snapMu.Unlock()
	c.metrics.SetRecordingElapsed(d)
}

func (c *Camcorder) emit(e Event) {
	c.metrics.IncEvent(e.Name())
	c.outbox.post(e)
}

func (c *Camcorder) fail(err *Error) {
	logrus.WithFields(logrus.Fields{
		"function": "Camcorder.fail",
		"code":     int(err.Code),
		"name":     err.Code.String(),
		"error":    err.Error(),
	}).Error("Camcorder operation failed")
	c.metrics.IncFailure(err.Code.String())
	c.emit(FailedEvent{Err: err})
}

// sink is the device.Handler the camcorder starts its device with. It only
// queues work, so it never blocks the device's delivery goroutine.
type sink struct{ c *Camcorder }

func (s sink) HandleSampleBuffer(buf media.SampleBuffer) {
	if s.c.queue.pushSample(buf) {
		return
	}
	s.c.metrics.IncSampleDropped(buf.Kind.String(), "backlog")
	logrus.WithFields(logrus.Fields{
		"function": "sink.HandleSampleBuffer",
		"kind":     buf.Kind.String(),
		"pts":      buf.PTS,
	}).Debug("Dropping sample buffer, work queue backlog full")
}

func (s sink) HandleConfigurationChange(change device.Change) {
	s.c.queue.push(changeJob{change: change})
}
