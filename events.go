package camcorder

import (
	"context"
	"time"

	"github.com/opd-ai/camcorder/device"
	"github.com/opd-ai/camcorder/movie"
)

// Event is one observer notification. The concrete types are the *Event
// structs of this package.
type Event interface {
	// Name returns a short stable identifier of the event kind.
	Name() string
	event()
}

// TurnedOnEvent reports that the capture session is running.
type TurnedOnEvent struct {
	Config device.Config
}

// TurnedOffEvent reports that the capture session was released.
type TurnedOffEvent struct{}

// StartedRecordingEvent reports that a recording file was opened.
type StartedRecordingEvent struct {
	Path string
	// At is the wall-clock time the file was opened.
	At time.Time
}

// FinishedRecordingEvent reports a sealed recording.
type FinishedRecordingEvent struct {
	Path   string
	Result movie.Result
	// At is the wall-clock time the file was sealed.
	At time.Time
}

// RecordingElapsedTimeEvent is posted periodically while recording.
type RecordingElapsedTimeEvent struct {
	Elapsed time.Duration
}

// DeviceConfigurationChangedEvent relays a hardware-initiated change.
type DeviceConfigurationChangedEvent struct {
	Change device.Change
}

// FailedEvent reports a failure. Each failure is posted exactly once.
type FailedEvent struct {
	Err *Error
}

func (TurnedOnEvent) Name() string                   { return "turned_on" }
func (TurnedOffEvent) Name() string                  { return "turned_off" }
func (StartedRecordingEvent) Name() string           { return "started_recording" }
func (FinishedRecordingEvent) Name() string          { return "finished_recording" }
func (RecordingElapsedTimeEvent) Name() string       { return "recording_elapsed_time" }
func (DeviceConfigurationChangedEvent) Name() string { return "device_configuration_changed" }
func (FailedEvent) Name() string                     { return "failed" }

func (TurnedOnEvent) event()                   {}
func (TurnedOffEvent) event()                  {}
func (StartedRecordingEvent) event()           {}
func (FinishedRecordingEvent) event()          {}
func (RecordingElapsedTimeEvent) event()       {}
func (DeviceConfigurationChangedEvent) event() {}
func (FailedEvent) event()                     {}

// Delegate receives events as method calls.
type Delegate interface {
	TurnedOn(cfg device.Config)
	TurnedOff()
	StartedRecording(path string)
	FinishedRecording(path string, result movie.Result)
	RecordingElapsedTime(elapsed time.Duration)
	DeviceConfigurationChanged(change device.Change)
	Failed(err *Error)
}

// NopDelegate implements Delegate with empty methods. Embed it to handle
// only some events.
type NopDelegate struct{}

func (NopDelegate) TurnedOn(device.Config)                   {}
func (NopDelegate) TurnedOff()                               {}
func (NopDelegate) StartedRecording(string)                  {}
func (NopDelegate) FinishedRecording(string, movie.Result)   {}
func (NopDelegate) RecordingElapsedTime(time.Duration)       {}
func (NopDelegate) DeviceConfigurationChanged(device.Change) {}
func (NopDelegate) Failed(*Error)                            {}

// Dispatch calls the Delegate method matching e.
func Dispatch(e Event, d Delegate) {
	switch ev := e.(type) {
	case TurnedOnEvent:
		d.TurnedOn(ev.Config)
	case TurnedOffEvent:
		d.TurnedOff()
	case StartedRecordingEvent:
		d.StartedRecording(ev.Path)
	case FinishedRecordingEvent:
		d.FinishedRecording(ev.Path, ev.Result)
	case RecordingElapsedTimeEvent:
		d.RecordingElapsedTime(ev.Elapsed)
	case DeviceConfigurationChangedEvent:
		d.DeviceConfigurationChanged(ev.Change)
	case FailedEvent:
		d.Failed(ev.Err)
	}
}

// Notify dispatches events to d on the calling goroutine until the channel
// is closed or ctx is done.
//
//	go camcorder.Notify(ctx, cam.Events(), myDelegate)
func Notify(ctx context.Context, events <-chan Event, d Delegate) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			Dispatch(e, d)
		}
	}
}
