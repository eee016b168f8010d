// Package camcorder implements a capture-and-record controller for a camera
// and microphone.
//
// A Camcorder manages the capture session of a device (camera selection,
// audio, focus) and multiplexes the timestamped video and audio sample
// buffers the device delivers into one sealed WebM file per recording. Every
// outcome, including every failure, is reported as an Event.
//
// # Getting Started
//
// Create a Camcorder for a device and consume its events:
//
//	dev := sim.New(sim.DefaultOptions())
//
//	cam, err := camcorder.New(dev, camcorder.NewOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cam.Close()
//
//	go camcorder.Notify(ctx, cam.Events(), myDelegate)
//
//	cam.TurnOn(device.PositionBack, true)
//	cam.StartRecording("/var/lib/recordings", 1280, 720, true, 0)
//	// ...
//	cam.StopRecording()
//
// Commands never block and never return errors. A rejected command (for
// example StopRecording while nothing is recording) produces a FailedEvent
// whose Err carries a stable code in the "Camcorder" domain.
//
// # Core Types
//
//   - [Camcorder]: the controller and its command surface
//   - [Options]: configuration for a new Camcorder
//   - [Event]: the observer notifications, one type per callback
//   - [Delegate]: callback-style consumption of events via [Notify]
//   - [Error]: coded failures matched with errors.Is
//   - [TimeProvider]: injectable clock for timers and event timestamps
//
// # State Machine
//
// The session moves between Off, On and Recording, passing through
// TurningOn, StartingRecording and StoppingRecording while a step runs.
// Compound requests are planned as explicit step lists: TurnOn while
// recording stops the recording, turns the session off and on again, and
// TurnOff while recording seals the file before releasing the device.
//
// # Recording
//
// The first video buffer after a recording starts fixes time zero. Audio
// that arrives before it is discarded, and buffers whose timestamps do not
// advance within their track are dropped. With a non-zero time interval the
// recording stops itself once that much media time has been written, through
// the same path as StopRecording.
//
// # Deterministic Testing
//
// Tickers and timers come from Options.TimeProvider:
//
//	opts := camcorder.NewOptions()
//	opts.TimeProvider = fakeTime
//	cam, _ := camcorder.New(dev, opts)
//
// This makes the elapsed-time ticker and the auto-off timer fire exactly
// when a test says so.
//
// # Thread Safety
//
// All commands and status methods are safe for concurrent use. Commands from
// one goroutine execute in the order they were issued. The device session
// and movie writer are only touched by the work loop, and events are
// delivered from a separate goroutine so a slow consumer never stalls
// recording.
//
// # Related Packages
//
//   - [github.com/opd-ai/camcorder/movie]: WebM writer and inspection
//   - [github.com/opd-ai/camcorder/device]: the hardware contract
//   - [github.com/opd-ai/camcorder/device/sim]: simulated device
//   - [github.com/opd-ai/camcorder/device/rtpdev]: RTP-fed device
//   - [github.com/opd-ai/camcorder/metrics]: Prometheus collectors
//   - [github.com/opd-ai/camcorder/config]: environment configuration
package camcorder
