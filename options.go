package camcorder

import (
	"time"

	"github.com/opd-ai/camcorder/metrics"
	"github.com/opd-ai/camcorder/movie"
)

// Options contains configuration options for creating a Camcorder.
type Options struct {
	// ElapsedTimeInterval is the period of RecordingElapsedTimeEvent while
	// recording.
	ElapsedTimeInterval time.Duration
	// AutoOffInterval is the idle time after which an armed auto-off timer
	// turns the camera off.
	AutoOffInterval time.Duration
	// MaxPendingSamples bounds how many sample buffers may wait on the work
	// queue. Further buffers are dropped until the loop catches up.
	MaxPendingSamples int
	// EventBuffer is the capacity of the Events channel.
	EventBuffer int
	// Movie configures every recording's writer.
	Movie movie.Options
	// PreviewMeter enables audio level metering on the preview handle.
	PreviewMeter bool
	// TimeProvider drives tickers and timers and stamps recording events.
	// Nil uses the system clock.
	TimeProvider TimeProvider
	// Metrics receives instrumentation. Nil disables it.
	Metrics *metrics.Metrics
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		ElapsedTimeInterval: 250 * time.Millisecond,
		AutoOffInterval:     60 * time.Second,
		MaxPendingSamples:   512,
		EventBuffer:         64,
		Movie:               movie.DefaultOptions(),
		PreviewMeter:        true,
	}
}

// normalized fills zero values with defaults.
func (o *Options) normalized() Options {
	def := NewOptions()
	if o == nil {
		return *def
	}
	out := *o
	if out.ElapsedTimeInterval <= 0 {
		out.ElapsedTimeInterval = def.ElapsedTimeInterval
	}
	if out.AutoOffInterval <= 0 {
		out.AutoOffInterval = def.AutoOffInterval
	}
	if out.MaxPendingSamples <= 0 {
		out.MaxPendingSamples = def.MaxPendingSamples
	}
	if out.EventBuffer < 0 {
		out.EventBuffer = 0
	}
	if out.Movie == (movie.Options{}) {
		out.Movie = def.Movie
	}
	out.TimeProvider = getTimeProvider(out.TimeProvider)
	return out
}
