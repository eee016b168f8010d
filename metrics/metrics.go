// Package metrics exposes Prometheus collectors for a camcorder.
//
// All recording methods are safe to call on a nil *Metrics, so the
// controller can run without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one camcorder.
type Metrics struct {
	registry *prometheus.Registry

	commandsTotal     *prometheus.CounterVec
	rejectionsTotal   *prometheus.CounterVec
	failuresTotal     *prometheus.CounterVec
	samplesTotal      *prometheus.CounterVec
	samplesDropped    *prometheus.CounterVec
	eventsTotal       *prometheus.CounterVec
	recordingsTotal   prometheus.Counter
	recordingDuration prometheus.Histogram
	recordingBytes    prometheus.Counter
	state             *prometheus.GaugeVec
	queueDepth        prometheus.Gauge
	recordingElapsed  prometheus.Gauge
}

// New creates and registers the camcorder collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camcorder_commands_total",
			Help: "Total number of commands accepted onto the work queue",
		}, []string{"command"}),
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camcorder_commands_rejected_total",
			Help: "Total number of commands rejected in the current state",
		}, []string{"command", "code"}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camcorder_failures_total",
			Help: "Total number of failures reported to the observer",
		}, []string{"code"}),
		samplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camcorder_samples_written_total",
			Help: "Total number of sample buffers appended to a recording",
		}, []string{"kind"}),
		samplesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camcorder_samples_dropped_total",
			Help: "Total number of sample buffers dropped before reaching a recording",
		}, []string{"kind", "reason"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camcorder_events_total",
			Help: "Total number of events posted to the observer",
		}, []string{"event"}),
		recordingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "camcorder_recordings_total",
			Help: "Total number of recordings sealed successfully",
		}),
		recordingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "camcorder_recording_duration_seconds",
			Help:    "Duration of sealed recordings",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 3600},
		}),
		recordingBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "camcorder_recording_bytes_total",
			Help: "Total size of sealed recordings in bytes",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "camcorder_state",
			Help: "Current session state, 1 for the active state",
		}, []string{"state"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camcorder_queue_depth",
			Help: "Number of jobs waiting on the work queue",
		}),
		recordingElapsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camcorder_recording_elapsed_seconds",
			Help: "Elapsed media time of the current recording",
		}),
	}

	registry.MustRegister(
		m.commandsTotal,
		m.rejectionsTotal,
		m.failuresTotal,
		m.samplesTotal,
		m.samplesDropped,
		m.eventsTotal,
		m.recordingsTotal,
		m.recordingDuration,
		m.recordingBytes,
		m.state,
		m.queueDepth,
		m.recordingElapsed,
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncCommand counts an accepted command.
func (m *Metrics) IncCommand(command string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command).Inc()
}

// IncRejection counts a command rejected with the given error code name.
func (m *Metrics) IncRejection(command, code string) {
	if m == nil {
		return
	}
	m.rejectionsTotal.WithLabelValues(command, code).Inc()
}

// IncFailure counts a failure event.
func (m *Metrics) IncFailure(code string) {
	if m == nil {
		return
	}
	m.failuresTotal.WithLabelValues(code).Inc()
}

// IncSampleWritten counts a sample buffer appended to the recording.
func (m *Metrics) IncSampleWritten(kind string) {
	if m == nil {
		return
	}
	m.samplesTotal.WithLabelValues(kind).Inc()
}

// IncSampleDropped counts a sample buffer that never reached a recording.
func (m *Metrics) IncSampleDropped(kind, reason string) {
	if m == nil {
		return
	}
	m.samplesDropped.WithLabelValues(kind, reason).Inc()
}

// IncEvent counts an observer event.
func (m *Metrics) IncEvent(event string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(event).Inc()
}

// ObserveRecording records a sealed recording.
func (m *Metrics) ObserveRecording(duration time.Duration, size int64) {
	if m == nil {
		return
	}
	m.recordingsTotal.Inc()
	m.recordingDuration.Observe(duration.Seconds())
	if size > 0 {
		m.recordingBytes.Add(float64(size))
	}
}

// SetState marks state as the active one among all known states.
func (m *Metrics) SetState(state string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(s).Set(v)
	}
}

// SetQueueDepth sets the work queue depth gauge.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// SetRecordingElapsed sets the elapsed time gauge.
func (m *Metrics) SetRecordingElapsed(d time.Duration) {
	if m == nil {
		return
	}
	m.recordingElapsed.Set(d.Seconds())
}

// Handler returns an http.Handler that serves the collectors.
// updateGauges is called before each scrape to refresh sampled gauges.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
