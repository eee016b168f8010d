package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncCommand("turn_on")
		m.IncRejection("turn_off", "NotTurnedOn")
		m.IncFailure("FinalizationFailed")
		m.IncSampleWritten("video")
		m.IncSampleDropped("audio", "backlog")
		m.IncEvent("turned_on")
		m.ObserveRecording(time.Second, 10)
		m.SetState("on", []string{"off", "on"})
		m.SetQueueDepth(3)
		m.SetRecordingElapsed(time.Second)
	})
}

func TestCounters(t *testing.T) {
	m := New()

	m.IncCommand("turn_on")
	m.IncCommand("turn_on")
	m.IncRejection("stop_recording", "NotRecording")
	m.IncFailure("NotRecording")
	m.IncSampleWritten("video")
	m.IncSampleDropped("audio", "not_recording")
	m.ObserveRecording(2*time.Second, 4096)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("turn_on")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejectionsTotal.WithLabelValues("stop_recording", "NotRecording")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failuresTotal.WithLabelValues("NotRecording")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.samplesTotal.WithLabelValues("video")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.samplesDropped.WithLabelValues("audio", "not_recording")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordingsTotal))
	assert.Equal(t, 4096.0, testutil.ToFloat64(m.recordingBytes))
	assert.Equal(t, 1, testutil.CollectAndCount(m.recordingDuration))
}

func TestSetStateIsOneHot(t *testing.T) {
	m := New()
	all := []string{"off", "on", "recording"}

	m.SetState("on", all)
	m.SetState("recording", all)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("off")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("on")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("recording")))
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	called := false
	h := m.Handler(func() {
		called = true
		m.SetQueueDepth(7)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
	assert.True(t, strings.Contains(rec.Body.String(), "camcorder_queue_depth 7"))
}

func TestRequestMiddleware(t *testing.T) {
	m := New()
	hm := NewHTTPMetrics(m)
	mw := RequestMiddleware(hm)

	ok := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	bad := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	bad.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	bad.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(hm.requestsTotal.WithLabelValues(http.MethodGet, "2xx")))
	assert.Equal(t, 2.0, testutil.ToFloat64(hm.requestsTotal.WithLabelValues(http.MethodPost, "4xx")))
}
