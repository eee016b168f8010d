package camcorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutboxNeverBlocksPoster(t *testing.T) {
	o := newOutbox(0)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			o.post(RecordingElapsedTimeEvent{Elapsed: time.Duration(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("post blocked without a reader")
	}

	o.close()
	var n int
	for e := range o.out {
		assert.Equal(t, time.Duration(n), e.(RecordingElapsedTimeEvent).Elapsed)
		n++
	}
	assert.Equal(t, 1000, n)
}

func TestOutboxDropsAfterClose(t *testing.T) {
	o := newOutbox(4)
	o.post(TurnedOnEvent{})
	o.close()
	o.post(TurnedOffEvent{})

	var names []string
	for e := range o.out {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"turned_on"}, names)
}
