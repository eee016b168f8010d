package camcorder

import (
	"sync"

	"github.com/opd-ai/camcorder/media"
)

// workQueue is the FIFO drained by the work loop. Pushing never blocks.
// Commands are always accepted until the queue is sealed; sample buffers
// are refused once maxSamples of them are waiting.
type workQueue struct {
	mu         sync.Mutex
	items      []any
	samples    int
	maxSamples int
	sealed     bool
	signal     chan struct{}
}

func newWorkQueue(maxSamples int) *workQueue {
	return &workQueue{
		maxSamples: maxSamples,
		signal:     make(chan struct{}, 1),
	}
}

// push appends a job. It reports false once the queue is sealed.
func (q *workQueue) push(job any) bool {
	q.mu.Lock()
	if q.sealed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, job)
	q.mu.Unlock()
	q.wake()
	return true
}

// pushSample appends a sample job unless the backlog is full.
func (q *workQueue) pushSample(buf media.SampleBuffer) bool {
	q.mu.Lock()
	if q.sealed || q.samples >= q.maxSamples {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, sampleJob{buf: buf})
	q.samples++
	q.mu.Unlock()
	q.wake()
	return true
}

// seal refuses further pushes. Jobs already queued are still delivered.
func (q *workQueue) seal() {
	q.mu.Lock()
	q.sealed = true
	q.mu.Unlock()
	q.wake()
}

func (q *workQueue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// pop blocks until a job is available. It returns false when the queue is
// sealed and empty.
func (q *workQueue) pop() (any, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			job := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			if _, ok := job.(sampleJob); ok {
				q.samples--
			}
			q.mu.Unlock()
			return job, true
		}
		sealed := q.sealed
		q.mu.Unlock()
		if sealed {
			return nil, false
		}
		<-q.signal
	}
}

// len returns the number of queued jobs.
func (q *workQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
