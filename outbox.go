package camcorder

import "sync"

// outbox decouples event delivery from the work loop. post never blocks; a
// dedicated goroutine forwards events to out in order.
type outbox struct {
	mu     sync.Mutex
	items  []Event
	closed bool
	signal chan struct{}
	out    chan Event
}

func newOutbox(buffer int) *outbox {
	o := &outbox{
		signal: make(chan struct{}, 1),
		out:    make(chan Event, buffer),
	}
	go o.run()
	return o
}

func (o *outbox) post(e Event) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.items = append(o.items, e)
	o.mu.Unlock()
	o.wake()
}

// close closes out once every posted event has been delivered.
func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.wake()
}

func (o *outbox) wake() {
	select {
	case o.signal <- struct{}{}:
	default:
	}
}

func (o *outbox) run() {
	for {
		o.mu.Lock()
		if len(o.items) == 0 {
			closed := o.closed
			o.mu.Unlock()
			if closed {
				close(o.out)
				return
			}
			<-o.signal
			continue
		}
		e := o.items[0]
		o.items[0] = nil
		o.items = o.items[1:]
		o.mu.Unlock()

		o.out <- e
	}
}
