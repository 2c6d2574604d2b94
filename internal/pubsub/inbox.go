package pubsub

import (
	"context"
	"sync"
)

type delivery struct {
	ctx context.Context
	id  string
	msg Message
}

// inbox is an unbounded FIFO between a subscription's receive loop and its
// handler goroutine. Pushing never blocks, so a publisher waiting for the
// ack only waits for the hand-off.
type inbox struct {
	mu     sync.Mutex
	items  []delivery
	closed bool
	ready  chan struct{}
}

func newInbox() *inbox {
	return &inbox{ready: make(chan struct{}, 1)}
}

func (q *inbox) push(d delivery) {
	q.mu.Lock()
	q.items = append(q.items, d)
	q.mu.Unlock()
	q.signal()
}

// close lets drain return once the queued deliveries are handled.
func (q *inbox) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *inbox) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// drain calls fn for every delivery in push order until the inbox is closed
// and empty.
func (q *inbox) drain(fn func(delivery)) {
	for {
		q.mu.Lock()
		batch := q.items
		q.items = nil
		closed := q.closed
		q.mu.Unlock()

		for _, d := range batch {
			fn(d)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-q.ready
	}
}
