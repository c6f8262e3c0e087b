package server

import (
	"context"
	"sync"

	"github.com/dcrodman/boardhost/internal/wire"
)

// Delivery is one queued outbound message together with the routing the
// session decided when it enqueued it. AwaitReply is set when the
// recipient seat is expected to answer with exactly one action frame after
// the message is transmitted.
type Delivery struct {
	Msg        wire.Message
	AwaitReply bool
}

// Mailbox is the unbounded FIFO connecting the session to whichever
// connection handler currently holds a seat. The session is its only
// producer and the holding handler its only consumer, so consumption order
// is exactly enqueue order.
type Mailbox struct {
	mu    sync.Mutex
	queue []Delivery
	// ready is closed and replaced whenever the queue becomes non-empty.
	ready chan struct{}
}

func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{})}
}

// Put appends a delivery to the back of the queue.
func (m *Mailbox) Put(d Delivery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, d)
	m.signal()
}

// PutFront re-enqueues a delivery at the head of the queue. Used when a
// connection died after dequeuing but before the delivery was confirmed,
// so the seat's next connection resumes exactly where the last one
// left off.
func (m *Mailbox) PutFront(d Delivery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append([]Delivery{d}, m.queue...)
	m.signal()
}

// Get blocks until a delivery is available or the context is cancelled.
func (m *Mailbox) Get(ctx context.Context) (Delivery, error) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			d := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return d, nil
		}
		ready := m.ready
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return Delivery{}, ctx.Err()
		case <-ready:
		}
	}
}

// Len returns the number of pending deliveries.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// signal must be called with m.mu held.
func (m *Mailbox) signal() {
	close(m.ready)
	m.ready = make(chan struct{})
}
