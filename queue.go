package loraduplex

import (
	"sync"

	"github.com/michcald/loraduplex/aprs"
)

// Inbound receives decoded messages from the radio.
type Inbound interface {
	Push(m *aprs.Message)
}

// Outbound supplies messages waiting to be transmitted.
type Outbound interface {
	Empty() bool
	Pop() (*aprs.Message, bool)
}

// Display shows a short summary of received traffic. Implementations must not block.
type Display interface {
	ShowFrame(title, text string)
}

// MessageQueue is an unbounded FIFO safe for concurrent producers and consumers.
// It satisfies both Inbound and Outbound.
type MessageQueue struct {
	mu    sync.Mutex
	items []*aprs.Message
}

// Push appends m.
// This method is concurrent safe.
func (q *MessageQueue) Push(m *aprs.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, m)
}

// Pop removes and returns the oldest message.
// This method is concurrent safe.
func (q *MessageQueue) Pop() (*aprs.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	m := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return m, true
}

// Empty reports whether the queue has no messages.
// This method is concurrent safe.
func (q *MessageQueue) Empty() bool {
	return q.Len() == 0
}

// Len returns the number of queued messages.
// This method is concurrent safe.
func (q *MessageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type nopDisplay struct{}

func (nopDisplay) ShowFrame(string, string) {}
