package session

import (
	"crypto/sha256"
	"sync"
)

// Mailbox is a channel of capacity one where the latest value wins: posting
// replaces any value the receiver has not taken yet.
type Mailbox[T any] struct {
	mu sync.Mutex
	ch chan T
}

func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{ch: make(chan T, 1)}
}

// Post stores v, discarding an unconsumed previous value. It never blocks
// on the receiver.
func (m *Mailbox[T]) Post(v T) (replaced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.ch:
		replaced = true
	default:
	}
	m.ch <- v
	return replaced
}

// C is the receive side of the mailbox.
func (m *Mailbox[T]) C() <-chan T { return m.ch }

// QueryChannel hands queries to the evaluation worker. Consecutive posts of
// the same expression text are dropped.
type QueryChannel struct {
	box *Mailbox[Query]

	mu      sync.Mutex
	last    [sha256.Size]byte
	hasLast bool
}

func NewQueryChannel() *QueryChannel {
	return &QueryChannel{box: NewMailbox[Query]()}
}

// Post offers q to the worker. It returns false, without posting, when q's
// expression hashes the same as the previously posted one. replaced reports
// whether a query the worker never saw was overwritten.
func (c *QueryChannel) Post(q Query) (posted, replaced bool) {
	sum := sha256.Sum256([]byte(q.Expression))
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasLast && sum == c.last {
		return false, false
	}
	c.last, c.hasLast = sum, true
	return true, c.box.Post(q)
}

// Reset forgets the last posted expression, so posting it again is accepted.
func (c *QueryChannel) Reset() {
	c.mu.Lock()
	c.hasLast = false
	c.mu.Unlock()
}

// C is where the worker receives queries.
func (c *QueryChannel) C() <-chan Query { return c.box.C() }
