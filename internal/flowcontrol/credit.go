// Package flowcontrol implements the byte-credit accounting shared by
// Subscription and QueryExecution delivery loops: a subscriber declares how
// many bytes it can receive before its next acknowledgement, and the
// server must never push more unacknowledged bytes than that.
package flowcontrol

import "sync"

// Credit tracks outstanding byte allowance for one delivery stream. It is
// safe for concurrent use: Replenish is typically called from the
// connection's mailbox goroutine on ACKEV/QUERYACK, while TryConsume is called
// from the delivery loop feeding the same stream.
type Credit struct {
	mu        sync.Mutex
	available int64
}

// NewCredit creates a credit tracker starting with initial bytes available.
func NewCredit(initial int64) *Credit {
	return &Credit{available: initial}
}

// Replenish adds bytes to the available credit, used on ACKEV/QUERYACK.
func (c *Credit) Replenish(bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.available += bytes
}

// TryConsume attempts to spend size bytes of credit for one record's
// delivery. It succeeds only if size bytes are currently available; it
// never drives the balance negative.
func (c *Credit) TryConsume(size int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.available < size {
		return false
	}
	c.available -= size
	return true
}

// Available returns the current outstanding credit.
func (c *Credit) Available() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}
