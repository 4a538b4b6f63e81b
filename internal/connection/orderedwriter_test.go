package connection

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOrderedWriter_FlushesOutOfOrderCompletionsInIssueOrder exercises the
// spec's S2 scenario: three writes submitted out of completion order must
// still reach the underlying writer in issue order.
func TestOrderedWriter_FlushesOutOfOrderCompletionsInIssueOrder(t *testing.T) {
	mailbox := NewMailbox()
	go mailbox.Run()
	defer mailbox.Stop()

	var mu sync.Mutex
	var written [][]byte
	w := NewOrderedWriter(mailbox, func(buf []byte) error {
		mu.Lock()
		written = append(written, buf)
		mu.Unlock()
		return nil
	}, nil)

	w.Submit(2, []byte("third"))
	w.Submit(0, []byte("first"))
	w.Submit(1, []byte("second"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(written) == 3
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]byte{[]byte("first"), []byte("second"), []byte("third")}, written)
}

// TestOrderedWriter_SubmitFromMailboxJobDoesNotDeadlock covers Submit being
// called from code already running on the mailbox goroutine (the
// synchronous handler path): it must re-enqueue rather than run inline, so
// it cannot deadlock against the job that called it, and the write still
// lands once that re-enqueued job gets its turn.
func TestOrderedWriter_SubmitFromMailboxJobDoesNotDeadlock(t *testing.T) {
	mailbox := NewMailbox()
	go mailbox.Run()
	defer mailbox.Stop()

	var mu sync.Mutex
	var written []byte
	w := NewOrderedWriter(mailbox, func(buf []byte) error {
		mu.Lock()
		written = buf
		mu.Unlock()
		return nil
	}, nil)

	done := make(chan struct{})
	mailbox.Submit(func() {
		w.Submit(0, []byte("inline"))
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submit from within a mailbox job deadlocked")
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return written != nil
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []byte("inline"), written)
}

// TestOrderedWriter_StopsDrainingOnWriteError confirms a failing write
// halts further flushes and reports through onError exactly once.
func TestOrderedWriter_StopsDrainingOnWriteError(t *testing.T) {
	mailbox := NewMailbox()
	go mailbox.Run()
	defer mailbox.Stop()

	var errCount int
	var mu sync.Mutex
	w := NewOrderedWriter(mailbox, func(buf []byte) error {
		return assert.AnError
	}, func(err error) {
		mu.Lock()
		errCount++
		mu.Unlock()
	})

	w.Submit(0, []byte("a"))
	w.Submit(1, []byte("b"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return errCount >= 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, errCount)
}
