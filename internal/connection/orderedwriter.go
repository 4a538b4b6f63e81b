package connection

import "container/heap"

// pendingWrite is one response waiting for its turn to reach the wire,
// because an earlier-issued PUBLISH's persistence hasn't completed yet.
type pendingWrite struct {
	order int64
	buf   []byte
}

var _ heap.Interface = (*pendingHeap)(nil)

// pendingHeap is a min-heap of pendingWrites ordered by issue sequence,
// the same container/heap.Interface shape as the teacher's job queue
// (internal/storage/queues.JobMinHeap), keyed by write order instead of
// visibility time.
type pendingHeap []pendingWrite

func (h pendingHeap) Len() int            { return len(h) }
func (h pendingHeap) Less(i, j int) bool  { return h[i].order < h[j].order }
func (h pendingHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pendingHeap) Push(x interface{}) { *h = append(*h, x.(pendingWrite)) }
func (h *pendingHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// OrderedWriter is the response serializer (spec §4.6): requests that
// trigger asynchronous work (PUBLISH's log append) are assigned an
// increasing order at issue time, but their completions can land in any
// order. OrderedWriter holds a completed response back in a min-heap until
// every response issued before it has gone out, so the client always sees
// responses in the order its requests were received.
type OrderedWriter struct {
	mailbox *Mailbox
	write   func([]byte) error
	onError func(error)

	expected int64
	pending  pendingHeap
}

// NewOrderedWriter creates a response serializer that flushes writes via
// write once submitted responses reach their turn, doing so on mailbox's
// execution context. onError is called, and draining stops, the first time
// write fails (the connection is assumed to be on its way down).
func NewOrderedWriter(mailbox *Mailbox, write func([]byte) error, onError func(error)) *OrderedWriter {
	return &OrderedWriter{mailbox: mailbox, write: write, onError: onError}
}

// Submit hands a response with its issue order to the writer. It always
// dispatches onto the mailbox, even when the caller is itself running on
// the mailbox goroutine (handle* methods calling sendResponse/sendFrame
// directly): there is no reliable way to tell "the calling goroutine is
// the mailbox's" from inside the mailbox package itself, and treating "a
// job happens to be executing somewhere" as equivalent to that lets a
// background goroutine (the PUBLISH append-completion callback) run
// submitOnContext concurrently with the real mailbox goroutine, racing on
// expected/pending unsynchronized. Routing everything through Submit keeps
// w.expected and w.pending touched by exactly one goroutine at a time.
func (w *OrderedWriter) Submit(order int64, buf []byte) {
	w.mailbox.Submit(func() { w.submitOnContext(order, buf) })
}

func (w *OrderedWriter) submitOnContext(order int64, buf []byte) {
	if order == w.expected {
		if !w.flush(buf) {
			return
		}
	} else {
		heap.Push(&w.pending, pendingWrite{order: order, buf: buf})
	}
	for len(w.pending) > 0 && w.pending[0].order == w.expected {
		item := heap.Pop(&w.pending).(pendingWrite)
		if !w.flush(item.buf) {
			return
		}
	}
}

// flush writes buf and advances the expected sequence, returning false (and
// reporting the failure) if the write itself failed.
func (w *OrderedWriter) flush(buf []byte) bool {
	if err := w.write(buf); err != nil {
		if w.onError != nil {
			w.onError(err)
		}
		return false
	}
	w.expected++
	return true
}
