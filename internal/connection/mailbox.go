// Package connection implements the per-connection protocol state machine
// (spec §4.7): frame dispatch, the ordered-response serializer, and the
// single-goroutine mailbox that gives every connection one serial execution
// context (spec §5).
package connection

// Mailbox is a single-goroutine serial executor: every job submitted to it
// runs one at a time, in submission order, on the same goroutine. It is the
// connection's context-affinity boundary — state that only the mailbox
// goroutine touches (subscriptions, queries, write sequencing) needs no
// further locking.
//
// There is deliberately no "am I already on the mailbox goroutine"
// accessor: a flag toggled around Run's job loop only ever records that
// *some* job is executing, not that the calling goroutine is the one
// executing it, so it cannot be used to skip Submit from another
// goroutine without reintroducing exactly the race this type exists to
// avoid. Every caller, on-context or not, goes through Submit.
type Mailbox struct {
	jobs chan func()
	done chan struct{}
}

// NewMailbox creates a mailbox with a bounded backlog. Run must be started
// in its own goroutine before Submit is used.
func NewMailbox() *Mailbox {
	return &Mailbox{
		jobs: make(chan func(), 256),
		done: make(chan struct{}),
	}
}

// Run drains submitted jobs one at a time until Stop is called. It is meant
// to be the connection's one dedicated goroutine.
func (m *Mailbox) Run() {
	for {
		select {
		case <-m.done:
			return
		case f := <-m.jobs:
			f()
		}
	}
}

// Submit enqueues f to run on the mailbox goroutine. It does not block on
// the job's completion, only on there being room in the backlog, and is
// safe to call from the mailbox goroutine itself (the job simply runs
// after the one currently executing).
func (m *Mailbox) Submit(f func()) {
	select {
	case m.jobs <- f:
	case <-m.done:
	}
}

// Stop terminates Run's loop. Jobs still queued are dropped.
func (m *Mailbox) Stop() {
	close(m.done)
}
