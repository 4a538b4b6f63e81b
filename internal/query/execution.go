// Package query implements QueryExecution (spec §4.10): the server-side
// state of one QUERY{name, params} streamed lookup, pumped the same way
// Subscription pumps a channel log, but over a docs.DocStream and with no
// matcher step (the stream itself is already filtered).
package query

import (
	"sync"
	"time"

	"github.com/mewbase/mewbase/internal/flowcontrol"
	"github.com/mewbase/mewbase/internal/storage/docs"
)

const pollInterval = 50 * time.Millisecond

// Result is one document pulled off the stream, ready to be sent as a
// QUERYRESULT frame.
type Result struct {
	DocID string
	Doc   []byte
	Last  bool
}

// DeliverFunc pushes one QUERYRESULT to the owning connection.
type DeliverFunc func(queryID int32, res Result) error

// Execution is one live QUERY{name, params} registration.
type Execution struct {
	ID int32

	stream  *docs.DocStream
	credit  *flowcontrol.Credit
	deliver DeliverFunc
	fatalFn func(error)

	mu     sync.Mutex
	closed bool
	stopCh chan struct{}
	wakeCh chan struct{}
	doneCh chan struct{}
}

// New creates and starts a query execution's delivery pump.
func New(id int32, stream *docs.DocStream, initialCredit int64, deliver DeliverFunc, onFatal func(error)) *Execution {
	e := &Execution{
		ID:      id,
		stream:  stream,
		credit:  flowcontrol.NewCredit(initialCredit),
		deliver: deliver,
		fatalFn: onFatal,
		stopCh:  make(chan struct{}),
		wakeCh:  make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
	}
	go e.pump()
	return e
}

func (e *Execution) pump() {
	defer close(e.doneCh)
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		docID, doc, err := e.stream.Next()
		if err == docs.ErrStreamDone {
			span := startResultSpan(e.ID, "")
			derr := e.deliver(e.ID, Result{Last: true})
			endSpan(span, derr)
			if derr != nil && e.fatalFn != nil {
				e.fatalFn(derr)
			}
			return
		}
		if err != nil {
			if e.fatalFn != nil {
				e.fatalFn(err)
			}
			return
		}

		if !e.awaitCredit(int64(len(doc))) {
			return
		}

		span := startResultSpan(e.ID, docID)
		err = e.deliver(e.ID, Result{DocID: docID, Doc: doc})
		endSpan(span, err)
		if err != nil {
			if e.fatalFn != nil {
				e.fatalFn(err)
			}
			return
		}
	}
}

func (e *Execution) awaitCredit(size int64) bool {
	for !e.credit.TryConsume(size) {
		select {
		case <-e.stopCh:
			return false
		case <-e.wakeCh:
		case <-time.After(pollInterval):
		}
	}
	return true
}

// HandleAck forwards byte credit from a QUERYACK to the execution.
func (e *Execution) HandleAck(bytes int32) {
	e.credit.Replenish(int64(bytes))
	select {
	case e.wakeCh <- struct{}{}:
	default:
	}
}

// Close stops the pump without emitting a final last=true result if one
// hasn't been reached yet.
func (e *Execution) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	close(e.stopCh)
	<-e.doneCh
	return e.stream.Close()
}
