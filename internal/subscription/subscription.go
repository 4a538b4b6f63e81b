// Package subscription implements the subscription handle (spec §4.5): a
// credit-gated, matcher-filtered pump reading forward from a channel log
// and pushing matching records to the connection that owns it.
package subscription

import (
	"errors"
	"sync"
	"time"

	"github.com/mewbase/mewbase/internal/filter"
	"github.com/mewbase/mewbase/internal/flowcontrol"
	storagelog "github.com/mewbase/mewbase/internal/storage/log"
	"github.com/mewbase/mewbase/internal/storage/durable"
	"github.com/mewbase/mewbase/internal/wire"
)

// pollInterval bounds how long the delivery pump sleeps between polling a
// channel log or the credit tracker for new progress. It is not a
// precision timer — ACKEV wakes the pump early via wakeCh; new appends are
// picked up on the next poll.
const pollInterval = 50 * time.Millisecond

// Descriptor is the SUBSCRIBE request translated into subscription
// parameters (spec §4.5).
type Descriptor struct {
	Channel        string
	StartPos       int64 // -1 means "from next unseen record"
	StartTimestamp *int64
	Matcher        string
	DurableID      string
}

// DeliverFunc pushes one matched record to the owning connection. It is
// expected to itself be dispatched onto the connection's mailbox (spec
// §5); Subscription calls it from its own pump goroutine and treats a
// non-nil error as fatal to the subscription (the connection has gone
// away).
type DeliverFunc func(subID int32, rec storagelog.Record) error

// Subscription is one live SUBSCRIBE registration.
type Subscription struct {
	ID        int32
	Channel   string
	DurableID string

	log          *storagelog.ChannelLog
	matcher      filter.Expression
	credit       *flowcontrol.Credit
	durableStore *durable.Store
	deliver      DeliverFunc

	mu      sync.Mutex
	next    int64
	closed  bool
	stopCh  chan struct{}
	wakeCh  chan struct{}
	doneCh  chan struct{}
	fatalFn func(err error)
}

// New creates and starts a subscription's delivery pump. initialCredit is
// the byte allowance the subscription starts with before any ACKEV.
func New(id int32, desc Descriptor, cl *storagelog.ChannelLog, durableStore *durable.Store, initialCredit int64, deliver DeliverFunc, onFatal func(error)) (*Subscription, error) {
	var matcher filter.Expression
	if desc.Matcher != "" {
		m, err := filter.Parse(desc.Matcher)
		if err != nil {
			return nil, err
		}
		matcher = m
	}

	startPos := desc.StartPos
	if desc.DurableID != "" {
		if cursor, ok := durableStore.Get(desc.Channel, desc.DurableID); ok {
			startPos = cursor.RecordNumber + 1
		}
	}

	var next int64
	if startPos < 0 {
		next = cl.LastRecordNumber() + 1
	} else {
		next = startPos
	}

	s := &Subscription{
		ID:           id,
		Channel:      desc.Channel,
		DurableID:    desc.DurableID,
		log:          cl,
		matcher:      matcher,
		credit:       flowcontrol.NewCredit(initialCredit),
		durableStore: durableStore,
		deliver:      deliver,
		next:         next,
		stopCh:       make(chan struct{}),
		wakeCh:       make(chan struct{}, 1),
		doneCh:       make(chan struct{}),
		fatalFn:      onFatal,
	}
	go s.pump()
	return s, nil
}

func (s *Subscription) pump() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		rec, err := s.log.ReadAt(s.next)
		if errors.Is(err, storagelog.ErrNoRecord) {
			s.waitForProgress()
			continue
		}
		if err != nil {
			if s.fatalFn != nil {
				s.fatalFn(err)
			}
			return
		}
		s.next++

		if s.matcher != nil {
			ctx, ok := eventContext(rec.Payload)
			if !ok {
				continue
			}
			matched, evalErr := s.matcher.Evaluate(ctx)
			if evalErr != nil {
				continue
			}
			if b, ok := matched.(bool); !ok || !b {
				continue
			}
		}

		if !s.awaitCredit(int64(len(rec.Payload))) {
			return
		}

		span := startDeliverySpan(s.Channel, s.ID, rec.RecordNumber)
		err = s.deliver(s.ID, rec)
		endSpan(span, err)
		if err != nil {
			if s.fatalFn != nil {
				s.fatalFn(err)
			}
			return
		}
	}
}

// awaitCredit blocks the pump until enough credit is available to deliver
// size bytes, returning false if the subscription was stopped first.
func (s *Subscription) awaitCredit(size int64) bool {
	for !s.credit.TryConsume(size) {
		select {
		case <-s.stopCh:
			return false
		case <-s.wakeCh:
		case <-time.After(pollInterval):
		}
	}
	return true
}

func (s *Subscription) waitForProgress() {
	select {
	case <-s.stopCh:
	case <-s.wakeCh:
	case <-time.After(pollInterval):
	}
}

// eventContext decodes a persisted record payload — a wire frame shaped
// {timestamp, event} (spec §6) — into a matcher evaluation context built
// from the nested event frame's fields.
func eventContext(payload []byte) (filter.Context, bool) {
	f, err := wire.Decode(payload)
	if err != nil {
		return nil, false
	}
	ctx := filter.Context{}
	if ts, ok := f.Int64("timestamp"); ok {
		ctx["timestamp"] = ts
	}
	event, ok := f.Nested("event")
	if !ok {
		return ctx, true
	}
	for name, v := range event.Fields {
		ctx[name] = v
	}
	return ctx, true
}

// HandleAck replenishes credit by bytes and, for durable subscriptions,
// advances the persisted cursor to pos.
func (s *Subscription) HandleAck(pos int64, bytes int32) error {
	s.credit.Replenish(int64(bytes))
	if s.DurableID != "" {
		if err := s.durableStore.Advance(s.Channel, s.DurableID, pos); err != nil {
			return err
		}
	}
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
	return nil
}

// Close stops delivery. A durable subscription's cursor is left on disk
// at its last-acked position so a later SUBSCRIBE with the same durable
// id resumes from there.
func (s *Subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh
	return nil
}

// Unsubscribe closes the subscription and, if durable, discards its
// persisted cursor.
func (s *Subscription) Unsubscribe() error {
	if err := s.Close(); err != nil {
		return err
	}
	if s.DurableID != "" {
		return s.durableStore.Delete(s.Channel, s.DurableID)
	}
	return nil
}
