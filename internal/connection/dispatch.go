package connection

import (
	"time"

	"github.com/mewbase/mewbase/internal/query"
	storagelog "github.com/mewbase/mewbase/internal/storage/log"
	"github.com/mewbase/mewbase/internal/subscription"
	"github.com/mewbase/mewbase/internal/wire"
)

// recordKind tags the frames persisted as channel log records. It is never
// interpreted on the read path — eventContext-style decoding only looks at
// the fields — but every encoded frame needs a kind.
const recordKind = wire.Kind("RECORD")

// handleFrame dispatches one decoded frame. It always runs on the mailbox
// goroutine (Serve only ever reaches it via mailbox.Submit).
func (c *Connection) handleFrame(f *wire.Frame) {
	start := time.Now()
	status := "ok"
	defer func() {
		if c.deps.Metrics != nil {
			c.deps.Metrics.RecordFrame(string(f.Kind), status, time.Since(start))
		}
	}()

	c.mu.Lock()
	authorised := c.authorised
	c.mu.Unlock()

	if !authorised && f.Kind != wire.KindConnect {
		status = "fatal"
		c.fail(fatalf("frame %s received before CONNECT", f.Kind))
		return
	}

	var err error
	switch f.Kind {
	case wire.KindConnect:
		err = c.handleConnect(f)
	case wire.KindPublish:
		err = c.handlePublish(f)
	case wire.KindSubscribe:
		err = c.handleSubscribe(f)
	case wire.KindUnsubscribe:
		err = c.handleUnsubscribe(f)
	case wire.KindAckEv:
		err = c.handleAckEv(f)
	case wire.KindQuery:
		err = c.handleQuery(f)
	case wire.KindQueryAck:
		err = c.handleQueryAck(f)
	case wire.KindPing:
		c.sendResponse(true, "")
	case wire.KindStartTx, wire.KindCommitTx, wire.KindAbortTx:
		c.sendResponse(true, "")
	default:
		err = fatalf("unknown frame kind %q", f.Kind)
	}

	if err != nil {
		status = "fatal"
		c.fail(err)
	}
}

func (c *Connection) handleConnect(f *wire.Frame) error {
	c.mu.Lock()
	c.authorised = true
	c.mu.Unlock()
	c.sendResponse(true, "")
	return nil
}

func (c *Connection) handlePublish(f *wire.Frame) error {
	channel, ok := f.String("channel")
	if !ok || channel == "" {
		return fatalf("PUBLISH missing channel")
	}
	event, ok := f.Nested("event")
	if !ok {
		return fatalf("PUBLISH missing event")
	}

	order := c.nextWriteSeq()
	span := startPublishSpan(channel)

	record := wire.New(recordKind).
		WithInt64("timestamp", time.Now().UnixMilli()).
		WithFrame("event", event)
	payload, err := wire.EncodeRecord(record)
	if err != nil {
		endSpan(span, err)
		return fatalf("PUBLISH: failed to encode record: %v", err)
	}

	resultCh := c.deps.Appender.Append(channel, payload)
	go func() {
		res := <-resultCh
		resp := wire.New(wire.KindResponse)
		if res.Err != nil {
			c.log.Warn().Err(res.Err).Str("channel", channel).Msg("append failed")
			resp = resp.WithBool("ok", false).WithString("errMsg", "failed to persist")
		} else {
			resp = resp.WithBool("ok", true)
		}
		finishPublishSpan(span, res.RecordNumber, res.Err)
		c.sendFrame(order, resp)
	}()
	return nil
}

func (c *Connection) handleSubscribe(f *wire.Frame) error {
	channel, ok := f.String("channel")
	if !ok || channel == "" {
		return fatalf("SUBSCRIBE missing channel")
	}

	subID, err := c.nextSubID()
	if err != nil {
		return err
	}

	cl, found, err := c.deps.Registry.Get(channel)
	if err != nil {
		return fatalf("SUBSCRIBE: %v", err)
	}
	if !found {
		// spec §7 redesign: unknown channel is a request-level failure,
		// not a protocol-fatal error.
		order := c.nextWriteSeq()
		resp := wire.New(wire.KindSubResponse).WithBool("ok", false).WithString("errMsg", "unknown channel")
		c.sendFrame(order, resp)
		return nil
	}

	startPos := int64(-1)
	if v, ok := f.Int64("startPos"); ok {
		startPos = v
	}
	matcher, _ := f.String("matcher")
	durableID, _ := f.String("durableID")

	desc := subscription.Descriptor{
		Channel:   channel,
		StartPos:  startPos,
		Matcher:   matcher,
		DurableID: durableID,
	}
	sub, err := subscription.New(subID, desc, cl, c.deps.DurableStore, c.deps.InitialCredit, c.deliverEvent, c.onSubscriptionFatal)
	if err != nil {
		order := c.nextWriteSeq()
		resp := wire.New(wire.KindSubResponse).WithBool("ok", false).WithString("errMsg", err.Error())
		c.sendFrame(order, resp)
		return nil
	}

	c.mu.Lock()
	if c.subscriptions == nil {
		c.mu.Unlock()
		return sub.Close()
	}
	c.subscriptions[subID] = sub
	c.mu.Unlock()

	if c.deps.SubMetrics != nil {
		c.deps.SubMetrics.SubscriptionOpened(channel)
	}

	order := c.nextWriteSeq()
	resp := wire.New(wire.KindSubResponse).WithBool("ok", true).WithInt32("subID", subID)
	c.sendFrame(order, resp)
	return nil
}

// handleUnsubscribe services both UNSUBSCRIBE and SUBCLOSE: the wire
// protocol shares one frame shape for both, distinguished by the
// "unsubscribe" flag — true discards the durable cursor (UNSUBSCRIBE),
// false leaves it for a later resume (SUBCLOSE).
func (c *Connection) handleUnsubscribe(f *wire.Frame) error {
	subID, ok := f.Int32("subID")
	if !ok {
		return fatalf("UNSUBSCRIBE missing subID")
	}
	discard, _ := f.Bool("unsubscribe")

	c.mu.Lock()
	sub, ok := c.subscriptions[subID]
	if ok {
		delete(c.subscriptions, subID)
	}
	c.mu.Unlock()
	if !ok {
		return fatalf("UNSUBSCRIBE: unknown subID %d", subID)
	}

	var err error
	if discard {
		err = sub.Unsubscribe()
	} else {
		err = sub.Close()
	}
	if c.deps.SubMetrics != nil {
		c.deps.SubMetrics.SubscriptionClosed(sub.Channel)
	}
	if err != nil {
		return fatalf("UNSUBSCRIBE: %v", err)
	}

	c.sendResponse(true, "")
	return nil
}

func (c *Connection) handleAckEv(f *wire.Frame) error {
	subID, ok := f.Int32("subID")
	if !ok {
		return fatalf("ACKEV missing subID")
	}
	bytes, _ := f.Int32("bytes")
	pos, _ := f.Int64("pos")

	c.mu.Lock()
	sub, ok := c.subscriptions[subID]
	c.mu.Unlock()
	if !ok {
		return fatalf("ACKEV: unknown subID %d", subID)
	}
	if err := sub.HandleAck(pos, bytes); err != nil {
		return fatalf("ACKEV: %v", err)
	}
	return nil
}

// handleQuery services QUERY, which carries either a (binder, docID)
// single-shot lookup or a (name, params) named-query stream registration
// (spec.md:144) — the two are distinguished the same way the original
// implementation does, by whether docID is present.
func (c *Connection) handleQuery(f *wire.Frame) error {
	queryID, ok := f.Int32("queryID")
	if !ok {
		return fatalf("QUERY missing queryID")
	}

	if docID, ok := f.String("docID"); ok && docID != "" {
		binder, ok := f.String("binder")
		if !ok || binder == "" {
			return fatalf("QUERY missing binder")
		}
		return c.handlePointQuery(queryID, binder, docID)
	}

	name, ok := f.String("name")
	if !ok || name == "" {
		return fatalf("QUERY missing name or binder/docID")
	}
	params := map[string]any{}
	if p, ok := f.Nested("params"); ok {
		for k, v := range p.Fields {
			params[k] = v
		}
	}

	span := startQuerySpan(queryID, "", name)
	stream, err := c.deps.DocsManager.OpenStream(name, params)
	if err != nil {
		endSpan(span, err)
		order := c.nextWriteSeq()
		resp := wire.New(wire.KindResponse).WithBool("ok", false).WithString("errMsg", err.Error())
		c.sendFrame(order, resp)
		return nil
	}
	endSpan(span, nil)

	ex := query.New(queryID, stream, c.deps.InitialCredit, c.deliverQueryResult, c.onQueryFatal)

	c.mu.Lock()
	if c.queries == nil {
		c.mu.Unlock()
		return ex.Close()
	}
	c.queries[queryID] = ex
	c.mu.Unlock()

	c.sendResponse(true, "")
	return nil
}

// handlePointQuery answers QUERY{binder, docID} directly with one
// QUERYRESULT carrying last:true — a single lookup, not a registered
// QueryExecution (spec.md:144).
func (c *Connection) handlePointQuery(queryID int32, binder, docID string) error {
	span := startQuerySpan(queryID, binder, "")
	doc, _, err := c.deps.DocsManager.Get(binder, docID)
	endSpan(span, err)
	if err != nil {
		return fatalf("QUERY: %v", err)
	}

	order := c.nextWriteSeq()
	resp := wire.New(wire.KindQueryResult).
		WithInt32("queryID", queryID).
		WithFrame("result", jsonToFrame(doc)).
		WithBool("last", true)
	c.sendFrame(order, resp)
	return nil
}

func (c *Connection) handleQueryAck(f *wire.Frame) error {
	queryID, ok := f.Int32("queryID")
	if !ok {
		return fatalf("QUERYACK missing queryID")
	}
	bytes, _ := f.Int32("bytes")

	c.mu.Lock()
	ex, ok := c.queries[queryID]
	c.mu.Unlock()
	if !ok {
		return fatalf("QUERYACK: unknown queryID %d", queryID)
	}
	ex.HandleAck(bytes)
	return nil
}

// deliverEvent is Subscription's DeliverFunc: it runs on the subscription's
// own pump goroutine and must hand off to the mailbox before touching the
// socket.
func (c *Connection) deliverEvent(subID int32, rec storagelog.Record) error {
	f := wire.New(wire.KindEvent).
		WithInt32("subID", subID).
		WithInt64("recordNumber", rec.RecordNumber).
		WithBytes("record", rec.Payload)
	c.pushUnordered(f)
	if c.deps.SubMetrics != nil {
		c.mu.Lock()
		sub, ok := c.subscriptions[subID]
		c.mu.Unlock()
		if ok {
			c.deps.SubMetrics.RecordDelivered(sub.Channel)
		}
	}
	return nil
}

func (c *Connection) onSubscriptionFatal(err error) {
	c.log.Warn().Err(err).Msg("subscription pump failed")
	c.fail(err)
}

// deliverQueryResult is Execution's DeliverFunc. Once the last=true result
// is pushed, the execution is removed from the query map and closed.
func (c *Connection) deliverQueryResult(queryID int32, res query.Result) error {
	f := wire.New(wire.KindQueryResult).
		WithInt32("queryID", queryID).
		WithFrame("result", jsonToFrame(res.Doc)).
		WithBool("last", res.Last)
	c.pushUnordered(f)
	if res.Last {
		c.mu.Lock()
		ex, ok := c.queries[queryID]
		if ok {
			delete(c.queries, queryID)
		}
		c.mu.Unlock()
		if ok {
			// Close waits for the pump that is calling us to return.
			go ex.Close()
		}
	}
	return nil
}

func (c *Connection) onQueryFatal(err error) {
	c.log.Warn().Err(err).Msg("query execution failed")
	c.fail(err)
}
