package connection

import (
	"io"
	"math"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mewbase/mewbase/internal/logger"
	"github.com/mewbase/mewbase/internal/metrics"
	"github.com/mewbase/mewbase/internal/query"
	"github.com/mewbase/mewbase/internal/storage/docs"
	"github.com/mewbase/mewbase/internal/storage/durable"
	storagelog "github.com/mewbase/mewbase/internal/storage/log"
	"github.com/mewbase/mewbase/internal/subscription"
	"github.com/mewbase/mewbase/internal/wire"
)

// Deps are the server-wide collaborators every connection shares.
type Deps struct {
	Registry      *storagelog.Registry
	DocsManager   *docs.Manager
	DurableStore  *durable.Store
	Appender      Appender
	InitialCredit int64
	Metrics       *metrics.ServerMetrics
	SubMetrics    *metrics.SubscriptionMetrics
}

// Connection is one client's protocol state machine (spec §4.7): frame
// dispatch, response ordering, and the subscriptions/queries it owns, all
// confined to a single mailbox goroutine (spec §5's context affinity).
type Connection struct {
	id   string
	conn net.Conn
	deps Deps
	log  zerolog.Logger

	mailbox *Mailbox
	ordered *OrderedWriter
	parser  wire.Parser

	// Touched only on the mailbox goroutine; no lock needed there. A mutex
	// still guards them because Close can run concurrently from the read
	// loop's error path.
	mu            sync.Mutex
	authorised    bool
	subSeq        int32
	writeSeq      int64
	subscriptions map[int32]*subscription.Subscription
	queries       map[int32]*query.Execution

	closeOnce sync.Once
	closed    chan struct{}
	onClose   func(*Connection)
}

// New wraps an accepted connection. Call Serve to run it.
func New(id string, conn net.Conn, deps Deps, onClose func(*Connection)) *Connection {
	c := &Connection{
		id:            id,
		conn:          conn,
		deps:          deps,
		log:           logger.WithComponent("connection").With().Str("conn_id", id).Logger(),
		subscriptions: make(map[int32]*subscription.Subscription),
		queries:       make(map[int32]*query.Execution),
		closed:        make(chan struct{}),
		onClose:       onClose,
	}
	c.mailbox = NewMailbox()
	c.ordered = NewOrderedWriter(c.mailbox, c.writeBytes, func(err error) {
		c.log.Warn().Err(err).Msg("write failed, closing connection")
		c.Close()
	})
	return c
}

// ID returns the connection's server-assigned identifier.
func (c *Connection) ID() string { return c.id }

// Serve runs the connection until it closes: one goroutine drains the
// mailbox, the calling goroutine reads frames off the socket and dispatches
// them onto it. Serve blocks until the connection is closed.
func (c *Connection) Serve() {
	go c.mailbox.Run()
	defer c.Close()

	if c.deps.Metrics != nil {
		c.deps.Metrics.ConnectionOpened()
	}

	buf := make([]byte, 64*1024)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.parser.Feed(buf[:n])
			for {
				f, ok, perr := c.parser.Next()
				if perr != nil {
					c.log.Warn().Err(perr).Msg("frame decode error")
					return
				}
				if !ok {
					break
				}
				frame := f
				c.mailbox.Submit(func() { c.handleFrame(frame) })
			}
		}
		if err != nil {
			if err != io.EOF {
				c.log.Debug().Err(err).Msg("connection read error")
			}
			return
		}
	}
}

// writeBytes writes an already-encoded frame to the socket. It is only
// ever called from the mailbox goroutine (directly, or via OrderedWriter
// re-entering that context), so no further locking is needed around the
// conn.Write itself.
func (c *Connection) writeBytes(buf []byte) error {
	_, err := c.conn.Write(buf)
	return err
}

// nextWriteSeq assigns the next response ordinal, used both for responses
// that go through OrderedWriter and to keep write_seq monotonic across the
// whole connection lifetime (spec §4.6).
func (c *Connection) nextWriteSeq() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.writeSeq
	c.writeSeq++
	return seq
}

func (c *Connection) nextSubID() (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subSeq == math.MaxInt32 {
		return 0, fatalf("int wrapped!")
	}
	id := c.subSeq
	c.subSeq++
	return id, nil
}

// sendResponse encodes and ordered-submits a RESPONSE frame for the
// request currently being handled. Call from the mailbox context (every
// handle* method is).
func (c *Connection) sendResponse(ok bool, errMsg string) {
	order := c.nextWriteSeq()
	resp := wire.New(wire.KindResponse).WithBool("ok", ok)
	if errMsg != "" {
		resp = resp.WithString("errMsg", errMsg)
	}
	buf, err := wire.Encode(resp)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to encode response")
		return
	}
	c.ordered.Submit(order, buf)
}

func (c *Connection) sendFrame(order int64, f *wire.Frame) {
	buf, err := wire.Encode(f)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to encode frame")
		return
	}
	c.ordered.Submit(order, buf)
}

// pushUnordered writes f directly, bypassing response ordering. Used for
// EVENT/QUERYRESULT pushes, which are not responses to a specific request
// and so carry no ordinal to serialize against.
func (c *Connection) pushUnordered(f *wire.Frame) {
	buf, err := wire.Encode(f)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to encode push frame")
		return
	}
	c.mailbox.Submit(func() {
		if err := c.writeBytes(buf); err != nil {
			c.log.Warn().Err(err).Msg("push write failed, closing connection")
			c.Close()
		}
	})
}

// fail closes the connection for a protocol-fatal reason (spec §7
// redesign: this is an immediate close, not a logged-and-ignored frame).
func (c *Connection) fail(err error) {
	c.log.Warn().Err(err).Msg("protocol-fatal, closing connection")
	c.Close()
}

// Close tears down the connection and every subscription and query it
// owns (spec §7 redesign: subscriptions are cleaned up on close exactly
// like queries, not left running against a dead socket).
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)

		c.mu.Lock()
		subs := c.subscriptions
		c.subscriptions = nil
		qs := c.queries
		c.queries = nil
		c.mu.Unlock()

		for id, sub := range subs {
			if err := sub.Close(); err != nil {
				c.log.Warn().Err(err).Int32("subID", id).Msg("error closing subscription")
			}
			if c.deps.SubMetrics != nil {
				c.deps.SubMetrics.SubscriptionClosed(sub.Channel)
			}
		}
		for id, ex := range qs {
			if err := ex.Close(); err != nil {
				c.log.Warn().Err(err).Int32("queryID", id).Msg("error closing query execution")
			}
		}

		_ = c.conn.Close()
		c.mailbox.Stop()

		if c.deps.Metrics != nil {
			c.deps.Metrics.ConnectionClosed()
		}
		if c.onClose != nil {
			c.onClose(c)
		}
	})
	return nil
}
