package connection

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mewbase/mewbase/internal/storage/docs"
	"github.com/mewbase/mewbase/internal/storage/durable"
	storagelog "github.com/mewbase/mewbase/internal/storage/log"
	"github.com/mewbase/mewbase/internal/wire"
)

// testDeps builds a Deps sharing one channel registry, docs manager, and
// durable-cursor store, the way a real server shares them across every
// accepted connection.
func testDeps(t *testing.T, initialCredit int64) Deps {
	registry := storagelog.NewRegistry(t.TempDir(), 1<<20)
	store, err := durable.NewStore(t.TempDir())
	require.NoError(t, err)
	return Deps{
		Registry:      registry,
		DocsManager:   docs.NewManager(t.TempDir()),
		DurableStore:  store,
		Appender:      NewRegistryAppender(registry),
		InitialCredit: initialCredit,
	}
}

// testClient drives one side of a net.Pipe as a wire-protocol client.
type testClient struct {
	t      *testing.T
	conn   net.Conn
	parser wire.Parser
}

func newTestClient(t *testing.T, conn net.Conn) *testClient {
	return &testClient{t: t, conn: conn}
}

func (c *testClient) send(f *wire.Frame) {
	buf, err := wire.Encode(f)
	require.NoError(c.t, err)
	_, err = c.conn.Write(buf)
	require.NoError(c.t, err)
}

func (c *testClient) recv(timeout time.Duration) *wire.Frame {
	f, ok := c.tryRecv(timeout)
	if !ok {
		c.t.Fatalf("timed out waiting for a frame")
	}
	return f
}

// tryRecv waits up to timeout for one frame, returning ok=false on timeout
// rather than failing the test — used to assert that nothing arrives.
func (c *testClient) tryRecv(timeout time.Duration) (*wire.Frame, bool) {
	deadline := time.Now().Add(timeout)
	for {
		f, ok, err := c.parser.Next()
		require.NoError(c.t, err)
		if ok {
			return f, true
		}
		if time.Now().After(deadline) {
			return nil, false
		}
		require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
		buf := make([]byte, 4096)
		n, err := c.conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return nil, false
		}
		c.parser.Feed(buf[:n])
	}
}

// newConnectionPair wires a Connection to one end of a net.Pipe and hands
// the test the other end.
func newConnectionPair(deps Deps) (*Connection, net.Conn) {
	serverSide, clientSide := net.Pipe()
	c := New("test-conn", serverSide, deps, nil)
	return c, clientSide
}

// S1 — publish/subscribe round-trip: a subscriber that joins after two
// PUBLISHes with startPos:0 sees both events, in order, with timestamps.
func TestS1_PublishSubscribeRoundTrip(t *testing.T) {
	deps := testDeps(t, 1<<20)

	connA, pipeA := newConnectionPair(deps)
	go connA.Serve()
	clientA := newTestClient(t, pipeA)

	clientA.send(wire.New(wire.KindConnect))
	require.Equal(t, wire.KindResponse, clientA.recv(time.Second).Kind)

	clientA.send(wire.New(wire.KindPublish).
		WithString("channel", "orders").
		WithFrame("event", wire.New("EVT").WithInt32("id", 1)))
	resp1 := clientA.recv(time.Second)
	ok1, _ := resp1.Bool("ok")
	require.True(t, ok1)

	clientA.send(wire.New(wire.KindPublish).
		WithString("channel", "orders").
		WithFrame("event", wire.New("EVT").WithInt32("id", 2)))
	resp2 := clientA.recv(time.Second)
	ok2, _ := resp2.Bool("ok")
	require.True(t, ok2)

	connB, pipeB := newConnectionPair(deps)
	go connB.Serve()
	clientB := newTestClient(t, pipeB)

	clientB.send(wire.New(wire.KindConnect))
	require.Equal(t, wire.KindResponse, clientB.recv(time.Second).Kind)

	clientB.send(wire.New(wire.KindSubscribe).
		WithString("channel", "orders").
		WithInt64("startPos", 0))
	subResp := clientB.recv(time.Second)
	require.Equal(t, wire.KindSubResponse, subResp.Kind)
	ok, _ := subResp.Bool("ok")
	require.True(t, ok)

	ev1 := clientB.recv(time.Second)
	require.Equal(t, wire.KindEvent, ev1.Kind)
	rec1, _ := ev1.Int64("recordNumber")
	require.Equal(t, int64(0), rec1)
	payload1, _ := ev1.Bytes("record")
	f1, err := wire.Decode(payload1)
	require.NoError(t, err)
	_, hasTS := f1.Int64("timestamp")
	require.True(t, hasTS)
	event1, _ := f1.Nested("event")
	id1, _ := event1.Int32("id")
	require.Equal(t, int32(1), id1)

	ev2 := clientB.recv(time.Second)
	rec2, _ := ev2.Int64("recordNumber")
	require.Equal(t, int64(1), rec2)
	payload2, _ := ev2.Bytes("record")
	f2, err := wire.Decode(payload2)
	require.NoError(t, err)
	event2, _ := f2.Nested("event")
	id2, _ := event2.Int32("id")
	require.Equal(t, int32(2), id2)

	require.NoError(t, connA.Close())
	require.NoError(t, connB.Close())
}

// S4 — flow-controlled delivery: a subscriber with exactly one record's
// worth of initial credit receives only that record until it ACKs.
func TestS4_FlowControlledDelivery(t *testing.T) {
	// First discover the exact encoded record size for this event shape by
	// publishing through a throwaway connection with generous credit.
	probeDeps := testDeps(t, 1<<20)
	probe, probePipe := newConnectionPair(probeDeps)
	go probe.Serve()
	probeClient := newTestClient(t, probePipe)
	probeClient.send(wire.New(wire.KindConnect))
	probeClient.recv(time.Second)
	probeClient.send(wire.New(wire.KindPublish).
		WithString("channel", "ticks").
		WithFrame("event", wire.New("EVT").WithInt32("id", 0)))
	probeClient.recv(time.Second)
	require.NoError(t, probe.Close())

	registry := probeDeps.Registry
	cl, ok, err := registry.Get("ticks")
	require.NoError(t, err)
	require.True(t, ok)
	rec0, err := cl.ReadAt(0)
	require.NoError(t, err)
	recordSize := int64(len(rec0.Payload))

	deps := Deps{
		Registry:      registry,
		DurableStore:  probeDeps.DurableStore,
		Appender:      NewRegistryAppender(registry),
		InitialCredit: recordSize,
	}

	connA, pipeA := newConnectionPair(deps)
	go connA.Serve()
	clientA := newTestClient(t, pipeA)
	clientA.send(wire.New(wire.KindConnect))
	clientA.recv(time.Second)

	for i := int32(1); i <= 3; i++ {
		clientA.send(wire.New(wire.KindPublish).
			WithString("channel", "ticks").
			WithFrame("event", wire.New("EVT").WithInt32("id", i)))
		clientA.recv(time.Second)
	}

	connB, pipeB := newConnectionPair(deps)
	go connB.Serve()
	clientB := newTestClient(t, pipeB)
	clientB.send(wire.New(wire.KindConnect))
	clientB.recv(time.Second)
	clientB.send(wire.New(wire.KindSubscribe).
		WithString("channel", "ticks").
		WithInt64("startPos", 1))
	subResp := clientB.recv(time.Second)
	subID, _ := subResp.Int32("subID")

	first := clientB.recv(time.Second)
	require.Equal(t, wire.KindEvent, first.Kind)
	firstRec, _ := first.Int64("recordNumber")
	require.Equal(t, int64(1), firstRec)

	// No more credit: a second event must not arrive within a short wait.
	_, gotSecond := clientB.tryRecv(300 * time.Millisecond)
	require.False(t, gotSecond, "received a second event before crediting more bytes")

	clientB.send(wire.New(wire.KindAckEv).
		WithInt32("subID", subID).
		WithInt32("bytes", int32(recordSize)).
		WithInt64("pos", firstRec))

	second := clientB.recv(time.Second)
	secondRec, _ := second.Int64("recordNumber")
	require.Equal(t, int64(2), secondRec)

	require.NoError(t, connA.Close())
	require.NoError(t, connB.Close())
}

// S5 — protocol-fatal close: a malformed PUBLISH closes the connection
// with no RESPONSE frame.
func TestS5_ProtocolFatalCloseOnMalformedPublish(t *testing.T) {
	deps := testDeps(t, 1<<20)
	conn, pipe := newConnectionPair(deps)
	go conn.Serve()
	client := newTestClient(t, pipe)

	client.send(wire.New(wire.KindConnect))
	client.recv(time.Second)

	client.send(wire.New(wire.KindPublish))

	require.NoError(t, pipe.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 64)
	n, err := pipe.Read(buf)
	require.Error(t, err, "expected the connection to close rather than respond")
	require.Equal(t, 0, n)
}

// S6 — subscription id wrap: once sub_seq would wrap past the maximum
// signed 32-bit value, the connection closes fatally instead of reusing
// an id.
func TestS6_SubscriptionIDWrapIsFatal(t *testing.T) {
	deps := testDeps(t, 1<<20)
	conn, pipe := newConnectionPair(deps)
	conn.subSeq = 1<<31 - 1 // math.MaxInt32, forced to the wrap boundary
	go conn.Serve()
	client := newTestClient(t, pipe)

	client.send(wire.New(wire.KindConnect))
	client.recv(time.Second)

	client.send(wire.New(wire.KindSubscribe).WithString("channel", "orders"))

	require.NoError(t, pipe.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 64)
	_, err := pipe.Read(buf)
	require.Error(t, err)
}

// authorisation REDESIGN FLAG: any frame before CONNECT is protocol-fatal.
func TestUnauthorisedFrameBeforeConnectIsFatal(t *testing.T) {
	deps := testDeps(t, 1<<20)
	conn, pipe := newConnectionPair(deps)
	go conn.Serve()
	client := newTestClient(t, pipe)

	client.send(wire.New(wire.KindPublish).WithString("channel", "orders"))

	require.NoError(t, pipe.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 64)
	_, err := pipe.Read(buf)
	require.Error(t, err)
}

// unknown-channel REDESIGN FLAG: SUBSCRIBE on a channel nobody has
// published to gets a request-level failure, not a connection close.
func TestSubscribeUnknownChannelReturnsFailureResponse(t *testing.T) {
	deps := testDeps(t, 1<<20)
	conn, pipe := newConnectionPair(deps)
	go conn.Serve()
	client := newTestClient(t, pipe)

	client.send(wire.New(wire.KindConnect))
	client.recv(time.Second)

	client.send(wire.New(wire.KindSubscribe).WithString("channel", "nope"))
	resp := client.recv(time.Second)
	require.Equal(t, wire.KindSubResponse, resp.Kind)
	ok, _ := resp.Bool("ok")
	require.False(t, ok)

	require.NoError(t, conn.Close())
}

// QUERY{binder, docID} is a single-shot point lookup, answered directly
// with one QUERYRESULT{last:true} and no QueryExecution registered
// (spec.md:144) — distinct from QUERY{name, params}'s streamed path.
func TestQueryBinderDocIDPointLookup(t *testing.T) {
	deps := testDeps(t, 1<<20)
	require.NoError(t, deps.DocsManager.Put("orders", "doc-1", []byte(`{"status":"shipped"}`)))

	conn, pipe := newConnectionPair(deps)
	go conn.Serve()
	client := newTestClient(t, pipe)

	client.send(wire.New(wire.KindConnect))
	client.recv(time.Second)

	client.send(wire.New(wire.KindQuery).
		WithInt32("queryID", 7).
		WithString("binder", "orders").
		WithString("docID", "doc-1"))

	resp := client.recv(time.Second)
	require.Equal(t, wire.KindQueryResult, resp.Kind)
	queryID, _ := resp.Int32("queryID")
	require.Equal(t, int32(7), queryID)
	last, _ := resp.Bool("last")
	require.True(t, last)
	result, ok := resp.Nested("result")
	require.True(t, ok)
	status, _ := result.String("status")
	require.Equal(t, "shipped", status)

	require.NoError(t, conn.Close())
}

// QUERY{binder, docID} for a document that doesn't exist still answers
// with a QUERYRESULT{last:true} carrying an empty result, not a fatal
// close — a missing document is not a protocol error.
func TestQueryBinderDocIDPointLookupNotFound(t *testing.T) {
	deps := testDeps(t, 1<<20)

	conn, pipe := newConnectionPair(deps)
	go conn.Serve()
	client := newTestClient(t, pipe)

	client.send(wire.New(wire.KindConnect))
	client.recv(time.Second)

	client.send(wire.New(wire.KindQuery).
		WithInt32("queryID", 9).
		WithString("binder", "orders").
		WithString("docID", "does-not-exist"))

	resp := client.recv(time.Second)
	require.Equal(t, wire.KindQueryResult, resp.Kind)
	last, _ := resp.Bool("last")
	require.True(t, last)

	require.NoError(t, conn.Close())
}
