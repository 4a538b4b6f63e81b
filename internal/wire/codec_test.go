package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	event := New(KindPublish)
	event.WithString("id", "abc123")
	event.WithInt64("amount", 4200)

	f := New(KindPublish)
	f.WithString("channel", "orders")
	f.WithFrame("event", event)

	wireBytes, err := Encode(f)
	require.NoError(t, err)

	var p Parser
	p.Feed(wireBytes)
	got, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, KindPublish, got.Kind)
	ch, _ := got.String("channel")
	assert.Equal(t, "orders", ch)

	nested, ok := got.Nested("event")
	require.True(t, ok)
	id, _ := nested.String("id")
	assert.Equal(t, "abc123", id)
	amount, _ := nested.Int64("amount")
	assert.Equal(t, int64(4200), amount)
}

func TestParser_FeedsPartialFrameAcrossCalls(t *testing.T) {
	f := New(KindPing)
	wireBytes, err := Encode(f)
	require.NoError(t, err)

	var p Parser
	p.Feed(wireBytes[:2])
	_, ok, err := p.Next()
	require.NoError(t, err)
	assert.False(t, ok)

	p.Feed(wireBytes[2:])
	got, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindPing, got.Kind)
}

func TestParser_ExtractsMultipleBufferedFrames(t *testing.T) {
	f1, err := Encode(New(KindPing))
	require.NoError(t, err)
	f2, err := Encode(New(KindPing))
	require.NoError(t, err)

	var p Parser
	p.Feed(f1)
	p.Feed(f2)

	_, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = p.Next()
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = p.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParser_OversizedFrameIsFatal(t *testing.T) {
	var p Parser
	huge := make([]byte, LengthPrefixSize)
	p.Feed(huge)
	// Overwrite the length prefix directly rather than constructing a
	// frame that large.
	buf := p.buf.Bytes()
	buf[0] = 0xFF
	_, _, err := p.Next()
	assert.Error(t, err)
}

func TestBoolAndBytesFields(t *testing.T) {
	f := New(KindSubResponse)
	f.WithBool("ok", true)
	f.WithInt32("subID", 7)
	f.WithBytes("blob", []byte{1, 2, 3})

	wireBytes, err := Encode(f)
	require.NoError(t, err)

	var p Parser
	p.Feed(wireBytes)
	got, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)

	b, _ := got.Bool("ok")
	assert.True(t, b)
	sub, _ := got.Int32("subID")
	assert.EqualValues(t, 7, sub)
	blob, _ := got.Bytes("blob")
	assert.Equal(t, []byte{1, 2, 3}, blob)
}
