package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelLog_AppendAndReadBack(t *testing.T) {
	dir := t.TempDir()
	cl, err := openChannelLog(dir, "orders", 4096)
	require.NoError(t, err)
	defer cl.Close()

	n1, err := cl.Append([]byte("first"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n1)

	n2, err := cl.Append([]byte("second"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n2)

	rec1, err := cl.ReadAt(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), rec1.Payload)

	rec2, err := cl.ReadAt(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), rec2.Payload)
}

func TestChannelLog_RotatesChunksOnOverflow(t *testing.T) {
	dir := t.TempDir()
	// Small chunk so a handful of records force a rotation.
	cl, err := openChannelLog(dir, "ticks", HeaderSize+2*(FrameSize+8))
	require.NoError(t, err)
	defer cl.Close()

	for i := 0; i < 5; i++ {
		_, err := cl.Append([]byte("12345678"))
		require.NoError(t, err)
	}
	assert.Greater(t, cl.headFileNumber, 0)

	for i := int64(0); i < 5; i++ {
		rec, err := cl.ReadAt(i)
		require.NoError(t, err)
		assert.Equal(t, []byte("12345678"), rec.Payload)
	}
}

func TestChannelLog_RecoversTailAfterReopen(t *testing.T) {
	dir := t.TempDir()
	cl, err := openChannelLog(dir, "orders", 4096)
	require.NoError(t, err)

	_, err = cl.Append([]byte("a"))
	require.NoError(t, err)
	_, err = cl.Append([]byte("bb"))
	require.NoError(t, err)
	require.NoError(t, cl.Close())

	reopened, err := openChannelLog(dir, "orders", 4096)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, int64(1), reopened.LastRecordNumber())

	n3, err := reopened.Append([]byte("ccc"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n3)
}

func TestChannelLog_ReadUnwrittenRecordReturnsNoRecord(t *testing.T) {
	dir := t.TempDir()
	cl, err := openChannelLog(dir, "orders", 4096)
	require.NoError(t, err)
	defer cl.Close()

	_, err = cl.ReadAt(0)
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestCursor_ReadsSequentially(t *testing.T) {
	dir := t.TempDir()
	cl, err := openChannelLog(dir, "events", 4096)
	require.NoError(t, err)
	defer cl.Close()

	for _, p := range [][]byte{[]byte("a"), []byte("b"), []byte("c")} {
		_, err := cl.Append(p)
		require.NoError(t, err)
	}

	cur := cl.Cursor(-1)
	for _, want := range []string{"a", "b", "c"} {
		rec, err := cur.Next()
		require.NoError(t, err)
		assert.Equal(t, want, string(rec.Payload))
	}
	_, err = cur.Next()
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestChannelLog_RecoversAfterManyRecordsAndRestart(t *testing.T) {
	dir := t.TempDir()
	const chunkSize = 65_536
	const count = 1000

	cl, err := openChannelLog(dir, "ch", chunkSize)
	require.NoError(t, err)
	for i := 0; i < count; i++ {
		_, err := cl.Append([]byte("record-payload"))
		require.NoError(t, err)
	}
	require.NoError(t, cl.Close())

	lastFileNumber, err := checkAndGetLastFile(dir, "ch", chunkSize)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, lastFileNumber, 0)

	reopened, err := openChannelLog(dir, "ch", chunkSize)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, int64(count-1), reopened.LastRecordNumber())

	coord, err := coordOfRecord(dir, "ch", 500, chunkSize)
	require.NoError(t, err)
	assert.Equal(t, int64(500), coord.RecordNumber)

	rec, err := reopened.ReadAt(500)
	require.NoError(t, err)
	assert.Equal(t, []byte("record-payload"), rec.Payload)
}

func TestCoordOfRecord_ClampsToTailPastEnd(t *testing.T) {
	dir := t.TempDir()
	cl, err := openChannelLog(dir, "orders", 4096)
	require.NoError(t, err)
	defer cl.Close()

	for _, p := range [][]byte{[]byte("a"), []byte("b"), []byte("c")} {
		_, err := cl.Append(p)
		require.NoError(t, err)
	}

	coord, err := coordOfRecord(dir, "orders", 2, 4096)
	require.NoError(t, err)
	assert.Equal(t, int64(2), coord.RecordNumber)

	coord, err = coordOfRecord(dir, "orders", 100, 4096)
	require.NoError(t, err)
	assert.Equal(t, int64(2), coord.RecordNumber)
}

func TestRegistry_SubscribeToUnknownChannelFails(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(dir, 4096)

	_, ok, err := reg.Get("does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_PublishCreatesChannel(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(dir, 4096)

	cl, err := reg.GetOrCreate("orders")
	require.NoError(t, err)
	_, err = cl.Append([]byte("x"))
	require.NoError(t, err)

	cl2, ok, err := reg.Get("orders")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, cl, cl2)
}
