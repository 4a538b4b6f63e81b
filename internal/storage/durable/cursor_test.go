package durable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AdvanceAndGet(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Advance("orders", "sub-1", 42))

	c, ok := s.Get("orders", "sub-1")
	require.True(t, ok)
	assert.Equal(t, int64(42), c.RecordNumber)
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Advance("orders", "sub-1", 7))

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	c, ok := reopened.Get("orders", "sub-1")
	require.True(t, ok)
	assert.Equal(t, int64(7), c.RecordNumber)
}

func TestStore_DeleteOnUnsubscribe(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Advance("orders", "sub-1", 7))
	require.NoError(t, s.Delete("orders", "sub-1"))

	_, ok := s.Get("orders", "sub-1")
	assert.False(t, ok)
}
