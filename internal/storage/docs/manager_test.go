package docs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_PutGetRoundTrip(t *testing.T) {
	m := NewManager(t.TempDir())
	defer m.Close()

	require.NoError(t, m.Put("users", "u1", []byte(`{"name":"ada"}`)))

	doc, found, err := m.Get("users", "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"name":"ada"}`, string(doc))
}

func TestManager_GetMissingDocNotFound(t *testing.T) {
	m := NewManager(t.TempDir())
	defer m.Close()

	_, found, err := m.Get("users", "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestManager_NamedQueryStreamsMatchingDocs(t *testing.T) {
	m := NewManager(t.TempDir())
	defer m.Close()

	require.NoError(t, m.Put("users", "u1", []byte(`{"role":"admin"}`)))
	require.NoError(t, m.Put("users", "u2", []byte(`{"role":"member"}`)))
	require.NoError(t, m.Put("users", "u3", []byte(`{"role":"admin"}`)))

	m.RegisterQuery("admins", NamedQuery{Binder: "users", MatcherTemplate: `role == "admin"`})

	stream, err := m.OpenStream("admins", nil)
	require.NoError(t, err)
	defer stream.Close()

	var ids []string
	for {
		id, _, err := stream.Next()
		if err == ErrStreamDone {
			break
		}
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.ElementsMatch(t, []string{"u1", "u3"}, ids)
}

func TestManager_UnknownNamedQueryFails(t *testing.T) {
	m := NewManager(t.TempDir())
	defer m.Close()

	_, err := m.OpenStream("nope", nil)
	assert.Error(t, err)
}
