package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_SecondConnectionEvictsFirst(t *testing.T) {
	r := New()

	assert.Empty(t, r.Register("u1", "c1"))
	evicted := r.Register("u1", "c2")
	assert.Equal(t, "c1", evicted)

	conn, ok := r.ResolveByUser("u1")
	require.True(t, ok)
	assert.Equal(t, "c2", conn)

	_, ok = r.ResolveByConnection("c1")
	assert.False(t, ok, "evicted connection must not resolve")

	user, ok := r.ResolveByConnection("c2")
	require.True(t, ok)
	assert.Equal(t, "u1", user)
	assert.Equal(t, 1, r.Len())
}

func TestRegister_SameConnectionIsNoop(t *testing.T) {
	r := New()
	r.Register("u1", "c1")

	assert.Empty(t, r.Register("u1", "c1"))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"u1"}, r.SnapshotUserIDs())
}

func TestRegister_ConnectionSwitchesUser(t *testing.T) {
	r := New()
	r.Register("u1", "c1")
	r.Register("u2", "c1")

	_, ok := r.ResolveByUser("u1")
	assert.False(t, ok)
	user, _ := r.ResolveByConnection("c1")
	assert.Equal(t, "u2", user)
	assert.Equal(t, 1, r.Len())
}

func TestRemove(t *testing.T) {
	r := New()
	r.Register("u1", "c1")
	r.Register("u2", "c2")

	r.Remove("c1")
	r.Remove("c1")
	r.Remove("missing")

	_, ok := r.ResolveByUser("u1")
	assert.False(t, ok)
	_, ok = r.ResolveByConnection("c1")
	assert.False(t, ok)
	assert.Equal(t, []string{"u2"}, r.SnapshotUserIDs())
}

func TestRemove_EvictedConnectionKeepsNewMapping(t *testing.T) {
	r := New()
	r.Register("u1", "c1")
	r.Register("u1", "c2")

	r.Remove("c1")

	conn, ok := r.ResolveByUser("u1")
	require.True(t, ok)
	assert.Equal(t, "c2", conn)
}

func TestSnapshotUserIDs_Sorted(t *testing.T) {
	r := New()
	r.Register("carol", "c3")
	r.Register("alice", "c1")
	r.Register("bob", "c2")

	assert.Equal(t, []string{"alice", "bob", "carol"}, r.SnapshotUserIDs())
}
