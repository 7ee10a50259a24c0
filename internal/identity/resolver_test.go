package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_RecordAndLookup(t *testing.T) {
	r := NewResolver()

	require.NoError(t, r.Record(KindCustomer, "c-1", 42))

	sid, ok := r.ServerID(KindCustomer, "c-1")
	assert.True(t, ok)
	assert.Equal(t, uint(42), sid)

	lid, ok := r.LocalID(KindCustomer, 42)
	assert.True(t, ok)
	assert.Equal(t, "c-1", lid)

	// Kinds have independent id spaces.
	_, ok = r.ServerID(KindProduct, "c-1")
	assert.False(t, ok)
}

func TestResolver_RecordIdempotent(t *testing.T) {
	r := NewResolver()

	require.NoError(t, r.Record(KindSale, "s-1", 7))
	require.NoError(t, r.Record(KindSale, "s-1", 7))
	assert.Equal(t, 1, r.Len(KindSale))
}

func TestResolver_RejectsContradictions(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.Record(KindProduct, "p-1", 10))

	// Same localId, different server id.
	assert.Error(t, r.Record(KindProduct, "p-1", 11))
	// Same server id, different localId.
	assert.Error(t, r.Record(KindProduct, "p-2", 10))

	// Original mapping intact.
	sid, ok := r.ServerID(KindProduct, "p-1")
	require.True(t, ok)
	assert.Equal(t, uint(10), sid)
}

func TestResolver_RejectsInvalid(t *testing.T) {
	r := NewResolver()
	assert.Error(t, r.Record(KindCategory, "", 1))
	assert.Error(t, r.Record(KindCategory, "x", 0))
}

func TestResolver_Load(t *testing.T) {
	r := NewResolver()
	err := r.Load(KindCustomer, []Pair{
		{LocalID: "c-1", ServerID: 1},
		{LocalID: "c-2", ServerID: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len(KindCustomer))

	// A contradictory pair stops the load.
	err = r.Load(KindCustomer, []Pair{{LocalID: "c-1", ServerID: 99}})
	assert.Error(t, err)
}
