package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSonyflakeGenerator_Unique(t *testing.T) {
	gen, err := NewSonyflakeGenerator(7)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := gen.NextID()
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestUUIDGenerator(t *testing.T) {
	id, err := NewUUIDGenerator().NextID()
	require.NoError(t, err)
	assert.Len(t, id, 36)
}

func TestSetDefaultGenerator(t *testing.T) {
	SetDefaultGenerator(NewUUIDGenerator())
	defer SetDefaultGenerator(nil)

	id, err := NextID()
	require.NoError(t, err)
	assert.Len(t, id, 36)
}
