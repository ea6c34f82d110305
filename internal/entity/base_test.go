package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenSingleConversationId_OrderIndependent(t *testing.T) {
	pairs := [][2]string{
		{"alice", "bob"},
		{"u_1", "u_10"},
		{"Z", "a"},
		{"same", "same"},
	}
	for _, p := range pairs {
		assert.Equal(t, GenSingleConversationId(p[0], p[1]), GenSingleConversationId(p[1], p[0]))
	}
	assert.Equal(t, "si_alice:bob", GenSingleConversationId("bob", "alice"))
}

func TestParseSingleConversationId(t *testing.T) {
	a, b, ok := ParseSingleConversationId(GenSingleConversationId("u_2", "u_1"))
	assert.True(t, ok)
	assert.Equal(t, "u_1", a)
	assert.Equal(t, "u_2", b)

	_, _, ok = ParseSingleConversationId("sg_123")
	assert.False(t, ok)
	_, _, ok = ParseSingleConversationId("si_alone")
	assert.False(t, ok)
}

func TestGroupConversationId(t *testing.T) {
	convId := GenGroupConversationId("42")
	assert.Equal(t, "sg_42", convId)
	assert.True(t, IsGroupConversation(convId))
	assert.False(t, IsSingleConversation(convId))
	assert.Equal(t, "42", GroupIdFromConversationId(convId))
	assert.Equal(t, "", GroupIdFromConversationId("si_a:b"))
}
