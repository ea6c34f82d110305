package entity

import (
	"sync"
	"testing"

	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestReactions_ToggleIsInvolution(t *testing.T) {
	original := Reactions{"👍": {"bob"}}

	once := original.Toggle("👍", "alice")
	assert.Equal(t, []string{"bob", "alice"}, once["👍"])
	assert.Equal(t, []string{"bob"}, original["👍"], "toggle must not mutate the receiver")

	twice := once.Toggle("👍", "alice")
	assert.Equal(t, original, twice)
}

func TestReactions_ToggleDropsEmptySymbol(t *testing.T) {
	r := Reactions{}.Toggle("🎉", "alice")
	assert.True(t, r.Has("🎉", "alice"))

	r = r.Toggle("🎉", "alice")
	_, ok := r["🎉"]
	assert.False(t, ok)
	assert.Empty(t, r)
}

func TestReactions_ToggleNil(t *testing.T) {
	var r Reactions
	r = r.Toggle("❤️", "alice")
	assert.Equal(t, Reactions{"❤️": {"alice"}}, r)
}

func TestMessage_IsUnreadFor(t *testing.T) {
	msg := &Message{SenderId: "alice", ReadBy: []string{"alice"}}

	assert.False(t, msg.IsUnreadFor("alice"), "own messages are never unread")
	assert.True(t, msg.IsUnreadFor("bob"))

	msg.ReadBy = append(msg.ReadBy, "bob")
	assert.False(t, msg.IsUnreadFor("bob"))
}

func TestMessage_QuoteIsSnapshot(t *testing.T) {
	msg := &Message{Id: "m1", Text: "original", SenderName: "Alice"}
	quote := msg.Quote()

	msg.Text = "edited"
	assert.Equal(t, &QuotedMessage{Id: "m1", Text: "original", SenderName: "Alice"}, quote)
}

func TestMessage_CloneIsDeep(t *testing.T) {
	msg := &Message{
		Id:          "m1",
		Attachments: []string{"a"},
		ReadBy:      []string{"alice"},
		Reactions:   Reactions{"👍": {"bob"}},
		Quoted:      &QuotedMessage{Id: "m0"},
	}
	c := msg.Clone()
	c.Attachments[0] = "b"
	c.ReadBy[0] = "carol"
	c.Reactions["👍"][0] = "dave"
	c.Quoted.Id = "mx"

	assert.Equal(t, "a", msg.Attachments[0])
	assert.Equal(t, "alice", msg.ReadBy[0])
	assert.Equal(t, "bob", msg.Reactions["👍"][0])
	assert.Equal(t, "m0", msg.Quoted.Id)
}

func TestNewSystemMessage(t *testing.T) {
	msg := NewSystemMessage("m1", "sg_1", "Bob left the group.")
	assert.True(t, msg.IsSystem())
	assert.Equal(t, constant.SystemSenderId, msg.SenderId)
	assert.True(t, msg.IsPending())
}

func TestMessage_ClientMsgIdUniquePerSender(t *testing.T) {
	sch, err := schema.Parse(&Message{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	var idx *schema.Index
	for _, i := range sch.ParseIndexes() {
		if i.Name == "idx_sender_client" {
			idx = i
		}
	}
	require.NotNil(t, idx)
	assert.Equal(t, "UNIQUE", idx.Class)
	require.Len(t, idx.Fields, 2)
	assert.Equal(t, "sender_id", idx.Fields[0].DBName)
	assert.Equal(t, "client_msg_id", idx.Fields[1].DBName)
}
