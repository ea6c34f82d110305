package convsync

import (
	"testing"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMsg(id, sender string, createdAt, seq int64, readBy ...string) *entity.Message {
	return &entity.Message{
		Id:             id,
		ConversationId: "sg_g",
		SenderId:       sender,
		Text:           id,
		Seq:            seq,
		CreatedAt:      createdAt,
		ReadBy:         append([]string{sender}, readBy...),
	}
}

func ids(msgs []*entity.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Id)
	}
	return out
}

func TestProject_OrdersByCreatedAtThenSeq(t *testing.T) {
	msgs := []*entity.Message{
		newMsg("c", "alice", 30, 3),
		newMsg("b2", "alice", 20, 2),
		newMsg("a", "alice", 10, 1),
		newMsg("b1", "alice", 20, 1),
	}

	state := Project("sg_g", msgs, "alice")
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, ids(state.Messages))
	assert.Equal(t, []string{"c", "b2", "a", "b1"}, ids(msgs), "input order is preserved")
}

func TestProject_PendingGoLast(t *testing.T) {
	pending := newMsg("p", "alice", 0, 0)
	msgs := []*entity.Message{pending, newMsg("b", "bob", 20, 2), newMsg("a", "bob", 10, 1)}

	state := Project("sg_g", msgs, "alice")
	assert.Equal(t, []string{"a", "b", "p"}, ids(state.Messages))
}

func TestProject_Unread(t *testing.T) {
	msgs := []*entity.Message{
		newMsg("m1", "bob", 10, 1, "alice"),
		newMsg("m2", "alice", 20, 2),
		newMsg("m3", "bob", 30, 3),
		newMsg("m4", "carol", 40, 4),
	}

	state := Project("sg_g", msgs, "alice")
	assert.Equal(t, 2, state.UnreadCount)
	assert.Equal(t, "m3", state.FirstUnreadId)

	none := Project("sg_g", msgs[:2], "alice")
	assert.Equal(t, 0, none.UnreadCount)
	assert.Empty(t, none.FirstUnreadId)
}

func TestProject_Idempotent(t *testing.T) {
	msgs := []*entity.Message{
		newMsg("m1", "bob", 10, 1),
		newMsg("m2", "alice", 20, 2),
		newMsg("m3", "bob", 30, 3, "alice"),
	}
	msgs[1].IsPinned, msgs[1].PinnedAt = true, 50
	msgs[2].IsStarred = true

	first := Project("sg_g", msgs, "alice")
	second := Project("sg_g", msgs, "alice")
	assert.Equal(t, first, second)
	assert.Equal(t, first.UnreadCount, second.UnreadCount)
	assert.True(t, Diff(first, second).Empty())
}

func TestProject_DoesNotAliasInput(t *testing.T) {
	msgs := []*entity.Message{newMsg("m1", "bob", 10, 1)}
	state := Project("sg_g", msgs, "alice")

	state.Messages[0].Text = "changed"
	state.Messages[0].ReadBy = append(state.Messages[0].ReadBy, "alice")
	assert.Equal(t, "m1", msgs[0].Text)
	assert.Equal(t, []string{"bob"}, msgs[0].ReadBy)
}

func TestProject_PinnedCappedMostRecentFirst(t *testing.T) {
	var msgs []*entity.Message
	pinnedAt := []int64{100, 400, 200, 400, 300}
	for i, at := range pinnedAt {
		m := newMsg(string(rune('a'+i)), "bob", int64(10*(i+1)), int64(i+1))
		m.IsPinned = true
		m.PinnedAt = at
		msgs = append(msgs, m)
	}

	state := Project("sg_g", msgs, "alice")
	require.Len(t, state.Pinned, 3)
	// equal pin times fall back to seq descending
	assert.Equal(t, []string{"d", "b", "e"}, ids(state.Pinned))

	hidden := 0
	for _, m := range state.Messages {
		if m.IsPinned {
			hidden++
		}
	}
	assert.Equal(t, 5, hidden, "pins beyond the banner keep their flag")
}

func TestProject_StarredInLogOrder(t *testing.T) {
	msgs := []*entity.Message{
		newMsg("m2", "bob", 20, 2),
		newMsg("m1", "bob", 10, 1),
		newMsg("m3", "bob", 30, 3),
	}
	msgs[0].IsStarred = true
	msgs[2].IsStarred = true

	state := Project("sg_g", msgs, "alice")
	assert.Equal(t, []string{"m2", "m3"}, ids(state.Starred))
	assert.Empty(t, state.Pinned)
}

func TestProject_GroupScenario(t *testing.T) {
	hello := newMsg("hello", "A", 100, 1)
	hi := newMsg("hi", "B", 200, 2)

	state := Project("sg_g", []*entity.Message{hello, hi}, "A")
	assert.Equal(t, 1, state.UnreadCount)
	assert.Empty(t, state.Pinned)
	assert.Equal(t, "hi", state.FirstUnreadId)
}

func TestDiff(t *testing.T) {
	prev := Project("sg_g", []*entity.Message{
		newMsg("m1", "bob", 10, 1),
		newMsg("m2", "bob", 20, 2),
	}, "alice")

	edited := newMsg("m2", "bob", 20, 2)
	edited.Text = "edited"
	next := Project("sg_g", []*entity.Message{
		edited,
		newMsg("m3", "bob", 30, 3),
	}, "alice")

	d := Diff(prev, next)
	assert.Equal(t, []string{"m3"}, d.Added)
	assert.Equal(t, []string{"m2"}, d.Changed)
	assert.Equal(t, []string{"m1"}, d.Removed)
	assert.False(t, d.Empty())

	fresh := Diff(nil, prev)
	assert.Equal(t, []string{"m1", "m2"}, fresh.Added)
}
