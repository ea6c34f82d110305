package convsync

import (
	"context"
	"testing"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/chatsync/pkg/idgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(store *memStore) *Engine {
	return NewEngine(store, Options{IDs: idgen.NewUUIDGenerator()})
}

func sessionOf(userId string) Session {
	return Session{UserId: userId, DisplayName: userId}
}

func TestEngine_DirectConversationIdIsOrderIndependent(t *testing.T) {
	store := newMemStore("u1", "u2")
	e := newTestEngine(store)
	ctx := context.Background()

	convId := entity.GenSingleConversationId("u1", "u2")
	sent, err := e.Send(ctx, sessionOf("u1"), SendRequest{ConversationId: convId, Text: "ping"})
	require.NoError(t, err)
	assert.Equal(t, entity.GenSingleConversationId("u2", "u1"), sent.ConversationId)

	chat, err := e.OpenDirect(ctx, sessionOf("u2"), "u1")
	require.NoError(t, err)
	assert.Equal(t, sent.ConversationId, chat.Id)

	state, err := e.Snapshot(ctx, sessionOf("u2"), chat.Id)
	require.NoError(t, err)
	require.Len(t, state.Messages, 1)
	assert.Equal(t, "ping", state.Messages[0].Text)
	assert.Equal(t, 1, state.UnreadCount)
}

func TestEngine_OpenDirectRejectsSelfAndUnknownPeer(t *testing.T) {
	e := newTestEngine(newMemStore("u1"))
	ctx := context.Background()

	_, err := e.OpenDirect(ctx, sessionOf("u1"), "u1")
	assert.ErrorIs(t, err, errcode.ErrSelfConversation)

	_, err = e.OpenDirect(ctx, sessionOf("u1"), "ghost")
	assert.ErrorIs(t, err, errcode.ErrUserNotFound)

	_, err = e.OpenDirect(ctx, Session{}, "u1")
	assert.ErrorIs(t, err, errcode.ErrUnauthorized)
}

func TestEngine_SendPreconditions(t *testing.T) {
	store := newMemStore("A", "B", "C", "X")
	store.seedGroup("g", admin("A"), member("B"), withStatus(member("C"), constant.GroupMemberStatusLeft))
	e := newTestEngine(store)
	ctx := context.Background()

	_, err := e.Send(ctx, sessionOf("A"), SendRequest{ConversationId: "sg_g", Text: "   "})
	assert.ErrorIs(t, err, errcode.ErrEmptyMessage)

	_, err = e.Send(ctx, sessionOf("A"), SendRequest{ConversationId: "sg_g", Attachments: []string{"chats/sg_g/1_a.png"}})
	assert.NoError(t, err, "an attachment alone is enough")

	_, err = e.Send(ctx, sessionOf("C"), SendRequest{ConversationId: "sg_g", Text: "hi"})
	assert.ErrorIs(t, err, errcode.ErrMemberNotActive)

	_, err = e.Send(ctx, sessionOf("X"), SendRequest{ConversationId: "sg_g", Text: "hi"})
	assert.ErrorIs(t, err, errcode.ErrNotGroupMember)

	_, err = e.Send(ctx, sessionOf("X"), SendRequest{ConversationId: entity.GenSingleConversationId("A", "B"), Text: "hi"})
	assert.ErrorIs(t, err, errcode.ErrConvNotFound)

	_, err = e.Send(ctx, sessionOf("A"), SendRequest{ConversationId: "sg_missing", Text: "hi"})
	assert.ErrorIs(t, err, errcode.ErrConvNotFound)
}

func TestEngine_SendStampsAndIsIdempotent(t *testing.T) {
	store := newMemStore("A", "B")
	store.seedGroup("g", admin("A"), member("B"))
	e := newTestEngine(store)
	ctx := context.Background()

	first, err := e.Send(ctx, sessionOf("A"), SendRequest{ConversationId: "sg_g", ClientMsgId: "c1", Text: "hello"})
	require.NoError(t, err)
	assert.NotZero(t, first.CreatedAt)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, []string{"A"}, first.ReadBy)

	again, err := e.Send(ctx, sessionOf("A"), SendRequest{ConversationId: "sg_g", ClientMsgId: "c1", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, first.Id, again.Id)

	chat, err := store.GetChat(ctx, "sg_g")
	require.NoError(t, err)
	require.NotNil(t, chat.Last())
	assert.Equal(t, first.Id, chat.Last().MessageId)
}

func TestEngine_EditAndDelete(t *testing.T) {
	store := newMemStore("A", "B")
	store.seedGroup("g", admin("A"), member("B"))
	e := newTestEngine(store)
	ctx := context.Background()

	msg, err := e.Send(ctx, sessionOf("A"), SendRequest{ConversationId: "sg_g", Text: "secret plans"})
	require.NoError(t, err)

	_, err = e.Edit(ctx, sessionOf("B"), msg.Id, "hijack")
	assert.ErrorIs(t, err, errcode.ErrNotMessageSender)

	edited, err := e.Edit(ctx, sessionOf("A"), msg.Id, "public plans")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)
	assert.Equal(t, "public plans", edited.Text)

	_, err = e.Delete(ctx, sessionOf("B"), msg.Id)
	assert.ErrorIs(t, err, errcode.ErrNotMessageSender)

	deleted, err := e.Delete(ctx, sessionOf("A"), msg.Id)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, constant.DeletedMessageText, deleted.Text)

	stored, err := store.GetMessage(ctx, msg.Id)
	require.NoError(t, err)
	assert.Equal(t, constant.DeletedMessageText, stored.Text)
	assert.NotContains(t, stored.Text, "plans")

	_, err = e.Edit(ctx, sessionOf("A"), msg.Id, "resurrect")
	assert.ErrorIs(t, err, errcode.ErrMessageDeleted)

	again, err := e.Delete(ctx, sessionOf("A"), msg.Id)
	require.NoError(t, err)
	assert.Equal(t, constant.DeletedMessageText, again.Text)
}

func TestEngine_ReactTwiceRestores(t *testing.T) {
	store := newMemStore("A", "B")
	store.seedGroup("g", admin("A"), member("B"))
	e := newTestEngine(store)
	ctx := context.Background()

	msg, err := e.Send(ctx, sessionOf("A"), SendRequest{ConversationId: "sg_g", Text: "party"})
	require.NoError(t, err)

	_, err = e.React(ctx, sessionOf("A"), msg.Id, "🎉")
	require.NoError(t, err)
	before, err := store.GetMessage(ctx, msg.Id)
	require.NoError(t, err)

	once, err := e.React(ctx, sessionOf("B"), msg.Id, "🎉")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, once["🎉"])

	twice, err := e.React(ctx, sessionOf("B"), msg.Id, "🎉")
	require.NoError(t, err)
	assert.Equal(t, before.Reactions, twice)

	cleared, err := e.React(ctx, sessionOf("A"), msg.Id, "🎉")
	require.NoError(t, err)
	assert.NotContains(t, cleared, "🎉")

	_, err = e.React(ctx, sessionOf("A"), msg.Id, " ")
	assert.ErrorIs(t, err, errcode.ErrInvalidReaction)
}

func TestEngine_StarPinAndQuote(t *testing.T) {
	store := newMemStore("A", "B")
	store.seedGroup("g", admin("A"), member("B"))
	e := newTestEngine(store)
	ctx := context.Background()

	orig, err := e.Send(ctx, sessionOf("A"), SendRequest{ConversationId: "sg_g", Text: "original"})
	require.NoError(t, err)

	starred, err := e.ToggleStar(ctx, sessionOf("B"), orig.Id)
	require.NoError(t, err)
	assert.True(t, starred)

	pinned, err := e.TogglePin(ctx, sessionOf("B"), orig.Id)
	require.NoError(t, err)
	assert.True(t, pinned)
	stored, _ := store.GetMessage(ctx, orig.Id)
	assert.NotZero(t, stored.PinnedAt)

	pinned, err = e.TogglePin(ctx, sessionOf("B"), orig.Id)
	require.NoError(t, err)
	assert.False(t, pinned)
	stored, _ = store.GetMessage(ctx, orig.Id)
	assert.Zero(t, stored.PinnedAt)

	quote, err := e.Quote(ctx, sessionOf("B"), orig.Id)
	require.NoError(t, err)
	reply, err := e.Send(ctx, sessionOf("B"), SendRequest{ConversationId: "sg_g", Text: "reply", Quoted: quote})
	require.NoError(t, err)

	_, err = e.Edit(ctx, sessionOf("A"), orig.Id, "rewritten")
	require.NoError(t, err)

	stored, _ = store.GetMessage(ctx, reply.Id)
	require.NotNil(t, stored.Quoted)
	assert.Equal(t, "original", stored.Quoted.Text, "quotes are point-in-time snapshots")
	assert.Equal(t, "A", stored.Quoted.SenderName)

	byId, err := e.Send(ctx, sessionOf("B"), SendRequest{ConversationId: "sg_g", Text: "again", QuoteId: orig.Id})
	require.NoError(t, err)
	assert.Equal(t, "rewritten", byId.Quoted.Text)
}

func TestEngine_LastAdminCannotLeaveOrBeRemoved(t *testing.T) {
	store := newMemStore("A", "B")
	store.seedGroup("g", admin("A"), member("B"))
	e := newTestEngine(store)
	ctx := context.Background()

	before, err := store.GetChat(ctx, "sg_g")
	require.NoError(t, err)

	err = e.LeaveGroup(ctx, sessionOf("A"), "g")
	assert.ErrorIs(t, err, errcode.ErrLastAdmin)

	err = e.RemoveMember(ctx, sessionOf("B"), "g", "A")
	assert.ErrorIs(t, err, errcode.ErrNotGroupAdmin)

	err = e.RemoveMember(ctx, sessionOf("A"), "g", "A")
	assert.ErrorIs(t, err, errcode.ErrCannotRemoveSelf)

	after, err := store.GetChat(ctx, "sg_g")
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected operations leave membership unchanged")

	msgs, _ := store.ListMessages(ctx, "sg_g", 100)
	assert.Empty(t, msgs, "no notice for a rejected operation")
}

func TestEngine_MembershipLifecycle(t *testing.T) {
	store := newMemStore("A", "B", "C", "D")
	store.seedGroup("g", admin("A"), member("B"))
	e := newTestEngine(store)
	ctx := context.Background()

	added, err := e.AddMembers(ctx, sessionOf("A"), "g", []string{"C", "D", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D"}, added)

	require.NoError(t, e.RemoveMember(ctx, sessionOf("A"), "g", "C"))
	require.NoError(t, e.LeaveGroup(ctx, sessionOf("B"), "g"))

	chat, err := store.GetChat(ctx, "sg_g")
	require.NoError(t, err)
	gc := chat.(*entity.GroupChat)
	assert.Equal(t, int32(constant.GroupMemberStatusRemoved), gc.Member("C").Status)
	assert.Equal(t, int32(constant.GroupMemberStatusLeft), gc.Member("B").Status)
	assert.Equal(t, []string{"A", "D"}, gc.ActiveMemberIds())

	_, err = e.AddMembers(ctx, sessionOf("A"), "g", []string{"C"})
	assert.ErrorIs(t, err, errcode.ErrNoMembersToAdd, "no re-activation of a removed member")

	msgs, _ := store.ListMessages(ctx, "sg_g", 100)
	var texts []string
	for _, m := range msgs {
		assert.True(t, m.IsSystem())
		texts = append(texts, m.Text)
	}
	assert.Equal(t, []string{"A added C", "A added D", "A removed C", "B left the group"}, texts)

	_, err = e.Send(ctx, sessionOf("C"), SendRequest{ConversationId: "sg_g", Text: "let me back"})
	assert.ErrorIs(t, err, errcode.ErrMemberNotActive)
}

func TestEngine_GroupDetailsForFormerMembers(t *testing.T) {
	store := newMemStore("A", "B", "C")
	store.seedGroup("g", admin("A"), withStatus(member("B"), constant.GroupMemberStatusLeft))
	e := newTestEngine(store)
	ctx := context.Background()

	gc, err := e.Group(ctx, sessionOf("B"), "g")
	require.NoError(t, err)
	assert.Equal(t, "g", gc.Group.Id)

	_, err = e.Group(ctx, sessionOf("C"), "g")
	assert.ErrorIs(t, err, errcode.ErrNotGroupMember)

	_, err = e.Group(ctx, sessionOf("A"), "missing")
	assert.ErrorIs(t, err, errcode.ErrGroupNotFound)
}

func TestEngine_CreateAndUpdateGroup(t *testing.T) {
	store := newMemStore("A", "B")
	e := newTestEngine(store)
	ctx := context.Background()

	_, err := e.CreateGroup(ctx, sessionOf("A"), CreateGroupRequest{Name: " "})
	assert.ErrorIs(t, err, errcode.ErrGroupNameInvalid)

	_, err = e.CreateGroup(ctx, sessionOf("A"), CreateGroupRequest{Name: "team", MemberIds: []string{"ghost"}})
	assert.ErrorIs(t, err, errcode.ErrUserNotFound)

	gc, err := e.CreateGroup(ctx, sessionOf("A"), CreateGroupRequest{Name: "team", MemberIds: []string{"B", "A", "B"}})
	require.NoError(t, err)
	require.Len(t, gc.Members, 2)
	assert.True(t, gc.Member("A").IsAdmin())
	assert.False(t, gc.Member("B").IsAdmin())

	name := "renamed"
	_, err = e.UpdateGroup(ctx, sessionOf("B"), gc.Group.Id, GroupUpdate{Name: &name})
	assert.ErrorIs(t, err, errcode.ErrNotGroupAdmin)

	updated, err := e.UpdateGroup(ctx, sessionOf("A"), gc.Group.Id, GroupUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Group.Name)

	msgs, _ := store.ListMessages(ctx, gc.Id, 100)
	require.Len(t, msgs, 2)
	assert.Equal(t, `A created the group "team"`, msgs[0].Text)
	assert.Equal(t, `A renamed the group to "renamed"`, msgs[1].Text)
}

func TestEngine_SnapshotDoesNotWrite(t *testing.T) {
	store := newMemStore("A", "B")
	store.seedGroup("g", admin("A"), member("B"))
	e := newTestEngine(store)
	ctx := context.Background()

	_, err := e.Send(ctx, sessionOf("B"), SendRequest{ConversationId: "sg_g", Text: "hi"})
	require.NoError(t, err)

	state, err := e.Snapshot(ctx, sessionOf("A"), "sg_g")
	require.NoError(t, err)
	assert.Equal(t, 1, state.UnreadCount)
	assert.Equal(t, state.FirstUnreadId, state.Anchor)
	assert.Zero(t, store.readCalls())

	_, err = e.Snapshot(ctx, sessionOf("A"), entity.GenSingleConversationId("A", "B"))
	assert.ErrorIs(t, err, errcode.ErrConvNotFound, "snapshots never create conversations")
}
