package convsync

import (
	"context"
	"testing"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/pkg/idgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingReads(t *testing.T) {
	msgs := []*entity.Message{
		newMsg("own", "alice", 10, 1),
		newMsg("read", "bob", 20, 2, "alice"),
		newMsg("unread", "bob", 30, 3),
		newMsg("pending", "bob", 0, 0),
	}
	assert.Equal(t, []string{"unread"}, PendingReads(msgs, "alice"))
	assert.Empty(t, PendingReads(msgs[:2], "alice"))
}

func TestReconcile_MarksEveryOtherAuthorsMessage(t *testing.T) {
	store := newMemStore("alice", "bob", "carol")
	store.seedGroup("g", admin("alice"), member("bob"), member("carol"))
	for i, sender := range []string{"bob", "alice", "carol", "bob"} {
		m := newMsg(string(rune('a'+i)), sender, int64(10*(i+1)), int64(i+1))
		store.insertRaw(m)
	}

	r := NewReconciler(store, 0)
	sess := Session{UserId: "alice"}
	msgs, err := store.ListMessages(context.Background(), "sg_g", 100)
	require.NoError(t, err)

	n, err := r.Reconcile(context.Background(), sess, Project("sg_g", msgs, "alice"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, store.readCalls(), "one batch for the whole snapshot")

	after, err := store.ListMessages(context.Background(), "sg_g", 100)
	require.NoError(t, err)
	for _, m := range after {
		if m.SenderId != "alice" {
			assert.Contains(t, m.ReadBy, "alice", "message %s", m.Id)
		}
	}

	n, err = r.Reconcile(context.Background(), sess, Project("sg_g", after, "alice"))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, store.readCalls(), "nothing to mark issues no write")
}

func TestReconcile_FailureIsReturnedAndRetried(t *testing.T) {
	store := newMemStore("alice", "bob")
	store.seedGroup("g", admin("alice"), member("bob"))
	store.insertRaw(newMsg("m1", "bob", 10, 1))
	store.failMarkRead = errBoom

	r := NewReconciler(store, 0)
	sess := Session{UserId: "alice"}
	msgs, _ := store.ListMessages(context.Background(), "sg_g", 100)
	state := Project("sg_g", msgs, "alice")

	_, err := r.Reconcile(context.Background(), sess, state)
	assert.ErrorIs(t, err, errBoom)

	store.mu.Lock()
	store.failMarkRead = nil
	store.mu.Unlock()

	n, err := r.Reconcile(context.Background(), sess, state)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReconcile_SurvivesCancelledContext(t *testing.T) {
	store := newMemStore("alice", "bob")
	store.seedGroup("g", admin("alice"), member("bob"))
	store.insertRaw(newMsg("m1", "bob", 10, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msgs, _ := store.ListMessages(context.Background(), "sg_g", 100)
	n, err := NewReconciler(store, 0).Reconcile(ctx, Session{UserId: "alice"}, Project("sg_g", msgs, "alice"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReconcile_CoversMessagesOlderThanWindow(t *testing.T) {
	store := newMemStore("A", "B")
	store.seedGroup("g", admin("A"), member("B"))
	store.window = 2
	e := NewEngine(store, Options{SnapshotLimit: 2, IDs: idgen.NewUUIDGenerator()})
	ctx := context.Background()

	var sent []*entity.Message
	for _, text := range []string{"one", "two", "three"} {
		m, err := e.Send(ctx, sessionOf("B"), SendRequest{ConversationId: "sg_g", Text: text})
		require.NoError(t, err)
		sent = append(sent, m)
	}

	state, err := e.Snapshot(ctx, sessionOf("A"), "sg_g")
	require.NoError(t, err)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, 3, state.UnreadCount)
	assert.Equal(t, sent[0].Id, state.FirstUnreadId)
	assert.Equal(t, sent[1].Id, state.Anchor, "the anchor stays inside the loaded window")

	n, err := NewReconciler(store, 0).Reconcile(ctx, sessionOf("A"), state)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	oldest, err := store.GetMessage(ctx, sent[0].Id)
	require.NoError(t, err)
	assert.Contains(t, oldest.ReadBy, "A")

	state, err = e.Snapshot(ctx, sessionOf("A"), "sg_g")
	require.NoError(t, err)
	assert.Zero(t, state.UnreadCount)
	assert.Empty(t, state.FirstUnreadId)
}

func TestReconcile_StopsAtObservedSeq(t *testing.T) {
	store := newMemStore("alice", "bob")
	store.seedGroup("g", admin("alice"), member("bob"))
	store.insertRaw(newMsg("seen", "bob", 10, 1))

	msgs, _ := store.ListMessages(context.Background(), "sg_g", 100)
	state := Project("sg_g", msgs, "alice")
	store.insertRaw(newMsg("later", "bob", 20, 2))

	n, err := NewReconciler(store, 0).Reconcile(context.Background(), Session{UserId: "alice"}, state)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	later, err := store.GetMessage(context.Background(), "later")
	require.NoError(t, err)
	assert.NotContains(t, later.ReadBy, "alice", "messages the viewer has not observed stay unread")
}
