package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func received(l *Listener) bool {
	select {
	case <-l.C():
		return true
	case <-time.After(50 * time.Millisecond):
		return false
	}
}

func TestHub_DispatchByKind(t *testing.T) {
	h := NewHub(nil)
	msgs := h.Listen("sg_1", KindMessages)
	chat := h.Listen("sg_1", KindChat)
	other := h.Listen("sg_2", KindMessages)
	defer msgs.Close()
	defer chat.Close()
	defer other.Close()

	require.NoError(t, h.Publish(context.Background(), "sg_1", KindMessages))

	assert.True(t, received(msgs))
	assert.False(t, received(chat))
	assert.False(t, received(other))
}

func TestHub_SignalsCoalesce(t *testing.T) {
	h := NewHub(nil)
	l := h.Listen("si_a:b", KindMessages)
	defer l.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Publish(context.Background(), "si_a:b", KindMessages))
	}

	assert.True(t, received(l))
	assert.False(t, received(l))
}

func TestHub_PublishSeveralKinds(t *testing.T) {
	h := NewHub(nil)
	msgs := h.Listen("sg_1", KindMessages)
	chat := h.Listen("sg_1", KindChat)
	defer msgs.Close()
	defer chat.Close()

	require.NoError(t, h.Publish(context.Background(), "sg_1", KindMessages, KindChat))

	assert.True(t, received(msgs))
	assert.True(t, received(chat))
}

func TestHub_CloseDetaches(t *testing.T) {
	h := NewHub(nil)
	l := h.Listen("sg_1", KindChat)
	assert.Equal(t, 1, h.ListenerCount("sg_1"))

	l.Close()
	l.Close()
	assert.Equal(t, 0, h.ListenerCount("sg_1"))

	require.NoError(t, h.Publish(context.Background(), "sg_1", KindChat))
	assert.False(t, received(l))
}

func TestDecodeNotice(t *testing.T) {
	n, err := decodeNotice("chatsync:feed:conv:sg_9", `{"conversation_id":"sg_9","kind":"chat","at":1}`)
	require.NoError(t, err)
	assert.Equal(t, "sg_9", n.ConversationId)
	assert.Equal(t, KindChat, n.Kind)

	n, err = decodeNotice("chatsync:feed:conv:sg_9", `{"kind":"messages"}`)
	require.NoError(t, err)
	assert.Equal(t, "sg_9", n.ConversationId)

	_, err = decodeNotice("chatsync:feed:conv:sg_9", `not json`)
	assert.Error(t, err)
}
