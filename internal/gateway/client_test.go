package gateway

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/mbeoliero/chatsync/internal/convsync"
	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	closed  bool
}

func (f *fakeConn) ReadMessage() ([]byte, error) { select {} }

func (f *fakeConn) WriteMessage(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrConnClosed
	}
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) responses(t *testing.T) []WSResponse {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]WSResponse, 0, len(f.written))
	for _, raw := range f.written {
		var resp WSResponse
		require.NoError(t, json.Unmarshal(raw, &resp))
		out = append(out, resp)
	}
	return out
}

func newTestClient(conn ClientConn) *Client {
	return NewClient(conn, convsync.Session{UserId: "A", PlatformId: 5}, SDKTypeGo, "tok", "conn-1", nil)
}

func request(t *testing.T, identifier int32, sendId string, payload interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(WSRequest{ReqIdentifier: identifier, MsgIncr: "7", SendId: sendId, Data: data})
	require.NoError(t, err)
	return raw
}

func TestClient_RejectsMalformedAndUnknownRequests(t *testing.T) {
	conn := &fakeConn{}
	c := newTestClient(conn)

	require.NoError(t, c.handleMessage([]byte("{not json")))
	require.NoError(t, c.handleMessage(request(t, 4242, "", ViewReq{ConversationId: "sg_1"})))
	require.NoError(t, c.handleMessage(request(t, WSSendMsg, "B", map[string]string{"text": "hi"})))

	resps := conn.responses(t)
	require.Len(t, resps, 3)
	assert.Equal(t, errcode.ErrInvalidProtocol.Code, resps[0].ErrCode)
	assert.Equal(t, int32(WSDataError), resps[0].ReqIdentifier)
	assert.Equal(t, errcode.ErrInvalidProtocol.Code, resps[1].ErrCode)
	assert.Equal(t, "7", resps[1].MsgIncr)
	assert.Equal(t, errcode.ErrTokenMismatch.Code, resps[2].ErrCode, "send id must match the authenticated user")
}

func TestClient_ViewRequestsRequireOpenView(t *testing.T) {
	c := newTestClient(&fakeConn{})

	_, err := c.closeView("sg_1")
	assert.ErrorIs(t, err, errcode.ErrViewNotOpen)
	assert.ErrorIs(t, c.focusView("sg_1"), errcode.ErrViewNotOpen)
	assert.Zero(t, c.OpenViewCount())
}

func TestClient_CloseStopsWrites(t *testing.T) {
	conn := &fakeConn{}
	c := newTestClient(conn)

	require.NoError(t, c.Close())
	assert.True(t, c.IsClosed())
	assert.ErrorIs(t, c.push(WSPushViewState, &ViewStateData{}), ErrConnClosed)
	assert.NoError(t, c.Close(), "closing twice is a no-op")
	assert.Empty(t, conn.responses(t))
}

func TestToViewStateData(t *testing.T) {
	pinned := &entity.Message{Id: "m2", Text: "pinned", SenderId: "B", IsPinned: true, PinnedAt: 9}
	state := &convsync.ViewState{
		ConversationId: "si_A:B",
		Chat:           &entity.DirectChat{Id: "si_A:B", Participants: [2]string{"A", "B"}},
		Messages:       []*entity.Message{{Id: "m1", IsStarred: true}, pinned},
		UnreadCount:    1,
		FirstUnreadId:  "m2",
		Pinned:         []*entity.Message{pinned},
		Starred:        []*entity.Message{{Id: "m1"}},
		Anchor:         "m2",
	}

	data := toViewStateData(state, "A", convsync.Delta{Added: []string{"m1", "m2"}})
	assert.Equal(t, "B", data.Chat.PeerUserId)
	assert.Equal(t, 1, data.Chat.UnreadCount)
	assert.Equal(t, []string{"m1"}, data.StarredIds)
	require.Len(t, data.Pinned, 1)
	assert.Equal(t, int64(9), data.Pinned[0].PinnedAt)
	assert.Equal(t, []string{"m1", "m2"}, data.Added)
	assert.Equal(t, "m2", data.Anchor)
}

func TestCheckOrigin(t *testing.T) {
	assert.True(t, checkOrigin("", nil))
	assert.False(t, checkOrigin("https://evil.example", nil))
	assert.True(t, checkOrigin("https://app.example", []string{"https://APP.example"}))
	assert.True(t, checkOrigin("https://any.example", []string{"*"}))
	assert.False(t, checkOrigin("https://evil.example", []string{"https://app.example"}))
}

func TestUserMap_RegisterAndUnregister(t *testing.T) {
	m := NewUserMap(nil)
	ctx := t.Context()

	web := newTestClient(&fakeConn{})
	ios := NewClient(&fakeConn{}, convsync.Session{UserId: "A", PlatformId: 1}, SDKTypeGo, "tok2", "conn-2", nil)
	m.Register(ctx, web)
	m.Register(ctx, ios)

	clients, ok := m.GetByPlatform("A", 5)
	require.True(t, ok)
	assert.Equal(t, []*Client{web}, clients)
	assert.Equal(t, []string{"A"}, m.GetAllOnlineUserIds())

	assert.False(t, m.Unregister(ctx, web))
	assert.True(t, m.Unregister(ctx, ios), "last connection takes the user offline")
	assert.False(t, m.HasConnection("A"))
}
