package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket request and push identifiers
const (
	wsOpenView   int32 = 1001
	wsCloseView  int32 = 1002
	wsSendMsg    int32 = 1003
	wsFocusView  int32 = 1009
	wsViewState  int32 = 2001
	wsKicked     int32 = 2002
	wsViewClosed int32 = 2003
)

const (
	watcherDialTimeout = 10 * time.Second
	watcherEventBuffer = 64
)

// ErrWatcherClosed is returned for calls on a closed watcher
var ErrWatcherClosed = errors.New("watcher closed")

// ErrKicked is reported when another login on the same platform replaced this connection
var ErrKicked = errors.New("connection replaced by another login")

type wsRequest struct {
	ReqIdentifier int32  `json:"req_identifier"`
	MsgIncr       string `json:"msg_incr"`
	OperationId   string `json:"operation_id"`
	SendId        string `json:"send_id"`
	Data          []byte `json:"data"`
}

type wsResponse struct {
	ReqIdentifier int32  `json:"req_identifier"`
	MsgIncr       string `json:"msg_incr"`
	OperationId   string `json:"operation_id"`
	ErrCode       int    `json:"err_code"`
	ErrMsg        string `json:"err_msg"`
	Data          []byte `json:"data"`
}

type viewRequest struct {
	ConversationId string `json:"conversation_id"`
}

// PinnedEntry is one message of the pinned banner
type PinnedEntry struct {
	MessageId string `json:"message_id"`
	Text      string `json:"text"`
	SenderId  string `json:"sender_id"`
	PinnedAt  int64  `json:"pinned_at"`
}

// ViewState is a pushed state of an open conversation view
type ViewState struct {
	ConversationId string            `json:"conversation_id"`
	Chat           *ConversationInfo `json:"chat"`
	Messages       []*MessageInfo    `json:"messages"`
	UnreadCount    int               `json:"unread_count"`
	FirstUnreadId  string            `json:"first_unread_id,omitempty"`
	Pinned         []*PinnedEntry    `json:"pinned"`
	StarredIds     []string          `json:"starred_ids"`
	Anchor         string            `json:"anchor,omitempty"`
	Added          []string          `json:"added,omitempty"`
	Changed        []string          `json:"changed,omitempty"`
	Removed        []string          `json:"removed,omitempty"`
}

// ViewClosed reports a view the server ended, for example after the user left the group
type ViewClosed struct {
	ConversationId string `json:"conversation_id"`
	Code           int    `json:"code"`
	Reason         string `json:"reason"`
}

// ViewEvent carries exactly one of State or Closed
type ViewEvent struct {
	State  *ViewState
	Closed *ViewClosed
}

// Watcher holds a WebSocket connection with live conversation views
type Watcher struct {
	conn   *websocket.Conn
	userId string

	writeMu sync.Mutex
	msgIncr atomic.Uint64

	pendingMu sync.Mutex
	pending   map[string]chan *wsResponse

	events    chan *ViewEvent
	done      chan struct{}
	closeOnce sync.Once
	err       atomic.Pointer[error]
}

// Watch dials the WebSocket endpoint with the client's token. wsURL is the server's ws(s)://host:port.
func (c *Client) Watch(ctx context.Context, wsURL, userId string, platformId int) (*Watcher, error) {
	if c.token == "" {
		return nil, ErrTokenMissing
	}

	query := url.Values{}
	query.Set("token", c.token)
	query.Set("send_id", userId)
	query.Set("platform_id", strconv.Itoa(platformId))
	query.Set("sdk_type", "go")

	dialer := websocket.Dialer{HandshakeTimeout: watcherDialTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL+"/ws?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial websocket: %w", err)
	}

	w := &Watcher{
		conn:    conn,
		userId:  userId,
		pending: make(map[string]chan *wsResponse),
		events:  make(chan *ViewEvent, watcherEventBuffer),
		done:    make(chan struct{}),
	}
	go w.readLoop()
	return w, nil
}

// Events delivers view states and closures. The channel is closed with the watcher.
func (w *Watcher) Events() <-chan *ViewEvent {
	return w.events
}

// Err returns why the watcher stopped, nil while it runs
func (w *Watcher) Err() error {
	if p := w.err.Load(); p != nil {
		return *p
	}
	return nil
}

// OpenView starts a live view. Its states arrive on Events, the first one right away.
func (w *Watcher) OpenView(ctx context.Context, conversationId string) error {
	_, err := w.call(ctx, wsOpenView, &viewRequest{ConversationId: conversationId})
	return err
}

// CloseView stops a live view
func (w *Watcher) CloseView(ctx context.Context, conversationId string) error {
	_, err := w.call(ctx, wsCloseView, &viewRequest{ConversationId: conversationId})
	return err
}

// FocusView tells the server the view is visible again so unread messages get marked read
func (w *Watcher) FocusView(ctx context.Context, conversationId string) error {
	_, err := w.call(ctx, wsFocusView, &viewRequest{ConversationId: conversationId})
	return err
}

// Send sends a message over the connection
func (w *Watcher) Send(ctx context.Context, req *SendMessageRequest) (*MessageInfo, error) {
	data, err := w.call(ctx, wsSendMsg, req)
	if err != nil {
		return nil, err
	}
	var msg MessageInfo
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return &msg, nil
}

// Close closes the connection. Every view held by it ends on the server.
func (w *Watcher) Close() error {
	w.stop(ErrWatcherClosed)
	return nil
}

func (w *Watcher) call(ctx context.Context, identifier int32, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	incr := strconv.FormatUint(w.msgIncr.Add(1), 10)
	reply := make(chan *wsResponse, 1)

	w.pendingMu.Lock()
	w.pending[incr] = reply
	w.pendingMu.Unlock()
	defer func() {
		w.pendingMu.Lock()
		delete(w.pending, incr)
		w.pendingMu.Unlock()
	}()

	raw, err := json.Marshal(wsRequest{ReqIdentifier: identifier, MsgIncr: incr, SendId: w.userId, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	w.writeMu.Lock()
	err = w.conn.WriteMessage(websocket.TextMessage, raw)
	w.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to write request: %w", err)
	}

	select {
	case resp := <-reply:
		if resp.ErrCode != 0 {
			return nil, &Error{Code: resp.ErrCode, Msg: resp.ErrMsg}
		}
		return resp.Data, nil
	case <-w.done:
		return nil, w.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *Watcher) readLoop() {
	defer close(w.events)

	for {
		_, raw, err := w.conn.ReadMessage()
		if err != nil {
			w.stop(err)
			return
		}

		var resp wsResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			continue
		}

		switch resp.ReqIdentifier {
		case wsViewState:
			var state ViewState
			if json.Unmarshal(resp.Data, &state) == nil {
				w.emit(&ViewEvent{State: &state})
			}
		case wsViewClosed:
			var closed ViewClosed
			if json.Unmarshal(resp.Data, &closed) == nil {
				w.emit(&ViewEvent{Closed: &closed})
			}
		case wsKicked:
			w.stop(ErrKicked)
			return
		default:
			w.pendingMu.Lock()
			reply, ok := w.pending[resp.MsgIncr]
			w.pendingMu.Unlock()
			if ok {
				reply <- &resp
			}
		}
	}
}

// emit hands an event to the consumer, dropping it once the watcher stops
func (w *Watcher) emit(ev *ViewEvent) {
	select {
	case w.events <- ev:
	case <-w.done:
	}
}

func (w *Watcher) stop(err error) {
	w.closeOnce.Do(func() {
		w.err.Store(&err)
		close(w.done)
		_ = w.conn.Close()
	})
}
