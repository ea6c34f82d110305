package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/mbeoliero/chatsync/internal/convsync"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/kit/log"
)

// Client represents a connected WebSocket client
type Client struct {
	mu         sync.Mutex
	conn       ClientConn
	UserId     string
	PlatformId int
	SDKType    string
	Token      string
	ConnId     string
	session    convsync.Session
	server     *WsServer
	closed     atomic.Bool
	closedErr  error
	ctx        context.Context
	cancel     context.CancelFunc

	viewsMu sync.Mutex
	views   map[string]*convsync.View
}

// NewClient creates a new client
func NewClient(conn ClientConn, sess convsync.Session, sdkType, token, connId string, server *WsServer) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:       conn,
		UserId:     sess.UserId,
		PlatformId: sess.PlatformId,
		SDKType:    sdkType,
		Token:      token,
		ConnId:     connId,
		session:    sess,
		server:     server,
		ctx:        ctx,
		cancel:     cancel,
		views:      make(map[string]*convsync.View),
	}
}

// Start starts the client message handling
func (c *Client) Start() {
	go c.readLoop()
}

// readLoop continuously reads messages from the connection
func (c *Client) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			c.closedErr = ErrPanic
			log.CtxError(c.ctx, "client read loop panic: user_id=%s, error=%v", c.UserId, r)
		}
		c.close()
	}()

	for {
		message, err := c.conn.ReadMessage()
		if err != nil {
			log.CtxDebug(c.ctx, "read message error: user_id=%s, error=%v", c.UserId, err)
			c.closedErr = err
			return
		}

		if c.closed.Load() {
			c.closedErr = ErrConnClosed
			return
		}

		if err := c.handleMessage(message); err != nil {
			log.CtxWarn(c.ctx, "handle message error: user_id=%s, error=%v", c.UserId, err)
			c.closedErr = err
			return
		}
	}
}

// handleMessage handles a single incoming message. Only transport failures are returned.
func (c *Client) handleMessage(message []byte) error {
	var req WSRequest
	if err := json.Unmarshal(message, &req); err != nil {
		return c.replyError(&WSRequest{ReqIdentifier: WSDataError}, errcode.ErrInvalidProtocol)
	}

	// Validate sender Id matches authenticated user
	if req.SendId != "" && req.SendId != c.UserId {
		return c.replyError(&req, errcode.ErrTokenMismatch.Wrap(ErrUserIdMismatch))
	}

	log.CtxDebug(c.ctx, "received message: req_identifier=%d, user_id=%s", req.ReqIdentifier, c.UserId)

	var resp []byte
	var err error

	switch req.ReqIdentifier {
	case WSOpenView:
		resp, err = c.server.HandleOpenView(c.ctx, c, &req)
	case WSCloseView:
		resp, err = c.server.HandleCloseView(c.ctx, c, &req)
	case WSFocusView:
		resp, err = c.server.HandleFocusView(c.ctx, c, &req)
	case WSSendMsg:
		resp, err = c.server.HandleSendMsg(c.ctx, c, &req)
	case WSEditMsg:
		resp, err = c.server.HandleEditMsg(c.ctx, c, &req)
	case WSDeleteMsg:
		resp, err = c.server.HandleDeleteMsg(c.ctx, c, &req)
	case WSReact:
		resp, err = c.server.HandleReact(c.ctx, c, &req)
	case WSToggleStar:
		resp, err = c.server.HandleToggleStar(c.ctx, c, &req)
	case WSTogglePin:
		resp, err = c.server.HandleTogglePin(c.ctx, c, &req)
	default:
		return c.replyError(&req, errcode.ErrInvalidProtocol)
	}

	return c.reply(&req, err, resp)
}

// reply sends a response to the client
func (c *Client) reply(req *WSRequest, err error, data []byte) error {
	if err != nil {
		return c.replyError(req, err)
	}
	return c.writeResponse(WSResponse{
		ReqIdentifier: req.ReqIdentifier,
		MsgIncr:       req.MsgIncr,
		OperationId:   req.OperationId,
		Data:          data,
	})
}

// replyError sends an error response carrying the business error code
func (c *Client) replyError(req *WSRequest, err error) error {
	e := errcode.From(err)
	return c.writeResponse(WSResponse{
		ReqIdentifier: req.ReqIdentifier,
		MsgIncr:       req.MsgIncr,
		OperationId:   req.OperationId,
		ErrCode:       e.Code,
		ErrMsg:        e.Msg,
	})
}

// writeResponse writes a response to the connection
func (c *Client) writeResponse(resp WSResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	return c.conn.WriteMessage(data)
}

// push writes a server initiated message
func (c *Client) push(identifier int32, v interface{}) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.writeResponse(WSResponse{ReqIdentifier: identifier, Data: data})
}

// openView starts a live view of a conversation and forwards its states. Opening an open view is a no-op.
func (c *Client) openView(ctx context.Context, conversationId string, limit int) (int, error) {
	c.viewsMu.Lock()
	defer c.viewsMu.Unlock()

	if _, ok := c.views[conversationId]; ok {
		return len(c.views), nil
	}
	if limit > 0 && len(c.views) >= limit {
		return len(c.views), errcode.ErrTooManyRequests
	}

	view, err := c.server.engine.Open(ctx, c.session, conversationId)
	if err != nil {
		return len(c.views), err
	}
	c.views[conversationId] = view
	go c.forward(view)
	return len(c.views), nil
}

// forward pushes every state of view until it ends, then reports why it ended
func (c *Client) forward(view *convsync.View) {
	var prev *convsync.ViewState
	for state := range view.Updates() {
		data := toViewStateData(state, c.UserId, convsync.Diff(prev, state))
		prev = state
		if err := c.push(WSPushViewState, data); err != nil {
			log.CtxDebug(c.ctx, "push view state failed: user_id=%s, conversation_id=%s, error=%v", c.UserId, view.ConversationId(), err)
		}
	}

	c.viewsMu.Lock()
	if c.views[view.ConversationId()] == view {
		delete(c.views, view.ConversationId())
	}
	c.viewsMu.Unlock()

	if err := view.Err(); err != nil {
		e := errcode.From(err)
		log.CtxInfo(c.ctx, "view ended: user_id=%s, conversation_id=%s, error=%v", c.UserId, view.ConversationId(), err)
		_ = c.push(WSPushViewClosed, &ViewClosedData{ConversationId: view.ConversationId(), Code: e.Code, Reason: e.Msg})
	}
}

// closeView ends a view opened by this client
func (c *Client) closeView(conversationId string) (int, error) {
	c.viewsMu.Lock()
	view, ok := c.views[conversationId]
	delete(c.views, conversationId)
	n := len(c.views)
	c.viewsMu.Unlock()

	if !ok {
		return n, errcode.ErrViewNotOpen
	}
	view.Close()
	return n, nil
}

// focusView asks an open view to mark its unread messages again
func (c *Client) focusView(conversationId string) error {
	c.viewsMu.Lock()
	view, ok := c.views[conversationId]
	c.viewsMu.Unlock()

	if !ok {
		return errcode.ErrViewNotOpen
	}
	view.FocusRegained()
	return nil
}

// closeViews ends every open view
func (c *Client) closeViews() {
	c.viewsMu.Lock()
	views := c.views
	c.views = make(map[string]*convsync.View)
	c.viewsMu.Unlock()

	for _, v := range views {
		v.Close()
	}
}

// OpenViewCount returns the number of live views of the client
func (c *Client) OpenViewCount() int {
	c.viewsMu.Lock()
	defer c.viewsMu.Unlock()
	return len(c.views)
}

// KickOnline sends kick message and closes connection
func (c *Client) KickOnline() error {
	resp := WSResponse{
		ReqIdentifier: WSKickOnlineMsg,
	}
	c.writeResponse(resp)
	return c.Close()
}

// Close closes the client connection and every view it holds
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return nil
	}
	c.closed.Store(true)
	c.cancel()
	err := c.conn.Close()
	c.mu.Unlock()

	c.closeViews()
	return err
}

// close handles cleanup when connection is closed
func (c *Client) close() {
	c.Close()
	if c.server != nil {
		c.server.UnregisterClient(c)
	}
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
