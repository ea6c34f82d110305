package gateway

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/chatsync/internal/config"
	"github.com/mbeoliero/chatsync/internal/convsync"
	"github.com/mbeoliero/chatsync/internal/service"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"
)

// onlineRefreshPeriod keeps presence keys of connected users alive
const onlineRefreshPeriod = onlineTTL / 2

// WsServer is the WebSocket server. Each client holds live conversation views and receives their states.
type WsServer struct {
	upgrader       *websocket.HertzUpgrader
	cfg            *config.Config
	userMap        *UserMap
	registerChan   chan *Client
	unregisterChan chan *Client
	engine         *convsync.Engine
	authService    *service.AuthService
	msgService     *service.MessageService
	onlineUserNum  atomic.Int64
	onlineConnNum  atomic.Int64
	maxConnNum     int64
}

// NewWsServer creates a new WebSocket server
func NewWsServer(cfg *config.Config, rdb *redis.Client, engine *convsync.Engine, authService *service.AuthService, msgService *service.MessageService) *WsServer {
	return &WsServer{
		upgrader:       newUpgrader(cfg.Server.AllowedOrigins),
		cfg:            cfg,
		userMap:        NewUserMap(rdb),
		registerChan:   make(chan *Client, 1000),
		unregisterChan: make(chan *Client, 1000),
		engine:         engine,
		authService:    authService,
		msgService:     msgService,
		maxConnNum:     cfg.WebSocket.MaxConnNum,
	}
}

// connOptions returns the per connection limits from config
func (s *WsServer) connOptions() ConnOptions {
	return ConnOptions{
		MaxMessageSize:   s.cfg.WebSocket.MaxMessageSize,
		WriteWait:        s.cfg.WebSocket.WriteWait,
		PongWait:         s.cfg.WebSocket.PongWait,
		PingPeriod:       s.cfg.WebSocket.PingPeriod,
		WriteChannelSize: s.cfg.WebSocket.WriteChannelSize,
	}
}

// Run starts the WebSocket server
func (s *WsServer) Run(ctx context.Context) {
	go s.eventLoop(ctx)
	log.Info("websocket server started: max_conn_num=%d", s.maxConnNum)
}

// eventLoop handles client registration and unregistration and keeps presence fresh
func (s *WsServer) eventLoop(ctx context.Context) {
	ticker := time.NewTicker(onlineRefreshPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-s.registerChan:
			s.registerClient(ctx, client)
		case client := <-s.unregisterChan:
			s.unregisterClient(ctx, client)
		case <-ticker.C:
			for _, userId := range s.userMap.GetAllOnlineUserIds() {
				s.userMap.RefreshOnlineStatus(ctx, userId)
			}
		}
	}
}

// registerClient registers a client. Older connections on the same platform with another token are kicked.
func (s *WsServer) registerClient(ctx context.Context, client *Client) {
	existingClients, exists := s.userMap.GetAll(client.UserId)
	if !exists {
		s.onlineUserNum.Add(1)
	}

	if samePlatform, ok := s.userMap.GetByPlatform(client.UserId, client.PlatformId); ok {
		for _, old := range samePlatform {
			if old.Token != client.Token {
				log.CtxInfo(ctx, "kick client: user_id=%s, platform_id=%d, conn_id=%s", old.UserId, old.PlatformId, old.ConnId)
				old.KickOnline()
			}
		}
	}

	s.userMap.Register(ctx, client)
	s.onlineConnNum.Add(1)

	log.CtxInfo(ctx, "client registered: user_id=%s, platform=%s, conn_id=%s, existing_conns=%d, online_users=%d, online_conns=%d",
		client.UserId, constant.PlatformIdToName(client.PlatformId), client.ConnId, len(existingClients), s.onlineUserNum.Load(), s.onlineConnNum.Load())
}

// unregisterClient unregisters a client
func (s *WsServer) unregisterClient(ctx context.Context, client *Client) {
	isUserOffline := s.userMap.Unregister(ctx, client)
	s.onlineConnNum.Add(-1)

	if isUserOffline {
		s.onlineUserNum.Add(-1)
	}

	log.CtxInfo(ctx, "client unregistered: user_id=%s, platform_id=%d, conn_id=%s, user_offline=%v, online_users=%d, online_conns=%d",
		client.UserId, client.PlatformId, client.ConnId, isUserOffline, s.onlineUserNum.Load(), s.onlineConnNum.Load())
}

// UnregisterClient queues client for unregistration
func (s *WsServer) UnregisterClient(client *Client) {
	select {
	case s.unregisterChan <- client:
	default:
		log.Warn("unregister channel full: user_id=%s", client.UserId)
	}
}

// GetOnlineUserCount returns online user count
func (s *WsServer) GetOnlineUserCount() int64 {
	return s.onlineUserNum.Load()
}

// GetOnlineConnCount returns online connection count
func (s *WsServer) GetOnlineConnCount() int64 {
	return s.onlineConnNum.Load()
}

// ========== Message Handlers ==========

func decodeView(req *WSRequest) (*ViewReq, error) {
	var viewReq ViewReq
	if err := json.Unmarshal(req.Data, &viewReq); err != nil || viewReq.ConversationId == "" {
		return nil, errcode.ErrInvalidParam
	}
	return &viewReq, nil
}

// HandleOpenView opens a live view. Its states follow as WSPushViewState pushes.
func (s *WsServer) HandleOpenView(ctx context.Context, client *Client, req *WSRequest) ([]byte, error) {
	viewReq, err := decodeView(req)
	if err != nil {
		return nil, err
	}

	n, err := client.openView(ctx, viewReq.ConversationId, s.cfg.WebSocket.MaxViewsPerClient)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ViewResp{ConversationId: viewReq.ConversationId, OpenViews: n})
}

// HandleCloseView closes a live view
func (s *WsServer) HandleCloseView(ctx context.Context, client *Client, req *WSRequest) ([]byte, error) {
	viewReq, err := decodeView(req)
	if err != nil {
		return nil, err
	}

	n, err := client.closeView(viewReq.ConversationId)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ViewResp{ConversationId: viewReq.ConversationId, OpenViews: n})
}

// HandleFocusView reruns read reconciliation of an open view
func (s *WsServer) HandleFocusView(ctx context.Context, client *Client, req *WSRequest) ([]byte, error) {
	viewReq, err := decodeView(req)
	if err != nil {
		return nil, err
	}

	if err := client.focusView(viewReq.ConversationId); err != nil {
		return nil, err
	}
	return json.Marshal(ViewResp{ConversationId: viewReq.ConversationId, OpenViews: client.OpenViewCount()})
}

// HandleSendMsg handles send message request
func (s *WsServer) HandleSendMsg(ctx context.Context, client *Client, req *WSRequest) ([]byte, error) {
	var sendReq service.SendMessageRequest
	if err := json.Unmarshal(req.Data, &sendReq); err != nil {
		return nil, errcode.ErrInvalidParam
	}

	msg, err := s.msgService.SendMessage(ctx, client.session, &sendReq)
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// HandleEditMsg handles edit message request
func (s *WsServer) HandleEditMsg(ctx context.Context, client *Client, req *WSRequest) ([]byte, error) {
	var editReq service.EditMessageRequest
	if err := json.Unmarshal(req.Data, &editReq); err != nil {
		return nil, errcode.ErrInvalidParam
	}

	msg, err := s.msgService.EditMessage(ctx, client.session, &editReq)
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// HandleDeleteMsg handles delete message request
func (s *WsServer) HandleDeleteMsg(ctx context.Context, client *Client, req *WSRequest) ([]byte, error) {
	var idReq service.MessageIdRequest
	if err := json.Unmarshal(req.Data, &idReq); err != nil {
		return nil, errcode.ErrInvalidParam
	}

	msg, err := s.msgService.DeleteMessage(ctx, client.session, &idReq)
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// HandleReact handles reaction toggle request
func (s *WsServer) HandleReact(ctx context.Context, client *Client, req *WSRequest) ([]byte, error) {
	var reactReq service.ReactRequest
	if err := json.Unmarshal(req.Data, &reactReq); err != nil {
		return nil, errcode.ErrInvalidParam
	}

	resp, err := s.msgService.React(ctx, client.session, &reactReq)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

// HandleToggleStar handles star toggle request
func (s *WsServer) HandleToggleStar(ctx context.Context, client *Client, req *WSRequest) ([]byte, error) {
	var idReq service.MessageIdRequest
	if err := json.Unmarshal(req.Data, &idReq); err != nil {
		return nil, errcode.ErrInvalidParam
	}

	resp, err := s.msgService.ToggleStar(ctx, client.session, &idReq)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

// HandleTogglePin handles pin toggle request
func (s *WsServer) HandleTogglePin(ctx context.Context, client *Client, req *WSRequest) ([]byte, error) {
	var idReq service.MessageIdRequest
	if err := json.Unmarshal(req.Data, &idReq); err != nil {
		return nil, errcode.ErrInvalidParam
	}

	resp, err := s.msgService.TogglePin(ctx, client.session, &idReq)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}
