package gateway

import (
	"context"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/kit/log"
)

func newUpgrader(allowedOrigins []string) *websocket.HertzUpgrader {
	return &websocket.HertzUpgrader{
		CheckOrigin: func(ctx *app.RequestContext) bool {
			return checkOrigin(string(ctx.Request.Header.Peek("Origin")), allowedOrigins)
		},
	}
}

// checkOrigin validates the Origin header against allowed origins
func checkOrigin(origin string, allowedOrigins []string) bool {
	// same-origin request or non-browser client
	if origin == "" {
		return true
	}

	if len(allowedOrigins) == 0 {
		return false
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			return true
		}
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}

	return false
}

// HandleHertzConnection authenticates and upgrades a WebSocket connection
func (s *WsServer) HandleHertzConnection(ctx context.Context, c *app.RequestContext) {
	if s.onlineConnNum.Load() >= s.maxConnNum {
		c.String(consts.StatusServiceUnavailable, errcode.ErrConnOverLimit.Msg)
		return
	}

	token := string(c.Query(QueryToken))
	sendId := string(c.Query(QuerySendId))
	platformIdStr := string(c.Query(QueryPlatformId))
	sdkType := string(c.Query(QuerySDKType))

	if token == "" || sendId == "" {
		c.String(consts.StatusBadRequest, "missing required parameters")
		return
	}

	platformId := 0
	if platformIdStr != "" {
		platformId, _ = strconv.Atoi(platformIdStr)
	}

	claims, err := s.authService.ValidateToken(ctx, token)
	if err != nil || claims.UserId != sendId || claims.PlatformId != platformId {
		log.CtxDebug(ctx, "token validation failed: send_id=%s, platform_id=%d, error=%v", sendId, platformId, err)
		c.String(consts.StatusUnauthorized, "unauthorized")
		return
	}

	sess, err := s.authService.Session(ctx, claims.UserId, claims.PlatformId)
	if err != nil {
		log.CtxDebug(ctx, "load session failed: send_id=%s, error=%v", sendId, err)
		c.String(consts.StatusUnauthorized, "unauthorized")
		return
	}

	err = s.upgrader.Upgrade(c, func(conn *websocket.Conn) {
		connId := uuid.New().String()
		wsConn := NewHertzWebSocketClientConn(conn, s.connOptions())
		client := NewClient(wsConn, sess, sdkType, token, connId, s)

		s.registerChan <- client

		// blocks for the lifetime of the connection
		client.readLoop()
	})

	if err != nil {
		log.CtxWarn(ctx, "websocket upgrade failed: %v", err)
		return
	}
}
