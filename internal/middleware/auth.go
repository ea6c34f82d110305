package middleware

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/mbeoliero/chatsync/internal/convsync"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/chatsync/pkg/jwt"
	"github.com/mbeoliero/chatsync/pkg/response"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer token
	BearerPrefix = "Bearer "
	// UserIdKey is the context key for user Id
	UserIdKey = "user_id"
	// PlatformIdKey is the context key for platform Id
	PlatformIdKey = "platform_id"
	// TokenKey is the context key for the raw token
	TokenKey = "token"
	// SessionKey is the context key for the engine session
	SessionKey = "session"
)

// Authenticator validates tokens and loads the session of their user
type Authenticator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
	Session(ctx context.Context, userId string, platformId int) (convsync.Session, error)
}

// JWTAuth is the JWT authentication middleware
func JWTAuth(auth Authenticator) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		authHeader := string(c.GetHeader(AuthorizationHeader))
		if authHeader == "" {
			response.Unauthorized(ctx, c, errcode.ErrTokenMissing)
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Unauthorized(ctx, c, errcode.ErrTokenInvalid)
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		claims, err := auth.ValidateToken(ctx, tokenString)
		if err != nil {
			response.Unauthorized(ctx, c, errcode.From(err))
			c.Abort()
			return
		}

		sess, err := auth.Session(ctx, claims.UserId, claims.PlatformId)
		if err != nil {
			response.Unauthorized(ctx, c, errcode.From(err))
			c.Abort()
			return
		}

		c.Set(UserIdKey, claims.UserId)
		c.Set(PlatformIdKey, claims.PlatformId)
		c.Set(TokenKey, tokenString)
		c.Set(SessionKey, sess)

		c.Next(ctx)
	}
}

// GetUserId gets user Id from context
func GetUserId(c *app.RequestContext) string {
	if v, ok := c.Get(UserIdKey); ok {
		return v.(string)
	}
	return ""
}

// GetPlatformId gets platform Id from context
func GetPlatformId(c *app.RequestContext) int {
	if v, ok := c.Get(PlatformIdKey); ok {
		return v.(int)
	}
	return 0
}

// GetToken gets the raw token from context
func GetToken(c *app.RequestContext) string {
	if v, ok := c.Get(TokenKey); ok {
		return v.(string)
	}
	return ""
}

// GetSession gets the engine session from context, anonymous when unauthenticated
func GetSession(c *app.RequestContext) convsync.Session {
	if v, ok := c.Get(SessionKey); ok {
		return v.(convsync.Session)
	}
	return convsync.Session{}
}
