package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/mbeoliero/chatsync/internal/convsync"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/chatsync/pkg/jwt"
	"github.com/mbeoliero/chatsync/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	tokens map[string]*jwt.Claims
}

func (f *fakeAuth) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, ok := f.tokens[token]
	if !ok {
		return nil, errcode.ErrTokenInvalid
	}
	return claims, nil
}

func (f *fakeAuth) Session(ctx context.Context, userId string, platformId int) (convsync.Session, error) {
	if userId == "ghost" {
		return convsync.Session{}, errcode.ErrUserNotFound
	}
	return convsync.Session{UserId: userId, DisplayName: "name-" + userId, PlatformId: platformId}, nil
}

func newEngine() *route.Engine {
	auth := &fakeAuth{tokens: map[string]*jwt.Claims{
		"good":  {UserId: "A", PlatformId: 5},
		"ghost": {UserId: "ghost", PlatformId: 5},
	}}
	engine := route.NewEngine(config.NewOptions(nil))
	engine.GET("/me", JWTAuth(auth), func(ctx context.Context, c *app.RequestContext) {
		sess := GetSession(c)
		response.Success(ctx, c, map[string]interface{}{
			"user_id":      GetUserId(c),
			"platform_id":  GetPlatformId(c),
			"display_name": sess.DisplayName,
			"token":        GetToken(c),
		})
	})
	return engine
}

func decode(t *testing.T, body []byte) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestJWTAuth(t *testing.T) {
	engine := newEngine()

	tests := []struct {
		name   string
		header string
		status int
		code   int
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized, code: errcode.ErrTokenMissing.Code},
		{name: "not bearer", header: "Basic abc", status: http.StatusUnauthorized, code: errcode.ErrTokenInvalid.Code},
		{name: "unknown token", header: "Bearer nope", status: http.StatusUnauthorized, code: errcode.ErrTokenInvalid.Code},
		{name: "deleted user", header: "Bearer ghost", status: http.StatusUnauthorized, code: errcode.ErrUserNotFound.Code},
		{name: "valid", header: "Bearer good", status: http.StatusOK, code: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var headers []ut.Header
			if tt.header != "" {
				headers = append(headers, ut.Header{Key: AuthorizationHeader, Value: tt.header})
			}
			w := ut.PerformRequest(engine, http.MethodGet, "/me", nil, headers...)
			resp := w.Result()

			assert.Equal(t, tt.status, resp.StatusCode())
			assert.Equal(t, tt.code, decode(t, resp.Body()).Code)
		})
	}
}

func TestJWTAuth_StoresSession(t *testing.T) {
	w := ut.PerformRequest(newEngine(), http.MethodGet, "/me", nil, ut.Header{Key: AuthorizationHeader, Value: "Bearer good"})

	data, ok := decode(t, w.Result().Body()).Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "A", data["user_id"])
	assert.Equal(t, float64(5), data["platform_id"])
	assert.Equal(t, "name-A", data["display_name"])
	assert.Equal(t, "good", data["token"])
}
