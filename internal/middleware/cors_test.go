package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
)

func corsEngine(origins []string) *route.Engine {
	engine := route.NewEngine(config.NewOptions(nil))
	engine.Use(CORS(origins))
	engine.GET("/ping", func(ctx context.Context, c *app.RequestContext) {
		c.String(http.StatusOK, "pong")
	})
	engine.OPTIONS("/ping", func(ctx context.Context, c *app.RequestContext) {})
	return engine
}

func TestCORS_ListedOrigin(t *testing.T) {
	engine := corsEngine([]string{"https://App.example/"})

	resp := ut.PerformRequest(engine, http.MethodGet, "/ping", nil, ut.Header{Key: "Origin", Value: "https://app.example"}).Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	resp = ut.PerformRequest(engine, http.MethodGet, "/ping", nil, ut.Header{Key: "Origin", Value: "https://evil.example"}).Result()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_Wildcard(t *testing.T) {
	resp := ut.PerformRequest(corsEngine(nil), http.MethodGet, "/ping", nil, ut.Header{Key: "Origin", Value: "https://any.example"}).Result()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestCORS_Preflight(t *testing.T) {
	resp := ut.PerformRequest(corsEngine(nil), http.MethodOptions, "/ping", nil, ut.Header{Key: "Origin", Value: "https://any.example"}).Result()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PUT")
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}
