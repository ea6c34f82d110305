package response

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/chatsync/pkg/errcode"
)

// Response represents a standard API response
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

// Success sends a success response
func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: 0,
		Msg:  "success",
		Data: data,
	})
}

// Error sends an error response, unknown errors are reported as internal
func Error(ctx context.Context, c *app.RequestContext, err error) {
	e := errcode.From(err)
	c.JSON(http.StatusOK, Response{
		Code: e.Code,
		Msg:  e.Msg,
	})
}

// ErrorWithCode sends an error response with specific error code
func ErrorWithCode(ctx context.Context, c *app.RequestContext, e *errcode.Error) {
	c.JSON(http.StatusOK, Response{
		Code: e.Code,
		Msg:  e.Msg,
	})
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(ctx context.Context, c *app.RequestContext, e *errcode.Error) {
	if e == nil {
		e = errcode.ErrUnauthorized
	}
	c.JSON(http.StatusUnauthorized, Response{
		Code: e.Code,
		Msg:  e.Msg,
	})
}
