package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/chatsync/internal/convsync"
	"github.com/mbeoliero/chatsync/internal/middleware"
	"github.com/mbeoliero/chatsync/internal/service"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/chatsync/pkg/response"
)

// MessageHandler handles message-related requests
type MessageHandler struct {
	msgService *service.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(msgService *service.MessageService) *MessageHandler {
	return &MessageHandler{msgService: msgService}
}

// SendMessage handles send message request
func (h *MessageHandler) SendMessage(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.SendMessageRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	msg, err := h.msgService.SendMessage(ctx, sess, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, msg)
}

// EditMessage handles edit message request
func (h *MessageHandler) EditMessage(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.EditMessageRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	msg, err := h.msgService.EditMessage(ctx, sess, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, msg)
}

// DeleteMessage handles delete message request
func (h *MessageHandler) DeleteMessage(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.MessageIdRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	msg, err := h.msgService.DeleteMessage(ctx, sess, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, msg)
}

// React toggles the caller's reaction on a message
func (h *MessageHandler) React(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.ReactRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	resp, err := h.msgService.React(ctx, sess, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, resp)
}

// ToggleStar handles star toggle request
func (h *MessageHandler) ToggleStar(ctx context.Context, c *app.RequestContext) {
	h.toggle(ctx, c, h.msgService.ToggleStar)
}

// TogglePin handles pin toggle request
func (h *MessageHandler) TogglePin(ctx context.Context, c *app.RequestContext) {
	h.toggle(ctx, c, h.msgService.TogglePin)
}

func (h *MessageHandler) toggle(ctx context.Context, c *app.RequestContext,
	fn func(context.Context, convsync.Session, *service.MessageIdRequest) (*service.FlagResponse, error)) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.MessageIdRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	resp, err := fn(ctx, sess, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, resp)
}

// Quote returns the quote preview of a message for the composer
func (h *MessageHandler) Quote(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	messageId := c.Query("message_id")
	if messageId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	quote, err := h.msgService.Quote(ctx, sess, &service.MessageIdRequest{MessageId: messageId})
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, quote)
}
