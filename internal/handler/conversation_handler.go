package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/internal/middleware"
	"github.com/mbeoliero/chatsync/internal/service"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/chatsync/pkg/response"
)

// ConversationHandler handles conversation-related requests
type ConversationHandler struct {
	convService *service.ConversationService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(convService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convService: convService}
}

// GetConversationList handles get conversation list request
func (h *ConversationHandler) GetConversationList(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	convs, err := h.convService.GetUserConversations(ctx, userId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, convs)
}

// OpenDirectRequest represents open direct conversation request
type OpenDirectRequest struct {
	PeerId string `json:"peer_id"`
}

// OpenDirect returns the direct conversation with a peer, creating it on first use
func (h *ConversationHandler) OpenDirect(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req OpenDirectRequest
	if err := c.BindAndValidate(&req); err != nil || req.PeerId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	chat, err := h.convService.OpenDirect(ctx, sess, req.PeerId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, entity.ToConversationInfo(chat, sess.UserId, 0))
}

// GetSnapshot returns the projected state of one conversation without marking anything read
func (h *ConversationHandler) GetSnapshot(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	conversationId := c.Query("conversation_id")
	if conversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	state, err := h.convService.Snapshot(ctx, sess, conversationId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, state)
}
