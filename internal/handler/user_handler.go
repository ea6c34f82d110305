package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/chatsync/internal/middleware"
	"github.com/mbeoliero/chatsync/internal/service"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/chatsync/pkg/response"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	maxStatusBatch     = 200
)

// UserHandler handles user-related requests
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetUserInfo handles get user info request
func (h *UserHandler) GetUserInfo(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	userInfo, err := h.userService.GetUserInfo(ctx, userId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, userInfo)
}

// GetUserInfoById handles get user info by Id request
func (h *UserHandler) GetUserInfoById(ctx context.Context, c *app.RequestContext) {
	userId := c.Param("user_id")
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	userInfo, err := h.userService.GetUserInfo(ctx, userId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, userInfo)
}

// UpdateUserInfo handles update user info request
func (h *UserHandler) UpdateUserInfo(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.UpdateUserRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	userInfo, err := h.userService.UpdateUserInfo(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, userInfo)
}

// SearchUsers finds users by nickname, used to pick a direct chat peer or group members
func (h *UserHandler) SearchUsers(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	keyword := strings.TrimSpace(c.Query("keyword"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	users, err := h.userService.SearchUsers(ctx, userId, keyword, limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, users)
}

// GetUsersOnlineStatus handles online status query for a comma separated list of user ids
func (h *UserHandler) GetUsersOnlineStatus(ctx context.Context, c *app.RequestContext) {
	raw := c.Query("user_ids")
	if raw == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	var userIds []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			userIds = append(userIds, id)
		}
	}
	if len(userIds) == 0 || len(userIds) > maxStatusBatch {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	response.Success(ctx, c, h.userService.GetUsersOnlineStatus(ctx, userIds))
}
