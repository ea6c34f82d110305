package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/chatsync/internal/middleware"
	"github.com/mbeoliero/chatsync/internal/service"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/chatsync/pkg/response"
)

// GroupHandler handles group-related requests
type GroupHandler struct {
	groupService *service.GroupService
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(groupService *service.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// CreateGroup handles create group request
func (h *GroupHandler) CreateGroup(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.CreateGroupRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	group, err := h.groupService.CreateGroup(ctx, sess, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, group)
}

// GetGroupInfo handles get group info request, members included
func (h *GroupHandler) GetGroupInfo(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	groupId := c.Query("group_id")
	if groupId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	group, err := h.groupService.GetGroup(ctx, sess, &service.GroupIdRequest{GroupId: groupId})
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, group)
}

// UpdateGroup handles update group details request
func (h *GroupHandler) UpdateGroup(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.UpdateGroupRequest
	if err := c.BindAndValidate(&req); err != nil || req.GroupId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	group, err := h.groupService.UpdateGroup(ctx, sess, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, group)
}

// LeaveGroup handles leave group request
func (h *GroupHandler) LeaveGroup(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.GroupIdRequest
	if err := c.BindAndValidate(&req); err != nil || req.GroupId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.groupService.LeaveGroup(ctx, sess, &req); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// RemoveMember handles remove member request
func (h *GroupHandler) RemoveMember(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.RemoveMemberRequest
	if err := c.BindAndValidate(&req); err != nil || req.GroupId == "" || req.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.groupService.RemoveMember(ctx, sess, &req); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// AddMembers handles add members request
func (h *GroupHandler) AddMembers(ctx context.Context, c *app.RequestContext) {
	sess := middleware.GetSession(c)
	if sess.UserId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.AddMembersRequest
	if err := c.BindAndValidate(&req); err != nil || req.GroupId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	resp, err := h.groupService.AddMembers(ctx, sess, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, resp)
}
