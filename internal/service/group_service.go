package service

import (
	"context"

	"github.com/mbeoliero/chatsync/internal/convsync"
	"github.com/mbeoliero/chatsync/internal/entity"
)

// GroupService exposes group management to the HTTP surface
type GroupService struct {
	engine *convsync.Engine
}

// NewGroupService creates a new GroupService
func NewGroupService(engine *convsync.Engine) *GroupService {
	return &GroupService{engine: engine}
}

// CreateGroupRequest represents group creation request
type CreateGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	PhotoURL    string   `json:"photo_url,omitempty"`
	MemberIds   []string `json:"member_ids,omitempty"`
}

// UpdateGroupRequest changes the non-nil details
type UpdateGroupRequest struct {
	GroupId     string  `json:"group_id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}

// GroupIdRequest addresses one group
type GroupIdRequest struct {
	GroupId string `json:"group_id"`
}

// RemoveMemberRequest represents remove member request
type RemoveMemberRequest struct {
	GroupId string `json:"group_id"`
	UserId  string `json:"user_id"`
}

// AddMembersRequest represents add members request
type AddMembersRequest struct {
	GroupId string   `json:"group_id"`
	UserIds []string `json:"user_ids"`
}

// AddMembersResponse lists the users that were actually added
type AddMembersResponse struct {
	GroupId string   `json:"group_id"`
	Added   []string `json:"added"`
}

// GroupDetail is a group with its member records
type GroupDetail struct {
	ConversationId string                `json:"conversation_id"`
	Group          *entity.GroupInfo     `json:"group"`
	Members        []*entity.GroupMember `json:"members"`
}

func toGroupDetail(gc *entity.GroupChat) *GroupDetail {
	return &GroupDetail{
		ConversationId: gc.Id,
		Group:          gc.Group.ToGroupInfo(len(gc.ActiveMemberIds())),
		Members:        gc.Members,
	}
}

// CreateGroup creates a group with the caller as admin
func (s *GroupService) CreateGroup(ctx context.Context, sess convsync.Session, req *CreateGroupRequest) (*GroupDetail, error) {
	gc, err := s.engine.CreateGroup(ctx, sess, convsync.CreateGroupRequest{
		Name:        req.Name,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
		MemberIds:   req.MemberIds,
	})
	if err != nil {
		return nil, err
	}
	return toGroupDetail(gc), nil
}

// GetGroup returns a group with its members
func (s *GroupService) GetGroup(ctx context.Context, sess convsync.Session, req *GroupIdRequest) (*GroupDetail, error) {
	gc, err := s.engine.Group(ctx, sess, req.GroupId)
	if err != nil {
		return nil, err
	}
	return toGroupDetail(gc), nil
}

// UpdateGroup changes group details, admins only
func (s *GroupService) UpdateGroup(ctx context.Context, sess convsync.Session, req *UpdateGroupRequest) (*GroupDetail, error) {
	gc, err := s.engine.UpdateGroup(ctx, sess, req.GroupId, convsync.GroupUpdate{
		Name:        req.Name,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		return nil, err
	}
	return toGroupDetail(gc), nil
}

// LeaveGroup ends the caller's membership
func (s *GroupService) LeaveGroup(ctx context.Context, sess convsync.Session, req *GroupIdRequest) error {
	return s.engine.LeaveGroup(ctx, sess, req.GroupId)
}

// RemoveMember ends another member's membership, admins only
func (s *GroupService) RemoveMember(ctx context.Context, sess convsync.Session, req *RemoveMemberRequest) error {
	return s.engine.RemoveMember(ctx, sess, req.GroupId, req.UserId)
}

// AddMembers adds users as members, admins only
func (s *GroupService) AddMembers(ctx context.Context, sess convsync.Session, req *AddMembersRequest) (*AddMembersResponse, error) {
	added, err := s.engine.AddMembers(ctx, sess, req.GroupId, req.UserIds)
	if err != nil {
		return nil, err
	}
	return &AddMembersResponse{GroupId: req.GroupId, Added: added}, nil
}
