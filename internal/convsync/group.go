package convsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/kit/log"
)

// CreateGroupRequest is the input of CreateGroup
type CreateGroupRequest struct {
	Name        string
	Description string
	PhotoURL    string
	MemberIds   []string
}

func validateGroupName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 || n > constant.MaxGroupNameLength {
		return errcode.ErrGroupNameInvalid
	}
	return nil
}

func validateGroupDescription(desc string) error {
	if utf8.RuneCountInString(desc) > constant.MaxGroupDescriptionLength {
		return errcode.ErrGroupDescTooLong
	}
	return nil
}

func (e *Engine) groupChat(ctx context.Context, sess Session, groupId string) (*entity.GroupChat, error) {
	if err := sess.Valid(); err != nil {
		return nil, err
	}

	chat, err := e.store.GetChat(ctx, entity.GenGroupConversationId(groupId))
	if errors.Is(err, errcode.ErrConvNotFound) {
		return nil, errcode.ErrGroupNotFound
	}
	if err != nil {
		return nil, storeError(ctx, "get group", err, errcode.ErrInternalServer)
	}

	gc, ok := chat.(*entity.GroupChat)
	if !ok {
		return nil, errcode.ErrGroupNotFound
	}
	return gc, nil
}

// Group returns a group with its member records. Former members keep read access to the details.
func (e *Engine) Group(ctx context.Context, sess Session, groupId string) (*entity.GroupChat, error) {
	gc, err := e.groupChat(ctx, sess, groupId)
	if err != nil {
		return nil, err
	}
	if gc.Member(sess.UserId) == nil {
		return nil, errcode.ErrNotGroupMember
	}
	return gc, nil
}

func (e *Engine) notice(conversationId, text string) (*entity.Message, error) {
	id, err := e.nextId()
	if err != nil {
		return nil, err
	}
	return entity.NewSystemMessage(id, conversationId, text), nil
}

func memberName(m *entity.GroupMember) string {
	if m != nil && m.DisplayName != "" {
		return m.DisplayName
	}
	if m != nil {
		return m.UserId
	}
	return ""
}

func userName(u *entity.User) string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Id
}

// loadUsers fetches every user of ids, failing when one is unknown
func (e *Engine) loadUsers(ctx context.Context, ids []string) ([]*entity.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	users, err := e.store.GetUsers(ctx, ids)
	if err != nil {
		return nil, storeError(ctx, "get users", err, errcode.ErrInternalServer)
	}

	byId := make(map[string]*entity.User, len(users))
	for _, u := range users {
		byId[u.Id] = u
	}
	ordered := make([]*entity.User, 0, len(ids))
	for _, id := range ids {
		u, ok := byId[id]
		if !ok {
			return nil, errcode.ErrUserNotFound
		}
		ordered = append(ordered, u)
	}
	return ordered, nil
}

// CreateGroup creates a group with the viewer as its first admin
func (e *Engine) CreateGroup(ctx context.Context, sess Session, req CreateGroupRequest) (*entity.GroupChat, error) {
	if err := sess.Valid(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if err := validateGroupName(name); err != nil {
		return nil, err
	}
	if err := validateGroupDescription(req.Description); err != nil {
		return nil, err
	}

	seen := map[string]struct{}{sess.UserId: {}}
	var memberIds []string
	for _, id := range req.MemberIds {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		memberIds = append(memberIds, id)
	}
	if len(memberIds)+1 > constant.MaxGroupMembers {
		return nil, errcode.ErrGroupFull
	}

	users, err := e.loadUsers(ctx, memberIds)
	if err != nil {
		return nil, err
	}

	groupId, err := e.nextId()
	if err != nil {
		return nil, storeError(ctx, "generate group id", err, errcode.ErrInternalServer)
	}
	conversationId := entity.GenGroupConversationId(groupId)
	now := entity.NowUnixMilli()

	group := &entity.Group{
		Id:            groupId,
		Name:          name,
		Description:   req.Description,
		PhotoURL:      req.PhotoURL,
		CreatorUserId: sess.UserId,
	}

	members := []*entity.GroupMember{{
		GroupId:     groupId,
		UserId:      sess.UserId,
		DisplayName: sess.name(),
		PhotoURL:    sess.PhotoURL,
		RoleLevel:   constant.RoleLevelAdmin,
		Status:      constant.GroupMemberStatusActive,
		JoinedAt:    now,
	}}
	for _, u := range users {
		members = append(members, &entity.GroupMember{
			GroupId:       groupId,
			UserId:        u.Id,
			DisplayName:   userName(u),
			PhotoURL:      u.Avatar,
			RoleLevel:     constant.RoleLevelMember,
			Status:        constant.GroupMemberStatusActive,
			JoinedAt:      now,
			InviterUserId: sess.UserId,
		})
	}

	notice, err := e.notice(conversationId, fmt.Sprintf("%s created the group \"%s\"", sess.name(), name))
	if err != nil {
		return nil, storeError(ctx, "generate notice id", err, errcode.ErrInternalServer)
	}

	if err := e.store.CreateGroup(ctx, group, members, notice); err != nil {
		return nil, storeError(ctx, "create group", err, errcode.ErrInternalServer)
	}

	log.CtxInfo(ctx, "group created: group_id=%s, creator=%s, members=%d", groupId, sess.UserId, len(members))
	return e.groupChat(ctx, sess, groupId)
}

// UpdateGroup changes the group details. Only active admins may do so; a rename leaves a notice.
func (e *Engine) UpdateGroup(ctx context.Context, sess Session, groupId string, update GroupUpdate) (*entity.GroupChat, error) {
	gc, err := e.groupChat(ctx, sess, groupId)
	if err != nil {
		return nil, err
	}
	if err := CanUpdateGroup(sess.UserId, gc.Members); err != nil {
		return nil, err
	}

	var notice *entity.Message
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if err := validateGroupName(name); err != nil {
			return nil, err
		}
		update.Name = &name
		if gc.Group == nil || gc.Group.Name != name {
			notice, err = e.notice(gc.Id, fmt.Sprintf("%s renamed the group to \"%s\"", sess.name(), name))
			if err != nil {
				return nil, storeError(ctx, "generate notice id", err, errcode.ErrInternalServer)
			}
		}
	}
	if update.Description != nil {
		if err := validateGroupDescription(*update.Description); err != nil {
			return nil, err
		}
	}

	if err := e.store.UpdateGroup(ctx, groupId, update, notice); err != nil {
		return nil, storeError(ctx, "update group", err, errcode.ErrInternalServer)
	}

	log.CtxInfo(ctx, "group updated: group_id=%s, user_id=%s", groupId, sess.UserId)
	return e.groupChat(ctx, sess, groupId)
}

// LeaveGroup marks the viewer as left. The last active admin cannot leave.
func (e *Engine) LeaveGroup(ctx context.Context, sess Session, groupId string) error {
	gc, err := e.groupChat(ctx, sess, groupId)
	if err != nil {
		return err
	}
	if err := CanLeave(sess.UserId, gc.Members); err != nil {
		log.CtxDebug(ctx, "leave rejected: group_id=%s, user_id=%s, error=%v", groupId, sess.UserId, err)
		return err
	}

	notice, err := e.notice(gc.Id, fmt.Sprintf("%s left the group", memberName(gc.Member(sess.UserId))))
	if err != nil {
		return storeError(ctx, "generate notice id", err, errcode.ErrInternalServer)
	}

	err = e.store.SetMemberStatus(ctx, MemberStatusChange{
		GroupId: groupId,
		UserId:  sess.UserId,
		Status:  constant.GroupMemberStatusLeft,
		Notice:  notice,
		Check: func(members []*entity.GroupMember) error {
			return CanLeave(sess.UserId, members)
		},
	})
	if err != nil {
		return storeError(ctx, "leave group", err, errcode.ErrInternalServer)
	}

	log.CtxInfo(ctx, "group left: group_id=%s, user_id=%s", groupId, sess.UserId)
	return nil
}

// RemoveMember marks targetId as removed on behalf of an admin
func (e *Engine) RemoveMember(ctx context.Context, sess Session, groupId, targetId string) error {
	gc, err := e.groupChat(ctx, sess, groupId)
	if err != nil {
		return err
	}
	if err := CanRemove(sess.UserId, targetId, gc.Members); err != nil {
		log.CtxDebug(ctx, "remove rejected: group_id=%s, actor=%s, target=%s, error=%v", groupId, sess.UserId, targetId, err)
		return err
	}

	text := fmt.Sprintf("%s removed %s", memberName(gc.Member(sess.UserId)), memberName(gc.Member(targetId)))
	notice, err := e.notice(gc.Id, text)
	if err != nil {
		return storeError(ctx, "generate notice id", err, errcode.ErrInternalServer)
	}

	err = e.store.SetMemberStatus(ctx, MemberStatusChange{
		GroupId: groupId,
		UserId:  targetId,
		Status:  constant.GroupMemberStatusRemoved,
		Notice:  notice,
		Check: func(members []*entity.GroupMember) error {
			return CanRemove(sess.UserId, targetId, members)
		},
	})
	if err != nil {
		return storeError(ctx, "remove member", err, errcode.ErrInternalServer)
	}

	log.CtxInfo(ctx, "member removed: group_id=%s, actor=%s, target=%s", groupId, sess.UserId, targetId)
	return nil
}

// AddMembers adds users as active members with one notice each and returns the ids actually added
func (e *Engine) AddMembers(ctx context.Context, sess Session, groupId string, userIds []string) ([]string, error) {
	gc, err := e.groupChat(ctx, sess, groupId)
	if err != nil {
		return nil, err
	}

	toAdd, err := CanAdd(sess.UserId, userIds, gc.Members)
	if err != nil {
		log.CtxDebug(ctx, "add rejected: group_id=%s, actor=%s, error=%v", groupId, sess.UserId, err)
		return nil, err
	}

	users, err := e.loadUsers(ctx, toAdd)
	if err != nil {
		return nil, err
	}

	actorName := memberName(gc.Member(sess.UserId))
	now := entity.NowUnixMilli()
	members := make([]*entity.GroupMember, 0, len(users))
	notices := make([]*entity.Message, 0, len(users))
	for _, u := range users {
		members = append(members, &entity.GroupMember{
			GroupId:       groupId,
			UserId:        u.Id,
			DisplayName:   userName(u),
			PhotoURL:      u.Avatar,
			RoleLevel:     constant.RoleLevelMember,
			Status:        constant.GroupMemberStatusActive,
			JoinedAt:      now,
			InviterUserId: sess.UserId,
		})

		notice, err := e.notice(gc.Id, fmt.Sprintf("%s added %s", actorName, userName(u)))
		if err != nil {
			return nil, storeError(ctx, "generate notice id", err, errcode.ErrInternalServer)
		}
		notices = append(notices, notice)
	}

	err = e.store.AddMembers(ctx, MemberAddition{
		GroupId: groupId,
		Members: members,
		Notices: notices,
		Check: func(current []*entity.GroupMember) error {
			still, err := CanAdd(sess.UserId, toAdd, current)
			if err != nil {
				return err
			}
			if len(still) != len(toAdd) {
				return errcode.ErrAlreadyGroupMember
			}
			return nil
		},
	})
	if err != nil {
		return nil, storeError(ctx, "add members", err, errcode.ErrInternalServer)
	}

	log.CtxInfo(ctx, "members added: group_id=%s, actor=%s, count=%d", groupId, sess.UserId, len(toAdd))
	return toAdd, nil
}
