package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/internal/repository"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"
)

// UserService handles user-related business logic
type UserService struct {
	userRepo *repository.UserRepo
	rdb      *redis.Client
}

// NewUserService creates a new UserService
func NewUserService(userRepo *repository.UserRepo, rdb *redis.Client) *UserService {
	return &UserService{
		userRepo: userRepo,
		rdb:      rdb,
	}
}

// GetUserInfo gets user info by Id
func (s *UserService) GetUserInfo(ctx context.Context, userId string) (*entity.UserInfo, error) {
	user, err := s.userRepo.GetById(ctx, userId)
	if err != nil {
		log.CtxDebug(ctx, "get user failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrUserNotFound
	}
	info := user.ToUserInfo()
	info.IsOnline = s.online(ctx, []string{userId})[userId]
	return info, nil
}

// GetUserInfos gets multiple users info by Ids
func (s *UserService) GetUserInfos(ctx context.Context, userIds []string) ([]*entity.UserInfo, error) {
	users, err := s.userRepo.GetByIds(ctx, userIds)
	if err != nil {
		log.CtxError(ctx, "get users failed: %v", err)
		return nil, errcode.ErrInternalServer
	}

	online := s.online(ctx, userIds)
	infos := make([]*entity.UserInfo, 0, len(users))
	for _, user := range users {
		info := user.ToUserInfo()
		info.IsOnline = online[user.Id]
		infos = append(infos, info)
	}
	return infos, nil
}

// UpdateUserRequest represents user update request
type UpdateUserRequest struct {
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Extra    string `json:"extra,omitempty"`
}

// UpdateUserInfo updates user info. Group member records keep the name and photo copied at join time.
func (s *UserService) UpdateUserInfo(ctx context.Context, userId string, req *UpdateUserRequest) (*entity.UserInfo, error) {
	exists, err := s.userRepo.Exists(ctx, userId)
	if err != nil {
		log.CtxError(ctx, "check user exists failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	if !exists {
		return nil, errcode.ErrUserNotFound
	}

	updates := make(map[string]interface{})
	if nickname := strings.TrimSpace(req.Nickname); nickname != "" {
		updates["nickname"] = nickname
	}
	if req.Avatar != "" {
		updates["avatar"] = req.Avatar
	}
	if req.Extra != "" {
		updates["extra"] = req.Extra
	}

	if len(updates) > 0 {
		if err := s.userRepo.Update(ctx, userId, updates); err != nil {
			log.CtxError(ctx, "update user failed: %v", err)
			return nil, errcode.ErrInternalServer
		}
	}

	return s.GetUserInfo(ctx, userId)
}

// SearchUsers finds users by nickname prefix, used to pick a peer or new group members
func (s *UserService) SearchUsers(ctx context.Context, viewerId, keyword string, limit int) ([]*entity.UserInfo, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []*entity.UserInfo{}, nil
	}

	users, err := s.userRepo.SearchByNickname(ctx, keyword, viewerId, limit)
	if err != nil {
		log.CtxError(ctx, "search users failed: keyword=%s, error=%v", keyword, err)
		return nil, errcode.ErrInternalServer
	}

	infos := make([]*entity.UserInfo, 0, len(users))
	for _, user := range users {
		infos = append(infos, user.ToUserInfo())
	}
	return infos, nil
}

// UserOnlineStatus is the presence of one user
type UserOnlineStatus struct {
	UserId string `json:"user_id"`
	Status int    `json:"status"`
}

// GetUsersOnlineStatus reports presence as maintained by the websocket gateway
func (s *UserService) GetUsersOnlineStatus(ctx context.Context, userIds []string) []*UserOnlineStatus {
	online := s.online(ctx, userIds)
	result := make([]*UserOnlineStatus, 0, len(userIds))
	for _, id := range userIds {
		status := constant.StatusOffline
		if online[id] {
			status = constant.StatusOnline
		}
		result = append(result, &UserOnlineStatus{UserId: id, Status: status})
	}
	return result
}

// online reads the presence keys in one pipeline. Presence is best effort: redis failures read as offline.
func (s *UserService) online(ctx context.Context, userIds []string) map[string]bool {
	result := make(map[string]bool, len(userIds))
	if s.rdb == nil || len(userIds) == 0 {
		return result
	}

	pipe := s.rdb.Pipeline()
	cmds := make(map[string]*redis.IntCmd, len(userIds))
	for _, id := range userIds {
		cmds[id] = pipe.Exists(ctx, fmt.Sprintf(constant.RedisKeyOnline(), id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.CtxWarn(ctx, "read online status failed: %v", err)
		return result
	}
	for id, cmd := range cmds {
		result[id] = cmd.Val() > 0
	}
	return result
}
