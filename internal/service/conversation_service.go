package service

import (
	"context"
	"sort"

	"github.com/mbeoliero/chatsync/internal/convsync"
	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/internal/repository"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/kit/log"
	"golang.org/x/sync/errgroup"
)

// unreadConcurrency bounds the parallel unread counts of one list request
const unreadConcurrency = 8

// ConversationService lists conversations and opens them through the engine
type ConversationService struct {
	repos  *repository.Repositories
	engine *convsync.Engine
}

// NewConversationService creates a new ConversationService
func NewConversationService(repos *repository.Repositories, engine *convsync.Engine) *ConversationService {
	return &ConversationService{
		repos:  repos,
		engine: engine,
	}
}

// GetUserConversations lists the direct conversations of a user and the groups it is an active member of,
// most recent activity first
func (s *ConversationService) GetUserConversations(ctx context.Context, userId string) ([]*entity.ConversationInfo, error) {
	groupIds, err := s.repos.Group.GetUserGroupIds(ctx, userId)
	if err != nil {
		log.CtxError(ctx, "get user groups failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}

	convs, err := s.repos.Conversation.ListForUser(ctx, userId, groupIds)
	if err != nil {
		log.CtxError(ctx, "list conversations failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}

	groups, err := s.repos.Group.GetByIds(ctx, groupIds)
	if err != nil {
		log.CtxError(ctx, "get groups failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}
	groupById := make(map[string]*entity.Group, len(groups))
	for _, g := range groups {
		groupById[g.Id] = g
	}

	var peerIds []string
	for _, conv := range convs {
		if conv.ConversationType == constant.ConversationTypeDirect {
			peerIds = append(peerIds, conv.ToDirectChat().Peer(userId))
		}
	}
	peers, err := s.repos.User.GetByIds(ctx, peerIds)
	if err != nil {
		log.CtxError(ctx, "get peers failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}
	peerById := make(map[string]*entity.User, len(peers))
	for _, p := range peers {
		peerById[p.Id] = p
	}

	result := make([]*entity.ConversationInfo, len(convs))
	for i, conv := range convs {
		var chat entity.Chat
		switch conv.ConversationType {
		case constant.ConversationTypeGroup:
			chat = conv.ToGroupChat(groupById[conv.GroupId], nil)
		default:
			chat = conv.ToDirectChat()
		}
		info := entity.ToConversationInfo(chat, userId, 0)
		if peer, ok := peerById[info.PeerUserId]; ok {
			info.Name = peer.Nickname
			info.PhotoURL = peer.Avatar
		}
		result[i] = info
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(unreadConcurrency)
	for _, info := range result {
		eg.Go(func() error {
			n, err := s.repos.Message.CountUnread(egCtx, info.ConversationId, userId)
			if err != nil {
				return err
			}
			info.UnreadCount = int(n)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.CtxError(ctx, "count unread failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}

	sort.SliceStable(result, func(i, j int) bool {
		return lastActivity(result[i]) > lastActivity(result[j])
	})
	return result, nil
}

func lastActivity(info *entity.ConversationInfo) int64 {
	if info.LastMessage == nil {
		return 0
	}
	return info.LastMessage.CreatedAt
}

// OpenDirect returns the direct conversation with peerId, creating it on first use
func (s *ConversationService) OpenDirect(ctx context.Context, sess convsync.Session, peerId string) (*entity.DirectChat, error) {
	return s.engine.OpenDirect(ctx, sess, peerId)
}

// Snapshot returns the projected state of one conversation without marking anything read
func (s *ConversationService) Snapshot(ctx context.Context, sess convsync.Session, conversationId string) (*convsync.ViewState, error) {
	return s.engine.Snapshot(ctx, sess, conversationId)
}
