package docstore

import (
	"context"
	"errors"

	"github.com/mbeoliero/chatsync/internal/config"
	"github.com/mbeoliero/chatsync/internal/convsync"
	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/internal/feed"
	"github.com/mbeoliero/chatsync/internal/repository"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/kit/log"
	"gorm.io/gorm"
)

// Store implements convsync.DocumentStore on MySQL, with the redis change feed announcing every committed write
type Store struct {
	repos *repository.Repositories
	hub   *feed.Hub
	cfg   config.FeedConfig
}

var _ convsync.DocumentStore = (*Store)(nil)

// New creates a Store
func New(repos *repository.Repositories, hub *feed.Hub, cfg config.FeedConfig) *Store {
	return &Store{repos: repos, hub: hub, cfg: cfg}
}

// publish announces a committed write. The write already succeeded, so a failure only delays open views.
func (s *Store) publish(ctx context.Context, conversationId string, kinds ...feed.Kind) {
	if err := s.hub.Publish(ctx, conversationId, kinds...); err != nil {
		log.CtxWarn(ctx, "publish change failed: conversation_id=%s, error=%v", conversationId, err)
	}
}

// GetChat loads a conversation as its Direct or Group variant
func (s *Store) GetChat(ctx context.Context, conversationId string) (entity.Chat, error) {
	conv, err := s.repos.Conversation.GetById(ctx, conversationId)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, errcode.ErrConvNotFound
	}

	switch conv.ConversationType {
	case constant.ConversationTypeDirect:
		return conv.ToDirectChat(), nil
	case constant.ConversationTypeGroup:
		group, err := s.repos.Group.GetById(ctx, conv.GroupId)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errcode.ErrConvNotFound
			}
			return nil, err
		}
		members, err := s.repos.Group.GetMembers(ctx, conv.GroupId)
		if err != nil {
			return nil, err
		}
		return conv.ToGroupChat(group, members), nil
	default:
		return nil, errcode.ErrConvNotFound
	}
}

// GetMessage loads one message with its read-by set
func (s *Store) GetMessage(ctx context.Context, messageId string) (*entity.Message, error) {
	msg, err := s.repos.Message.GetById(ctx, messageId)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, errcode.ErrMessageNotFound
	}
	if err := s.repos.Read.Attach(ctx, []*entity.Message{msg}); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages loads the latest messages of a conversation with their read-by sets
func (s *Store) ListMessages(ctx context.Context, conversationId string, limit int) ([]*entity.Message, error) {
	msgs, err := s.repos.Message.ListLatest(ctx, conversationId, limit)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Read.Attach(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// GetUser loads a user
func (s *Store) GetUser(ctx context.Context, userId string) (*entity.User, error) {
	user, err := s.repos.User.GetById(ctx, userId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetUsers loads the known users among userIds
func (s *Store) GetUsers(ctx context.Context, userIds []string) ([]*entity.User, error) {
	return s.repos.User.GetByIds(ctx, userIds)
}

// SummarizeReads implements convsync.DocumentStore over the whole conversation, not the snapshot window
func (s *Store) SummarizeReads(ctx context.Context, conversationId, viewerId string, pinnedLimit int) (*convsync.ReadSummary, error) {
	count, err := s.repos.Message.CountUnread(ctx, conversationId, viewerId)
	if err != nil {
		return nil, err
	}

	sum := &convsync.ReadSummary{UnreadCount: int(count)}
	if count > 0 {
		if sum.FirstUnreadId, err = s.repos.Message.FirstUnreadId(ctx, conversationId, viewerId); err != nil {
			return nil, err
		}
	}

	if sum.Pinned, err = s.repos.Message.ListPinned(ctx, conversationId, pinnedLimit); err != nil {
		return nil, err
	}
	if err := s.repos.Read.Attach(ctx, sum.Pinned); err != nil {
		return nil, err
	}
	return sum, nil
}

// SubscribeMessages implements convsync.DocumentStore
func (s *Store) SubscribeMessages(ctx context.Context, conversationId string) (convsync.Stream[[]*entity.Message], error) {
	l := s.hub.Listen(conversationId, feed.KindMessages)

	load := func(ctx context.Context) ([]*entity.Message, error) {
		return s.ListMessages(ctx, conversationId, s.cfg.SnapshotLimit)
	}
	initial, err := load(ctx)
	if err != nil {
		l.Close()
		return nil, err
	}
	return watch(ctx, l, initial, s.cfg.ReloadDebounce, load), nil
}

// SubscribeChat implements convsync.DocumentStore
func (s *Store) SubscribeChat(ctx context.Context, conversationId string) (convsync.Stream[entity.Chat], error) {
	l := s.hub.Listen(conversationId, feed.KindChat)

	load := func(ctx context.Context) (entity.Chat, error) {
		return s.GetChat(ctx, conversationId)
	}
	initial, err := load(ctx)
	if err != nil {
		l.Close()
		return nil, err
	}
	return watch(ctx, l, initial, s.cfg.ReloadDebounce, load), nil
}

// EnsureDirect creates the shared record of a direct conversation on first use
func (s *Store) EnsureDirect(ctx context.Context, userA, userB string) (*entity.DirectChat, error) {
	conv := entity.NewDirectConversation(userA, userB)
	if err := s.repos.Conversation.Ensure(ctx, s.repos.DB, conv); err != nil {
		return nil, err
	}

	stored, err := s.repos.Conversation.GetById(ctx, conv.Id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errcode.ErrConvNotFound
	}
	return stored.ToDirectChat(), nil
}
