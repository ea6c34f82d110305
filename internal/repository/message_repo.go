package repository

import (
	"context"
	"errors"
	"slices"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepo is the repository for message operations
type MessageRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewMessageRepo creates a new MessageRepo
func NewMessageRepo(db *gorm.DB, rdb *redis.Client) *MessageRepo {
	return &MessageRepo{db: db, rdb: rdb}
}

// Create creates a new message, stamping it with the store clock
func (r *MessageRepo) Create(ctx context.Context, tx *gorm.DB, msg *entity.Message) error {
	now := entity.NowUnixMilli()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	return tx.WithContext(ctx).Create(msg).Error
}

// GetById gets message by Id, returns nil when absent
func (r *MessageRepo) GetById(ctx context.Context, id string) (*entity.Message, error) {
	return r.GetByIdWithTx(ctx, r.db, id)
}

// GetByIdWithTx gets message by Id and locks the row when running inside a transaction
func (r *MessageRepo) GetByIdWithTx(ctx context.Context, tx *gorm.DB, id string) (*entity.Message, error) {
	q := tx.WithContext(ctx)
	if tx != r.db {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var msg entity.Message
	err := q.Where("id = ?", id).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// GetByClientMsgId gets message by sender_id and client_msg_id (for idempotency check)
func (r *MessageRepo) GetByClientMsgId(ctx context.Context, tx *gorm.DB, senderId, clientMsgId string) (*entity.Message, error) {
	var msg entity.Message
	err := tx.WithContext(ctx).
		Where("sender_id = ? AND client_msg_id = ?", senderId, clientMsgId).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// ListLatest gets the latest N messages in a conversation in ascending log order
func (r *MessageRepo) ListLatest(ctx context.Context, conversationId string, limit int) ([]*entity.Message, error) {
	if limit <= 0 {
		limit = 500
	}

	var messages []*entity.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Order("seq DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	slices.Reverse(messages)
	return messages, nil
}

// Update applies a partial update to one message
func (r *MessageRepo) Update(ctx context.Context, tx *gorm.DB, id string, updates map[string]interface{}) error {
	updates["updated_at"] = entity.NowUnixMilli()
	return tx.WithContext(ctx).
		Model(&entity.Message{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SetReactions replaces the reaction map of one message
func (r *MessageRepo) SetReactions(ctx context.Context, tx *gorm.DB, id string, reactions entity.Reactions) error {
	return tx.WithContext(ctx).
		Model(&entity.Message{}).
		Where("id = ?", id).
		Select("reactions", "updated_at").
		Updates(&entity.Message{
			Reactions: reactions,
			UpdatedAt: entity.NowUnixMilli(),
		}).Error
}

// unreadBy restricts a message query to messages userId neither sent nor read
func unreadBy(conversationId, userId string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("conversation_id = ? AND sender_id <> ?", conversationId, userId).
			Where("NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = messages.id AND mr.user_id = ?)", userId)
	}
}

// CountUnread counts messages in a conversation that userId neither sent nor read
func (r *MessageRepo) CountUnread(ctx context.Context, conversationId, userId string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Scopes(unreadBy(conversationId, userId)).
		Count(&count).Error
	return count, err
}

// FirstUnreadId returns the earliest message userId has not read, empty when none
func (r *MessageRepo) FirstUnreadId(ctx context.Context, conversationId, userId string) (string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Scopes(unreadBy(conversationId, userId)).
		Order("created_at ASC, seq ASC").
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return "", err
	}
	return ids[0], nil
}

// ListPinned returns the most recently pinned messages of a conversation, newest pin first
func (r *MessageRepo) ListPinned(ctx context.Context, conversationId string, limit int) ([]*entity.Message, error) {
	var messages []*entity.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND is_pinned = ?", conversationId, true).
		Order("pinned_at DESC, seq DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}
