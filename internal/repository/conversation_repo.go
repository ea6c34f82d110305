package repository

import (
	"context"
	"errors"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepo is the repository for conversation operations
type ConversationRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewConversationRepo creates a new ConversationRepo
func NewConversationRepo(db *gorm.DB, rdb *redis.Client) *ConversationRepo {
	return &ConversationRepo{db: db, rdb: rdb}
}

// Ensure creates the conversation record if it does not exist yet
func (r *ConversationRepo) Ensure(ctx context.Context, tx *gorm.DB, conv *entity.Conversation) error {
	now := entity.NowUnixMilli()
	if conv.CreatedAt == 0 {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now

	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(conv).Error
}

// GetById gets conversation by Id, returns nil when absent
func (r *ConversationRepo) GetById(ctx context.Context, id string) (*entity.Conversation, error) {
	return r.GetByIdWithTx(ctx, r.db, id)
}

// GetByIdWithTx gets conversation by Id using the given handle
func (r *ConversationRepo) GetByIdWithTx(ctx context.Context, tx *gorm.DB, id string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := tx.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// UpdateLastMessage stores the summary of the newest message
func (r *ConversationRepo) UpdateLastMessage(ctx context.Context, tx *gorm.DB, id string, last *entity.LastMessage) error {
	return tx.WithContext(ctx).
		Model(&entity.Conversation{}).
		Where("id = ?", id).
		Select("last_message", "last_message_at", "updated_at").
		Updates(&entity.Conversation{
			LastMessage:   last,
			LastMessageAt: last.CreatedAt,
			UpdatedAt:     entity.NowUnixMilli(),
		}).Error
}

// RefreshLastMessage rewrites the summary when it points at the given message
func (r *ConversationRepo) RefreshLastMessage(ctx context.Context, tx *gorm.DB, id string, msg *entity.Message) error {
	conv, err := r.GetByIdWithTx(ctx, tx, id)
	if err != nil || conv == nil {
		return err
	}
	if conv.LastMessage == nil || conv.LastMessage.MessageId != msg.Id {
		return nil
	}
	return r.UpdateLastMessage(ctx, tx, id, msg.Summary())
}

// ListForUser returns the direct chats the user takes part in and the given group conversations,
// most recently active first
func (r *ConversationRepo) ListForUser(ctx context.Context, userId string, groupIds []string) ([]*entity.Conversation, error) {
	q := r.db.WithContext(ctx).
		Where("conversation_type = ? AND (user_a = ? OR user_b = ?)", constant.ConversationTypeDirect, userId, userId)
	if len(groupIds) > 0 {
		q = q.Or("conversation_type = ? AND group_id IN ?", constant.ConversationTypeGroup, groupIds)
	}

	var convs []*entity.Conversation
	err := q.Order("last_message_at DESC, id ASC").Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}
