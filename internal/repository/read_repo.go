package repository

import (
	"context"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReadRepo stores the read-by sets of messages
type ReadRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewReadRepo creates a new ReadRepo
func NewReadRepo(db *gorm.DB, rdb *redis.Client) *ReadRepo {
	return &ReadRepo{db: db, rdb: rdb}
}

// MarkRead adds userId to the read-by set of every message in one batch.
// Already-read entries are kept as they are.
func (r *ReadRepo) MarkRead(ctx context.Context, tx *gorm.DB, conversationId, userId string, messageIds []string) error {
	if len(messageIds) == 0 {
		return nil
	}

	now := entity.NowUnixMilli()
	reads := make([]*entity.MessageRead, 0, len(messageIds))
	for _, id := range messageIds {
		reads = append(reads, &entity.MessageRead{
			MessageId:      id,
			UserId:         userId,
			ConversationId: conversationId,
			ReadAt:         now,
		})
	}

	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).CreateInBatches(reads, 200).Error
}

// MarkReadUpTo adds userId to the read-by set of every message of the conversation up to upToSeq that userId
// neither sent nor read, in a single INSERT ... SELECT, and returns how many rows it added
func (r *ReadRepo) MarkReadUpTo(ctx context.Context, tx *gorm.DB, conversationId, userId string, upToSeq int64) (int64, error) {
	res := tx.WithContext(ctx).Exec(
		`INSERT IGNORE INTO message_reads (message_id, user_id, conversation_id, read_at)
		SELECT m.id, ?, m.conversation_id, ? FROM messages m
		WHERE m.conversation_id = ? AND m.seq <= ? AND m.sender_id <> ?
		AND NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = m.id AND mr.user_id = ?)`,
		userId, entity.NowUnixMilli(), conversationId, upToSeq, userId, userId,
	)
	return res.RowsAffected, res.Error
}

// LoadReadBy returns the readers of each message, in the order they read it
func (r *ReadRepo) LoadReadBy(ctx context.Context, messageIds []string) (map[string][]string, error) {
	out := make(map[string][]string, len(messageIds))
	if len(messageIds) == 0 {
		return out, nil
	}

	var reads []*entity.MessageRead
	err := r.db.WithContext(ctx).
		Where("message_id IN ?", messageIds).
		Order("read_at ASC, user_id ASC").
		Find(&reads).Error
	if err != nil {
		return nil, err
	}

	for _, rd := range reads {
		out[rd.MessageId] = append(out[rd.MessageId], rd.UserId)
	}
	return out, nil
}

// Attach fills ReadBy on each message from the read table
func (r *ReadRepo) Attach(ctx context.Context, messages []*entity.Message) error {
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.Id)
	}

	readBy, err := r.LoadReadBy(ctx, ids)
	if err != nil {
		return err
	}

	for _, m := range messages {
		m.ReadBy = readBy[m.Id]
	}
	return nil
}
