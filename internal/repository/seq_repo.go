package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeqRepo is the repository for sequence operations
type SeqRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewSeqRepo creates a new SeqRepo
func NewSeqRepo(db *gorm.DB, rdb *redis.Client) *SeqRepo {
	return &SeqRepo{db: db, rdb: rdb}
}

// AllocSeq allocates a new sequence number for a conversation using Redis INCR.
// A missing counter is seeded from MySQL first so that a flushed Redis never hands out a used seq.
func (r *SeqRepo) AllocSeq(ctx context.Context, conversationId string) (int64, error) {
	key := fmt.Sprintf(constant.RedisKeySeqConversation(), conversationId)

	exists, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		maxSeq, err := r.getPersistedMaxSeq(ctx, conversationId)
		if err != nil {
			return 0, err
		}
		if err := r.rdb.SetNX(ctx, key, maxSeq, 0).Err(); err != nil {
			return 0, err
		}
	}

	return r.rdb.Incr(ctx, key).Result()
}

func (r *SeqRepo) getPersistedMaxSeq(ctx context.Context, conversationId string) (int64, error) {
	var seqConv entity.SeqConversation
	err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationId).First(&seqConv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return seqConv.MaxSeq, nil
}

// SyncSeqToMySQLWithTx syncs the Redis sequence to MySQL within a transaction
func (r *SeqRepo) SyncSeqToMySQLWithTx(ctx context.Context, tx *gorm.DB, conversationId string, maxSeq int64) error {
	seqConv := &entity.SeqConversation{
		ConversationId: conversationId,
		MaxSeq:         maxSeq,
	}

	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"max_seq": gorm.Expr("GREATEST(max_seq, ?)", maxSeq),
		}),
	}).Create(seqConv).Error
}
