package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const memberCacheTTL = 10 * time.Minute

// GroupRepo is the repository for group operations
type GroupRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewGroupRepo creates a new GroupRepo
func NewGroupRepo(db *gorm.DB, rdb *redis.Client) *GroupRepo {
	return &GroupRepo{db: db, rdb: rdb}
}

// Create creates a new group
func (r *GroupRepo) Create(ctx context.Context, tx *gorm.DB, group *entity.Group) error {
	now := entity.NowUnixMilli()
	group.CreatedAt = now
	group.UpdatedAt = now
	return tx.WithContext(ctx).Create(group).Error
}

// GetById gets group by Id
func (r *GroupRepo) GetById(ctx context.Context, id string) (*entity.Group, error) {
	var group entity.Group
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// Update updates group details
func (r *GroupRepo) Update(ctx context.Context, tx *gorm.DB, id string, updates map[string]interface{}) error {
	updates["updated_at"] = entity.NowUnixMilli()
	return tx.WithContext(ctx).Model(&entity.Group{}).Where("id = ?", id).Updates(updates).Error
}

// AddMembers inserts new membership records. Existing (group_id, user_id) pairs are left untouched.
func (r *GroupRepo) AddMembers(ctx context.Context, tx *gorm.DB, members []*entity.GroupMember) error {
	if len(members) == 0 {
		return nil
	}

	now := entity.NowUnixMilli()
	for _, m := range members {
		m.CreatedAt = now
		m.UpdatedAt = now
		if m.JoinedAt == 0 {
			m.JoinedAt = now
		}
	}

	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&members).Error
	if err != nil {
		return err
	}

	r.InvalidateMemberCache(ctx, members[0].GroupId)
	return nil
}

// GetMembers returns every membership record of a group regardless of status, read through the redis cache
func (r *GroupRepo) GetMembers(ctx context.Context, groupId string) ([]*entity.GroupMember, error) {
	key := fmt.Sprintf(constant.RedisKeyGroupMembers(), groupId)

	cached, err := r.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var members []*entity.GroupMember
		if jsonErr := json.Unmarshal(cached, &members); jsonErr == nil {
			return members, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		log.CtxWarn(ctx, "read member cache failed: group_id=%s, error=%v", groupId, err)
	}

	members, err := r.GetMembersWithTx(ctx, r.db, groupId)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(members); err == nil {
		r.rdb.Set(ctx, key, data, memberCacheTTL)
	}
	return members, nil
}

// GetMembersWithTx reads memberships inside a transaction, locking the rows
func (r *GroupRepo) GetMembersWithTx(ctx context.Context, tx *gorm.DB, groupId string) ([]*entity.GroupMember, error) {
	q := tx.WithContext(ctx)
	if tx != r.db {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var members []*entity.GroupMember
	err := q.Where("group_id = ?", groupId).
		Order("joined_at ASC, id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// UpdateMemberStatus updates member status
func (r *GroupRepo) UpdateMemberStatus(ctx context.Context, tx *gorm.DB, groupId, userId string, status int32) error {
	err := tx.WithContext(ctx).
		Model(&entity.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupId, userId).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": entity.NowUnixMilli(),
		}).Error
	if err != nil {
		return err
	}

	r.InvalidateMemberCache(ctx, groupId)
	return nil
}

// GetUserGroupIds returns the groups where user is an active member
func (r *GroupRepo) GetUserGroupIds(ctx context.Context, userId string) ([]string, error) {
	var groupIds []string
	err := r.db.WithContext(ctx).
		Model(&entity.GroupMember{}).
		Where("user_id = ? AND status = ?", userId, constant.GroupMemberStatusActive).
		Pluck("group_id", &groupIds).Error
	if err != nil {
		return nil, err
	}
	return groupIds, nil
}

// GetByIds gets groups by Ids
func (r *GroupRepo) GetByIds(ctx context.Context, ids []string) ([]*entity.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var groups []*entity.Group
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// InvalidateMemberCache drops the cached member list
func (r *GroupRepo) InvalidateMemberCache(ctx context.Context, groupId string) {
	key := fmt.Sprintf(constant.RedisKeyGroupMembers(), groupId)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		log.CtxWarn(ctx, "invalidate member cache failed: group_id=%s, error=%v", groupId, err)
	}
}
