package docstore

import (
	"context"
	"errors"

	"github.com/mbeoliero/chatsync/internal/convsync"
	"github.com/mbeoliero/chatsync/internal/entity"
	"github.com/mbeoliero/chatsync/internal/feed"
	"github.com/mbeoliero/chatsync/pkg/constant"
	"github.com/mbeoliero/chatsync/pkg/errcode"
	"github.com/mbeoliero/kit/log"
	"gorm.io/gorm"
)

// appendInTx stores a message inside tx: allocates its seq, stamps it, records the sender's own read and
// refreshes the conversation summary
func (s *Store) appendInTx(ctx context.Context, tx *gorm.DB, msg *entity.Message) error {
	seq, err := s.repos.Seq.AllocSeq(ctx, msg.ConversationId)
	if err != nil {
		log.CtxError(ctx, "alloc seq failed: conversation_id=%s, error=%v", msg.ConversationId, err)
		return errcode.ErrSeqAllocFailed.Wrap(err)
	}
	msg.Seq = seq
	if msg.ClientMsgId == "" {
		msg.ClientMsgId = msg.Id
	}

	if err := s.repos.Message.Create(ctx, tx, msg); err != nil {
		return err
	}
	if !msg.IsSystem() {
		if err := s.repos.Read.MarkRead(ctx, tx, msg.ConversationId, msg.SenderId, []string{msg.Id}); err != nil {
			return err
		}
		msg.ReadBy = []string{msg.SenderId}
	}
	if err := s.repos.Conversation.UpdateLastMessage(ctx, tx, msg.ConversationId, msg.Summary()); err != nil {
		return err
	}
	return s.repos.Seq.SyncSeqToMySQLWithTx(ctx, tx, msg.ConversationId, seq)
}

// AppendMessage implements convsync.DocumentStore. Messages without a client_msg_id take their own id, so the
// unique (sender_id, client_msg_id) index only ever rejects a retried send.
func (s *Store) AppendMessage(ctx context.Context, msg *entity.Message) (*entity.Message, error) {
	if msg.ClientMsgId != "" {
		if existing, err := s.byClientMsgId(ctx, msg); err != nil || existing != nil {
			return existing, err
		}
	}

	err := s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		return s.appendInTx(ctx, tx, msg)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent retry of the same send committed first
		return s.byClientMsgId(ctx, msg)
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, msg.ConversationId, feed.KindMessages, feed.KindChat)
	return msg, nil
}

// byClientMsgId returns the stored copy of a retried send, nil when the send is new
func (s *Store) byClientMsgId(ctx context.Context, msg *entity.Message) (*entity.Message, error) {
	existing, err := s.repos.Message.GetByClientMsgId(ctx, s.repos.DB, msg.SenderId, msg.ClientMsgId)
	if err != nil || existing == nil {
		return nil, err
	}
	log.CtxDebug(ctx, "duplicate message ignored: sender_id=%s, client_msg_id=%s", msg.SenderId, msg.ClientMsgId)
	return s.GetMessage(ctx, existing.Id)
}

// updateMessage applies updates to a locked message and refreshes the summary when it is the latest one
func (s *Store) updateMessage(ctx context.Context, messageId string, updates map[string]interface{}) (*entity.Message, error) {
	var conversationId string
	err := s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		msg, err := s.repos.Message.GetByIdWithTx(ctx, tx, messageId)
		if err != nil {
			return err
		}
		if msg == nil {
			return errcode.ErrMessageNotFound
		}
		conversationId = msg.ConversationId

		if err := s.repos.Message.Update(ctx, tx, messageId, updates); err != nil {
			return err
		}
		if text, ok := updates["text"].(string); ok {
			msg.Text = text
			return s.repos.Conversation.RefreshLastMessage(ctx, tx, conversationId, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, conversationId, feed.KindMessages, feed.KindChat)
	return s.GetMessage(ctx, messageId)
}

// EditMessageText implements convsync.DocumentStore
func (s *Store) EditMessageText(ctx context.Context, messageId, text string) (*entity.Message, error) {
	return s.updateMessage(ctx, messageId, map[string]interface{}{
		"text":      text,
		"is_edited": true,
	})
}

// TombstoneMessage implements convsync.DocumentStore. The original text is overwritten, not kept.
func (s *Store) TombstoneMessage(ctx context.Context, messageId string) (*entity.Message, error) {
	return s.updateMessage(ctx, messageId, map[string]interface{}{
		"text":       constant.DeletedMessageText,
		"is_deleted": true,
		"deleted_at": entity.NowUnixMilli(),
	})
}

// flagMessage writes a flag update without touching the summary
func (s *Store) flagMessage(ctx context.Context, messageId string, write func(tx *gorm.DB) error) error {
	msg, err := s.repos.Message.GetById(ctx, messageId)
	if err != nil {
		return err
	}
	if msg == nil {
		return errcode.ErrMessageNotFound
	}

	if err := write(s.repos.DB); err != nil {
		return err
	}
	s.publish(ctx, msg.ConversationId, feed.KindMessages)
	return nil
}

// SetReactions implements convsync.DocumentStore. The whole map is replaced, the last writer wins.
func (s *Store) SetReactions(ctx context.Context, messageId string, reactions entity.Reactions) error {
	return s.flagMessage(ctx, messageId, func(tx *gorm.DB) error {
		return s.repos.Message.SetReactions(ctx, tx, messageId, reactions)
	})
}

// SetStarred implements convsync.DocumentStore
func (s *Store) SetStarred(ctx context.Context, messageId string, starred bool) error {
	return s.flagMessage(ctx, messageId, func(tx *gorm.DB) error {
		return s.repos.Message.Update(ctx, tx, messageId, map[string]interface{}{"is_starred": starred})
	})
}

// SetPinned implements convsync.DocumentStore
func (s *Store) SetPinned(ctx context.Context, messageId string, pinned bool, pinnedAt int64) error {
	return s.flagMessage(ctx, messageId, func(tx *gorm.DB) error {
		return s.repos.Message.Update(ctx, tx, messageId, map[string]interface{}{
			"is_pinned": pinned,
			"pinned_at": pinnedAt,
		})
	})
}

// MarkRead implements convsync.DocumentStore with one statement for the whole batch
func (s *Store) MarkRead(ctx context.Context, conversationId, userId string, upToSeq int64) (int, error) {
	var marked int64
	err := s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		n, err := s.repos.Read.MarkReadUpTo(ctx, tx, conversationId, userId, upToSeq)
		marked = n
		return err
	})
	if err != nil {
		return 0, err
	}

	if marked > 0 {
		s.publish(ctx, conversationId, feed.KindMessages)
	}
	return int(marked), nil
}

// CreateGroup implements convsync.DocumentStore
func (s *Store) CreateGroup(ctx context.Context, group *entity.Group, members []*entity.GroupMember, notice *entity.Message) error {
	conv := entity.NewGroupConversation(group.Id)

	err := s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.repos.Group.Create(ctx, tx, group); err != nil {
			return err
		}
		if err := s.repos.Group.AddMembers(ctx, tx, members); err != nil {
			return err
		}
		if err := s.repos.Conversation.Ensure(ctx, tx, conv); err != nil {
			return err
		}
		if notice != nil {
			return s.appendInTx(ctx, tx, notice)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, conv.Id, feed.KindMessages, feed.KindChat)
	return nil
}

// UpdateGroup implements convsync.DocumentStore
func (s *Store) UpdateGroup(ctx context.Context, groupId string, update convsync.GroupUpdate, notice *entity.Message) error {
	updates := make(map[string]interface{})
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.PhotoURL != nil {
		updates["photo_url"] = *update.PhotoURL
	}

	conversationId := entity.GenGroupConversationId(groupId)
	err := s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := s.repos.Group.Update(ctx, tx, groupId, updates); err != nil {
				return err
			}
		}
		if notice != nil {
			return s.appendInTx(ctx, tx, notice)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, conversationId, feed.KindMessages, feed.KindChat)
	return nil
}

// lockedMembers reads the member rows of a group for update and runs the membership check on them
func (s *Store) lockedMembers(ctx context.Context, tx *gorm.DB, groupId string, check convsync.MembershipCheck) error {
	members, err := s.repos.Group.GetMembersWithTx(ctx, tx, groupId)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return errcode.ErrGroupNotFound
	}
	if check != nil {
		return check(members)
	}
	return nil
}

// SetMemberStatus implements convsync.DocumentStore
func (s *Store) SetMemberStatus(ctx context.Context, change convsync.MemberStatusChange) error {
	err := s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.lockedMembers(ctx, tx, change.GroupId, change.Check); err != nil {
			return err
		}
		if err := s.repos.Group.UpdateMemberStatus(ctx, tx, change.GroupId, change.UserId, change.Status); err != nil {
			return err
		}
		if change.Notice != nil {
			return s.appendInTx(ctx, tx, change.Notice)
		}
		return nil
	})
	// the cache may have been refilled with pre-commit rows while the transaction was open
	s.repos.Group.InvalidateMemberCache(ctx, change.GroupId)
	if err != nil {
		return err
	}

	s.publish(ctx, entity.GenGroupConversationId(change.GroupId), feed.KindMessages, feed.KindChat)
	return nil
}

// AddMembers implements convsync.DocumentStore
func (s *Store) AddMembers(ctx context.Context, addition convsync.MemberAddition) error {
	err := s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.lockedMembers(ctx, tx, addition.GroupId, addition.Check); err != nil {
			return err
		}
		if err := s.repos.Group.AddMembers(ctx, tx, addition.Members); err != nil {
			return err
		}
		for _, notice := range addition.Notices {
			if err := s.appendInTx(ctx, tx, notice); err != nil {
				return err
			}
		}
		return nil
	})
	s.repos.Group.InvalidateMemberCache(ctx, addition.GroupId)
	if err != nil {
		return err
	}

	s.publish(ctx, entity.GenGroupConversationId(addition.GroupId), feed.KindMessages, feed.KindChat)
	return nil
}
