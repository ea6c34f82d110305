package convsync

import (
	"context"

	"github.com/mbeoliero/chatsync/internal/entity"
)

// MembershipCheck validates a membership change against the current member list.
// Stores run it again on the locked rows right before writing.
type MembershipCheck func(members []*entity.GroupMember) error

// MemberStatusChange moves one member out of the active state
type MemberStatusChange struct {
	GroupId string
	UserId  string
	Status  int32
	Notice  *entity.Message
	Check   MembershipCheck
}

// MemberAddition appends new active members with one notice each
type MemberAddition struct {
	GroupId string
	Members []*entity.GroupMember
	Notices []*entity.Message
	Check   MembershipCheck
}

// GroupUpdate carries the editable group details, nil fields are left unchanged
type GroupUpdate struct {
	Name        *string
	Description *string
	PhotoURL    *string
}

// ReadSummary is a viewer's read state over the whole message log of a conversation
type ReadSummary struct {
	UnreadCount   int
	FirstUnreadId string
	// Pinned holds the most recently pinned messages, newest pin first
	Pinned []*entity.Message
}

// DocumentStore is the durable, change-notifying backend the engine runs on.
// Missing records are reported with errcode sentinels (ErrConvNotFound, ErrMessageNotFound, ErrUserNotFound,
// ErrGroupNotFound).
type DocumentStore interface {
	GetChat(ctx context.Context, conversationId string) (entity.Chat, error)
	GetMessage(ctx context.Context, messageId string) (*entity.Message, error)
	// ListMessages returns the latest limit messages in ascending log order with read-by sets loaded
	ListMessages(ctx context.Context, conversationId string, limit int) ([]*entity.Message, error)
	GetUser(ctx context.Context, userId string) (*entity.User, error)
	GetUsers(ctx context.Context, userIds []string) ([]*entity.User, error)

	// SummarizeReads computes unread state and the top pinnedLimit pins over every message of the conversation,
	// including those older than the snapshot window
	SummarizeReads(ctx context.Context, conversationId, viewerId string, pinnedLimit int) (*ReadSummary, error)

	// SubscribeMessages streams the latest window of the message log, starting with the current one
	SubscribeMessages(ctx context.Context, conversationId string) (Stream[[]*entity.Message], error)
	// SubscribeChat streams the conversation record. It fails with ErrConvNotFound once the record is gone.
	SubscribeChat(ctx context.Context, conversationId string) (Stream[entity.Chat], error)

	EnsureDirect(ctx context.Context, userA, userB string) (*entity.DirectChat, error)
	// AppendMessage stamps seq and created_at, adds the sender to read_by and refreshes the last message summary.
	// A repeated client_msg_id from the same sender returns the stored message.
	AppendMessage(ctx context.Context, msg *entity.Message) (*entity.Message, error)
	EditMessageText(ctx context.Context, messageId, text string) (*entity.Message, error)
	TombstoneMessage(ctx context.Context, messageId string) (*entity.Message, error)
	SetReactions(ctx context.Context, messageId string, reactions entity.Reactions) error
	SetStarred(ctx context.Context, messageId string, starred bool) error
	SetPinned(ctx context.Context, messageId string, pinned bool, pinnedAt int64) error
	// MarkRead adds userId to the read-by set of every message up to upToSeq that userId neither sent nor read,
	// in one atomic batch, and returns how many messages it covered
	MarkRead(ctx context.Context, conversationId, userId string, upToSeq int64) (int, error)

	CreateGroup(ctx context.Context, group *entity.Group, members []*entity.GroupMember, notice *entity.Message) error
	UpdateGroup(ctx context.Context, groupId string, update GroupUpdate, notice *entity.Message) error
	SetMemberStatus(ctx context.Context, change MemberStatusChange) error
	AddMembers(ctx context.Context, addition MemberAddition) error
}
