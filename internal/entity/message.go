package entity

import (
	"slices"

	"github.com/mbeoliero/chatsync/pkg/constant"
)

// QuotedMessage is a point-in-time copy of the message being replied to
type QuotedMessage struct {
	Id         string `json:"id"`
	Text       string `json:"text"`
	SenderName string `json:"sender_name"`
}

// Reactions maps a reaction symbol to the ordered set of reactor Ids
type Reactions map[string][]string

// Toggle returns a copy with userId flipped in the symbol's set. Empty sets are dropped.
func (r Reactions) Toggle(symbol, userId string) Reactions {
	out := make(Reactions, len(r)+1)
	for k, v := range r {
		out[k] = slices.Clone(v)
	}

	users := out[symbol]
	if idx := slices.Index(users, userId); idx >= 0 {
		users = slices.Delete(users, idx, idx+1)
	} else {
		users = append(users, userId)
	}

	if len(users) == 0 {
		delete(out, symbol)
	} else {
		out[symbol] = users
	}
	return out
}

// Has reports whether userId reacted with symbol
func (r Reactions) Has(symbol, userId string) bool {
	return slices.Contains(r[symbol], userId)
}

// Message is one record of a conversation's log. It is mutated in place and never removed.
type Message struct {
	Id             string         `json:"id" gorm:"column:id;primaryKey"`
	ConversationId string         `json:"conversation_id" gorm:"column:conversation_id;index:idx_conv_seq,priority:1"`
	Seq            int64          `json:"seq" gorm:"column:seq;index:idx_conv_seq,priority:2"`
	ClientMsgId    string         `json:"client_msg_id" gorm:"column:client_msg_id;size:128;uniqueIndex:idx_sender_client,priority:2"`
	SenderId       string         `json:"sender_id" gorm:"column:sender_id;size:128;uniqueIndex:idx_sender_client,priority:1"`
	SenderName     string         `json:"sender_name" gorm:"column:sender_name"`
	SenderPhoto    string         `json:"sender_photo" gorm:"column:sender_photo"`
	MsgType        int32          `json:"msg_type" gorm:"column:msg_type"`
	Text           string         `json:"text" gorm:"column:text;type:text"`
	Attachments    []string       `json:"attachments,omitempty" gorm:"column:attachments;serializer:json"`
	Quoted         *QuotedMessage `json:"quoted,omitempty" gorm:"column:quoted;serializer:json"`
	Reactions      Reactions      `json:"reactions,omitempty" gorm:"column:reactions;serializer:json"`
	IsEdited       bool           `json:"is_edited" gorm:"column:is_edited"`
	IsDeleted      bool           `json:"is_deleted" gorm:"column:is_deleted"`
	DeletedAt      int64          `json:"deleted_at,omitempty" gorm:"column:deleted_at"`
	IsStarred      bool           `json:"is_starred" gorm:"column:is_starred"`
	IsPinned       bool           `json:"is_pinned" gorm:"column:is_pinned"`
	PinnedAt       int64          `json:"pinned_at,omitempty" gorm:"column:pinned_at"`
	ReadBy         []string       `json:"read_by" gorm:"-"`
	CreatedAt      int64          `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      int64          `json:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// IsSystem reports whether the message is a membership or lifecycle notice
func (m *Message) IsSystem() bool {
	return m.MsgType == constant.MsgTypeSystem
}

// IsPending reports whether the store has not yet stamped the message
func (m *Message) IsPending() bool {
	return m.CreatedAt == 0
}

// IsReadBy reports whether userId is in the read-by set
func (m *Message) IsReadBy(userId string) bool {
	return slices.Contains(m.ReadBy, userId)
}

// IsUnreadFor reports whether the message counts as unread for viewerId
func (m *Message) IsUnreadFor(viewerId string) bool {
	return m.SenderId != viewerId && !m.IsReadBy(viewerId)
}

// Quote captures the reply snapshot of the message
func (m *Message) Quote() *QuotedMessage {
	return &QuotedMessage{
		Id:         m.Id,
		Text:       m.Text,
		SenderName: m.SenderName,
	}
}

// Summary builds the last-message summary stored on the conversation
func (m *Message) Summary() *LastMessage {
	return &LastMessage{
		MessageId:  m.Id,
		Text:       m.Text,
		SenderId:   m.SenderId,
		SenderName: m.SenderName,
		MsgType:    m.MsgType,
		HasMedia:   len(m.Attachments) > 0,
		CreatedAt:  m.CreatedAt,
	}
}

// Clone returns a deep copy so projections never alias store state
func (m *Message) Clone() *Message {
	c := *m
	c.Attachments = slices.Clone(m.Attachments)
	c.ReadBy = slices.Clone(m.ReadBy)
	if m.Quoted != nil {
		q := *m.Quoted
		c.Quoted = &q
	}
	if m.Reactions != nil {
		c.Reactions = make(Reactions, len(m.Reactions))
		for k, v := range m.Reactions {
			c.Reactions[k] = slices.Clone(v)
		}
	}
	return &c
}

// NewSystemMessage builds a system notice for a conversation
func NewSystemMessage(id, conversationId, text string) *Message {
	return &Message{
		Id:             id,
		ConversationId: conversationId,
		SenderId:       constant.SystemSenderId,
		MsgType:        constant.MsgTypeSystem,
		Text:           text,
	}
}

// MessageRead is one entry of a message's read-by set
type MessageRead struct {
	MessageId      string `json:"message_id" gorm:"column:message_id;primaryKey"`
	UserId         string `json:"user_id" gorm:"column:user_id;primaryKey"`
	ConversationId string `json:"conversation_id" gorm:"column:conversation_id;index"`
	ReadAt         int64  `json:"read_at" gorm:"column:read_at"`
}

// TableName returns the table name for MessageRead
func (MessageRead) TableName() string {
	return "message_reads"
}

// SeqConversation persists the last allocated seq of a conversation
type SeqConversation struct {
	ConversationId string `json:"conversation_id" gorm:"column:conversation_id;primaryKey"`
	MaxSeq         int64  `json:"max_seq" gorm:"column:max_seq"`
}

// TableName returns the table name for SeqConversation
func (SeqConversation) TableName() string {
	return "seq_conversations"
}
