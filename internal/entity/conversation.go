package entity

import "github.com/mbeoliero/chatsync/pkg/constant"

// LastMessage is the denormalized summary shown in conversation lists
type LastMessage struct {
	MessageId  string `json:"message_id"`
	Text       string `json:"text"`
	SenderId   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	MsgType    int32  `json:"msg_type"`
	HasMedia   bool   `json:"has_media"`
	CreatedAt  int64  `json:"created_at"`
}

// Conversation is the shared record of a direct or group chat.
// Direct chats keep their two participants sorted in UserA/UserB.
type Conversation struct {
	Id               string       `json:"id" gorm:"column:id;primaryKey"`
	ConversationType int32        `json:"conversation_type" gorm:"column:conversation_type"`
	UserA            string       `json:"user_a,omitempty" gorm:"column:user_a;index"`
	UserB            string       `json:"user_b,omitempty" gorm:"column:user_b;index"`
	GroupId          string       `json:"group_id,omitempty" gorm:"column:group_id;index"`
	LastMessage      *LastMessage `json:"last_message,omitempty" gorm:"column:last_message;serializer:json"`
	LastMessageAt    int64        `json:"last_message_at" gorm:"column:last_message_at"`
	CreatedAt        int64        `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt        int64        `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for Conversation
func (Conversation) TableName() string {
	return "conversations"
}

// NewDirectConversation builds the record for a pair of users
func NewDirectConversation(userA, userB string) *Conversation {
	if userB < userA {
		userA, userB = userB, userA
	}
	return &Conversation{
		Id:               GenSingleConversationId(userA, userB),
		ConversationType: constant.ConversationTypeDirect,
		UserA:            userA,
		UserB:            userB,
	}
}

// NewGroupConversation builds the record for a group
func NewGroupConversation(groupId string) *Conversation {
	return &Conversation{
		Id:               GenGroupConversationId(groupId),
		ConversationType: constant.ConversationTypeGroup,
		GroupId:          groupId,
	}
}

// Chat is the common view of a conversation. Implemented by *DirectChat and *GroupChat.
type Chat interface {
	ChatId() string
	Kind() int32
	Last() *LastMessage
}

// DirectChat is a conversation between exactly two users
type DirectChat struct {
	Id           string       `json:"id"`
	Participants [2]string    `json:"participants"`
	LastMessage  *LastMessage `json:"last_message,omitempty"`
}

func (c *DirectChat) ChatId() string     { return c.Id }
func (c *DirectChat) Kind() int32        { return constant.ConversationTypeDirect }
func (c *DirectChat) Last() *LastMessage { return c.LastMessage }

// HasParticipant reports whether userId is one of the two participants
func (c *DirectChat) HasParticipant(userId string) bool {
	return c.Participants[0] == userId || c.Participants[1] == userId
}

// Peer returns the other participant
func (c *DirectChat) Peer(userId string) string {
	if c.Participants[0] == userId {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// GroupChat is a named conversation with managed membership
type GroupChat struct {
	Id          string         `json:"id"`
	Group       *Group         `json:"group"`
	Members     []*GroupMember `json:"members"`
	LastMessage *LastMessage   `json:"last_message,omitempty"`
}

func (c *GroupChat) ChatId() string     { return c.Id }
func (c *GroupChat) Kind() int32        { return constant.ConversationTypeGroup }
func (c *GroupChat) Last() *LastMessage { return c.LastMessage }

// Member returns the membership record of userId, nil when absent
func (c *GroupChat) Member(userId string) *GroupMember {
	for _, m := range c.Members {
		if m.UserId == userId {
			return m
		}
	}
	return nil
}

// ActiveMemberIds returns the user Ids of active members
func (c *GroupChat) ActiveMemberIds() []string {
	ids := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		if m.IsActive() {
			ids = append(ids, m.UserId)
		}
	}
	return ids
}

// ToDirectChat converts a direct conversation record
func (c *Conversation) ToDirectChat() *DirectChat {
	return &DirectChat{
		Id:           c.Id,
		Participants: [2]string{c.UserA, c.UserB},
		LastMessage:  c.LastMessage,
	}
}

// ToGroupChat converts a group conversation record with its group and members
func (c *Conversation) ToGroupChat(group *Group, members []*GroupMember) *GroupChat {
	return &GroupChat{
		Id:          c.Id,
		Group:       group,
		Members:     members,
		LastMessage: c.LastMessage,
	}
}

// ConversationInfo represents a conversation entry for API responses
type ConversationInfo struct {
	ConversationId   string       `json:"conversation_id"`
	ConversationType int32        `json:"conversation_type"`
	PeerUserId       string       `json:"peer_user_id,omitempty"`
	GroupId          string       `json:"group_id,omitempty"`
	Name             string       `json:"name,omitempty"`
	PhotoURL         string       `json:"photo_url,omitempty"`
	LastMessage      *LastMessage `json:"last_message,omitempty"`
	UnreadCount      int          `json:"unread_count"`
}

// ToConversationInfo renders a chat from the viewpoint of viewerId
func ToConversationInfo(chat Chat, viewerId string, unreadCount int) *ConversationInfo {
	info := &ConversationInfo{
		ConversationId:   chat.ChatId(),
		ConversationType: chat.Kind(),
		LastMessage:      chat.Last(),
		UnreadCount:      unreadCount,
	}
	switch c := chat.(type) {
	case *DirectChat:
		info.PeerUserId = c.Peer(viewerId)
	case *GroupChat:
		if c.Group != nil {
			info.GroupId = c.Group.Id
			info.Name = c.Group.Name
			info.PhotoURL = c.Group.PhotoURL
		}
	}
	return info
}
