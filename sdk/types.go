package sdk

// Response represents the standard API response
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

// UserInfo represents public user info
type UserInfo struct {
	Id        string  `json:"id"`
	Nickname  string  `json:"nickname"`
	Avatar    string  `json:"avatar"`
	Extra     *string `json:"extra,omitempty"`
	IsOnline  bool    `json:"is_online"`
	CreatedAt int64   `json:"created_at"`
}

// QuotedMessage is the copy of a replied-to message
type QuotedMessage struct {
	Id         string `json:"id"`
	Text       string `json:"text"`
	SenderName string `json:"sender_name"`
}

// MessageInfo represents one message of a conversation
type MessageInfo struct {
	Id             string              `json:"id"`
	ConversationId string              `json:"conversation_id"`
	Seq            int64               `json:"seq"`
	ClientMsgId    string              `json:"client_msg_id"`
	SenderId       string              `json:"sender_id"`
	SenderName     string              `json:"sender_name"`
	SenderPhoto    string              `json:"sender_photo"`
	MsgType        int32               `json:"msg_type"`
	Text           string              `json:"text"`
	Attachments    []string            `json:"attachments,omitempty"`
	Quoted         *QuotedMessage      `json:"quoted,omitempty"`
	Reactions      map[string][]string `json:"reactions,omitempty"`
	IsEdited       bool                `json:"is_edited"`
	IsDeleted      bool                `json:"is_deleted"`
	DeletedAt      int64               `json:"deleted_at,omitempty"`
	IsStarred      bool                `json:"is_starred"`
	IsPinned       bool                `json:"is_pinned"`
	PinnedAt       int64               `json:"pinned_at,omitempty"`
	ReadBy         []string            `json:"read_by"`
	CreatedAt      int64               `json:"created_at"`
	UpdatedAt      int64               `json:"updated_at"`
}

// LastMessage is the summary shown in conversation lists
type LastMessage struct {
	MessageId  string `json:"message_id"`
	Text       string `json:"text"`
	SenderId   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	MsgType    int32  `json:"msg_type"`
	HasMedia   bool   `json:"has_media"`
	CreatedAt  int64  `json:"created_at"`
}

// ConversationInfo represents a conversation list entry
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

// Snapshot is the one-shot projected state of a conversation
type Snapshot struct {
	ConversationId string         `json:"conversation_id"`
	Messages       []*MessageInfo `json:"messages"`
	UnreadCount    int            `json:"unread_count"`
	FirstUnreadId  string         `json:"first_unread_id,omitempty"`
	Pinned         []*MessageInfo `json:"pinned"`
	Starred        []*MessageInfo `json:"starred"`
	Anchor         string         `json:"anchor,omitempty"`
}

// GroupInfo represents group info
type GroupInfo struct {
	Id            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	PhotoURL      string `json:"photo_url"`
	CreatorUserId string `json:"creator_user_id"`
	MemberCount   int    `json:"member_count"`
	CreatedAt     int64  `json:"created_at"`
}

// GroupMember is a membership record, former members included
type GroupMember struct {
	Id            int64  `json:"id"`
	GroupId       string `json:"group_id"`
	UserId        string `json:"user_id"`
	DisplayName   string `json:"display_name"`
	PhotoURL      string `json:"photo_url"`
	RoleLevel     int32  `json:"role_level"`
	Status        int32  `json:"status"`
	JoinedAt      int64  `json:"joined_at"`
	InviterUserId string `json:"inviter_user_id"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

// GroupDetail is a group with its member records
type GroupDetail struct {
	ConversationId string         `json:"conversation_id"`
	Group          *GroupInfo     `json:"group"`
	Members        []*GroupMember `json:"members"`
}

// OnlineStatus
type OnlineStatus struct {
	UserId string `json:"user_id"`
	Status int    `json:"status"`
}

// Attachment is a stored attachment, its key goes into SendMessageRequest.Attachments
type Attachment struct {
	Key         string `json:"key"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ===== Request types =====

// RegisterRequest represents user registration request
type RegisterRequest struct {
	UserId   string `json:"user_id"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
	Avatar   string `json:"avatar,omitempty"`
}

// LoginRequest
type LoginRequest struct {
	UserId     string `json:"user_id"`
	Password   string `json:"password"`
	PlatformId int    `json:"platform_id"`
}

// LoginResponse represents user login response
type LoginResponse struct {
	Token    string    `json:"token"`
	UserInfo *UserInfo `json:"user_info"`
}

// UpdateUserRequest represents user update request
type UpdateUserRequest struct {
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Extra    string `json:"extra,omitempty"`
}

// CreateGroupRequest represents group creation request
type CreateGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	PhotoURL    string   `json:"photo_url,omitempty"`
	MemberIds   []string `json:"member_ids,omitempty"`
}

// UpdateGroupRequest changes the non-nil details
type UpdateGroupRequest struct {
	GroupId     string  `json:"group_id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}

type groupIdRequest struct {
	GroupId string `json:"group_id"`
}

type removeMemberRequest struct {
	GroupId string `json:"group_id"`
	UserId  string `json:"user_id"`
}

type addMembersRequest struct {
	GroupId string   `json:"group_id"`
	UserIds []string `json:"user_ids"`
}

// AddMembersResponse lists the users that were actually added
type AddMembersResponse struct {
	GroupId string   `json:"group_id"`
	Added   []string `json:"added"`
}

// SendMessageRequest represents send message request
type SendMessageRequest struct {
	ConversationId string   `json:"conversation_id"`
	ClientMsgId    string   `json:"client_msg_id"`
	Text           string   `json:"text"`
	Attachments    []string `json:"attachments,omitempty"`
	QuoteId        string   `json:"quote_id,omitempty"`
}

// EditMessageRequest represents edit message request
type EditMessageRequest struct {
	MessageId string `json:"message_id"`
	Text      string `json:"text"`
}

type messageIdRequest struct {
	MessageId string `json:"message_id"`
}

// ReactRequest represents a reaction toggle
type ReactRequest struct {
	MessageId string `json:"message_id"`
	Symbol    string `json:"symbol"`
}

// ReactResponse carries the reaction map after the toggle
type ReactResponse struct {
	MessageId string              `json:"message_id"`
	Reactions map[string][]string `json:"reactions"`
}

// FlagResponse carries a toggled star or pin flag
type FlagResponse struct {
	MessageId string `json:"message_id"`
	Value     bool   `json:"value"`
}

type openDirectRequest struct {
	PeerId string `json:"peer_id"`
}

type downloadURLResponse struct {
	URL string `json:"url"`
}
