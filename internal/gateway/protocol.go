package gateway

import (
	"github.com/mbeoliero/chatsync/internal/convsync"
	"github.com/mbeoliero/chatsync/internal/entity"
)

// WSRequest represents a WebSocket request message
type WSRequest struct {
	ReqIdentifier int32  `json:"req_identifier"` // Request type
	MsgIncr       string `json:"msg_incr"`       // Client message counter/trace Id
	OperationId   string `json:"operation_id"`   // Operation Id
	SendId        string `json:"send_id"`        // Sender user Id
	Data          []byte `json:"data"`           // Business data
}

// WSResponse represents a WebSocket response or push message
type WSResponse struct {
	ReqIdentifier int32  `json:"req_identifier"` // Request type (echo back)
	MsgIncr       string `json:"msg_incr"`       // Message counter (echo back)
	OperationId   string `json:"operation_id"`   // Operation Id (echo back)
	ErrCode       int    `json:"err_code"`       // Error code, 0 = success
	ErrMsg        string `json:"err_msg"`        // Error message
	Data          []byte `json:"data"`           // Response data
}

// ViewReq addresses a conversation view (open, close, focus)
type ViewReq struct {
	ConversationId string `json:"conversation_id"`
}

// ViewResp acknowledges a view request
type ViewResp struct {
	ConversationId string `json:"conversation_id"`
	OpenViews      int    `json:"open_views"`
}

// PinnedData is one entry of the pinned banner
type PinnedData struct {
	MessageId string `json:"message_id"`
	Text      string `json:"text"`
	SenderId  string `json:"sender_id"`
	PinnedAt  int64  `json:"pinned_at"`
}

// ViewStateData is the pushed projection of a conversation
type ViewStateData struct {
	ConversationId string                   `json:"conversation_id"`
	Chat           *entity.ConversationInfo `json:"chat"`
	Messages       []*entity.Message        `json:"messages"`
	UnreadCount    int                      `json:"unread_count"`
	FirstUnreadId  string                   `json:"first_unread_id,omitempty"`
	Pinned         []*PinnedData            `json:"pinned"`
	StarredIds     []string                 `json:"starred_ids"`
	Anchor         string                   `json:"anchor,omitempty"`
	Added          []string                 `json:"added,omitempty"`
	Changed        []string                 `json:"changed,omitempty"`
	Removed        []string                 `json:"removed,omitempty"`
}

// ViewClosedData tells the client a view ended without being closed by it
type ViewClosedData struct {
	ConversationId string `json:"conversation_id"`
	Code           int    `json:"code"`
	Reason         string `json:"reason"`
}

// toViewStateData renders a state for viewerId along with its delta from the previously pushed state
func toViewStateData(state *convsync.ViewState, viewerId string, delta convsync.Delta) *ViewStateData {
	data := &ViewStateData{
		ConversationId: state.ConversationId,
		Messages:       state.Messages,
		UnreadCount:    state.UnreadCount,
		FirstUnreadId:  state.FirstUnreadId,
		Pinned:         make([]*PinnedData, 0, len(state.Pinned)),
		StarredIds:     make([]string, 0, len(state.Starred)),
		Anchor:         state.Anchor,
		Added:          delta.Added,
		Changed:        delta.Changed,
		Removed:        delta.Removed,
	}
	if state.Chat != nil {
		data.Chat = entity.ToConversationInfo(state.Chat, viewerId, state.UnreadCount)
	}
	for _, m := range state.Pinned {
		data.Pinned = append(data.Pinned, &PinnedData{MessageId: m.Id, Text: m.Text, SenderId: m.SenderId, PinnedAt: m.PinnedAt})
	}
	for _, m := range state.Starred {
		data.StarredIds = append(data.StarredIds, m.Id)
	}
	return data
}
