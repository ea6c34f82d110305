package service

import (
	"context"

	"github.com/mbeoliero/chatsync/internal/convsync"
	"github.com/mbeoliero/chatsync/internal/entity"
)

// MessageService exposes message operations to the HTTP and websocket surfaces
type MessageService struct {
	engine *convsync.Engine
}

// NewMessageService creates a new MessageService
func NewMessageService(engine *convsync.Engine) *MessageService {
	return &MessageService{engine: engine}
}

// SendMessageRequest represents send message request
type SendMessageRequest struct {
	ConversationId string   `json:"conversation_id"`
	ClientMsgId    string   `json:"client_msg_id"`
	Text           string   `json:"text"`
	Attachments    []string `json:"attachments,omitempty"`
	QuoteId        string   `json:"quote_id,omitempty"`
}

// MessageIdRequest addresses one message
type MessageIdRequest struct {
	MessageId string `json:"message_id"`
}

// EditMessageRequest represents edit message request
type EditMessageRequest struct {
	MessageId string `json:"message_id"`
	Text      string `json:"text"`
}

// ReactRequest represents a reaction toggle
type ReactRequest struct {
	MessageId string `json:"message_id"`
	Symbol    string `json:"symbol"`
}

// ReactResponse carries the reaction map after the toggle
type ReactResponse struct {
	MessageId string           `json:"message_id"`
	Reactions entity.Reactions `json:"reactions"`
}

// FlagResponse carries a toggled flag
type FlagResponse struct {
	MessageId string `json:"message_id"`
	Value     bool   `json:"value"`
}

// SendMessage sends a message. A repeated client_msg_id returns the stored message.
func (s *MessageService) SendMessage(ctx context.Context, sess convsync.Session, req *SendMessageRequest) (*entity.Message, error) {
	return s.engine.Send(ctx, sess, convsync.SendRequest{
		ConversationId: req.ConversationId,
		ClientMsgId:    req.ClientMsgId,
		Text:           req.Text,
		Attachments:    req.Attachments,
		QuoteId:        req.QuoteId,
	})
}

// EditMessage replaces the text of the caller's own message
func (s *MessageService) EditMessage(ctx context.Context, sess convsync.Session, req *EditMessageRequest) (*entity.Message, error) {
	return s.engine.Edit(ctx, sess, req.MessageId, req.Text)
}

// DeleteMessage tombstones the caller's own message
func (s *MessageService) DeleteMessage(ctx context.Context, sess convsync.Session, req *MessageIdRequest) (*entity.Message, error) {
	return s.engine.Delete(ctx, sess, req.MessageId)
}

// React toggles a reaction of the caller
func (s *MessageService) React(ctx context.Context, sess convsync.Session, req *ReactRequest) (*ReactResponse, error) {
	reactions, err := s.engine.React(ctx, sess, req.MessageId, req.Symbol)
	if err != nil {
		return nil, err
	}
	return &ReactResponse{MessageId: req.MessageId, Reactions: reactions}, nil
}

// ToggleStar flips the starred flag of a message
func (s *MessageService) ToggleStar(ctx context.Context, sess convsync.Session, req *MessageIdRequest) (*FlagResponse, error) {
	starred, err := s.engine.ToggleStar(ctx, sess, req.MessageId)
	if err != nil {
		return nil, err
	}
	return &FlagResponse{MessageId: req.MessageId, Value: starred}, nil
}

// TogglePin flips the pinned flag of a message
func (s *MessageService) TogglePin(ctx context.Context, sess convsync.Session, req *MessageIdRequest) (*FlagResponse, error) {
	pinned, err := s.engine.TogglePin(ctx, sess, req.MessageId)
	if err != nil {
		return nil, err
	}
	return &FlagResponse{MessageId: req.MessageId, Value: pinned}, nil
}

// Quote returns the reply snapshot of a message
func (s *MessageService) Quote(ctx context.Context, sess convsync.Session, req *MessageIdRequest) (*entity.QuotedMessage, error) {
	return s.engine.Quote(ctx, sess, req.MessageId)
}
