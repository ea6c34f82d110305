package sdk

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
)

// SendMessage sends a message. Resending with the same client_msg_id returns the stored message.
func (c *Client) SendMessage(ctx context.Context, req *SendMessageRequest) (*MessageInfo, error) {
	if req.ClientMsgId == "" {
		req.ClientMsgId = uuid.NewString()
	}
	var result MessageInfo
	if err := c.post(ctx, "/msg/send", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendTextMessage is a convenience method to send a text message to a conversation
func (c *Client) SendTextMessage(ctx context.Context, conversationId, text string) (*MessageInfo, error) {
	return c.SendMessage(ctx, &SendMessageRequest{
		ConversationId: conversationId,
		Text:           text,
	})
}

// EditMessage replaces the text of the caller's own message
func (c *Client) EditMessage(ctx context.Context, messageId, text string) (*MessageInfo, error) {
	var result MessageInfo
	if err := c.post(ctx, "/msg/edit", &EditMessageRequest{MessageId: messageId, Text: text}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteMessage turns the caller's own message into a tombstone
func (c *Client) DeleteMessage(ctx context.Context, messageId string) (*MessageInfo, error) {
	var result MessageInfo
	if err := c.post(ctx, "/msg/delete", &messageIdRequest{MessageId: messageId}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// React toggles the caller's reaction on a message
func (c *Client) React(ctx context.Context, messageId, symbol string) (*ReactResponse, error) {
	var result ReactResponse
	if err := c.post(ctx, "/msg/react", &ReactRequest{MessageId: messageId, Symbol: symbol}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ToggleStar flips the starred flag of a message
func (c *Client) ToggleStar(ctx context.Context, messageId string) (bool, error) {
	var result FlagResponse
	if err := c.post(ctx, "/msg/star", &messageIdRequest{MessageId: messageId}, &result); err != nil {
		return false, err
	}
	return result.Value, nil
}

// TogglePin flips the pinned flag of a message
func (c *Client) TogglePin(ctx context.Context, messageId string) (bool, error) {
	var result FlagResponse
	if err := c.post(ctx, "/msg/pin", &messageIdRequest{MessageId: messageId}, &result); err != nil {
		return false, err
	}
	return result.Value, nil
}

// Quote returns the preview to attach when replying to a message
func (c *Client) Quote(ctx context.Context, messageId string) (*QuotedMessage, error) {
	var result QuotedMessage
	if err := c.get(ctx, "/msg/quote", map[string]string{"message_id": messageId}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadFile is one file of an attachment upload
type UploadFile struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// UploadAttachments stores files for a conversation. Pass the returned keys to SendMessage.
func (c *Client) UploadAttachments(ctx context.Context, conversationId string, files ...UploadFile) ([]*Attachment, error) {
	if len(files) == 0 {
		return nil, ErrInvalidParam
	}

	req := &protocol.Request{}
	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.baseURL + "/attachment/upload")
	req.SetMultipartFormData(map[string]string{"conversation_id": conversationId})
	for _, f := range files {
		req.SetMultipartField("files", f.Filename, f.ContentType, f.Body)
	}

	var result []*Attachment
	if err := c.do(ctx, req, &result); err != nil {
		return nil, fmt.Errorf("upload attachments: %w", err)
	}
	return result, nil
}

// AttachmentURL returns a download link for an attachment key
func (c *Client) AttachmentURL(ctx context.Context, conversationId, key string) (string, error) {
	params := map[string]string{"conversation_id": conversationId, "key": key}
	var result downloadURLResponse
	if err := c.get(ctx, "/attachment/download_url", params, &result); err != nil {
		return "", err
	}
	return result.URL, nil
}

// UploadAvatar stores a profile or group photo. Put the returned URL into photo_url of UpdateUserInfo,
// CreateGroup or UpdateGroup; relative URLs are served by the same server.
func (c *Client) UploadAvatar(ctx context.Context, f UploadFile) (*Attachment, error) {
	req := &protocol.Request{}
	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.baseURL + "/attachment/avatar")
	req.SetMultipartField("file", f.Filename, f.ContentType, f.Body)

	var result Attachment
	if err := c.do(ctx, req, &result); err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}
	return &result, nil
}
