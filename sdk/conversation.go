package sdk

import "context"

// GetConversationList gets all conversations of the current user, latest activity first
func (c *Client) GetConversationList(ctx context.Context) ([]*ConversationInfo, error) {
	var result []*ConversationInfo
	if err := c.get(ctx, "/conversation/list", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// OpenDirect returns the direct conversation with peerId, creating it on first use
func (c *Client) OpenDirect(ctx context.Context, peerId string) (*ConversationInfo, error) {
	var result ConversationInfo
	if err := c.post(ctx, "/conversation/direct", &openDirectRequest{PeerId: peerId}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetSnapshot returns the current state of a conversation without marking anything read
func (c *Client) GetSnapshot(ctx context.Context, conversationId string) (*Snapshot, error) {
	params := map[string]string{"conversation_id": conversationId}
	var result Snapshot
	if err := c.get(ctx, "/conversation/snapshot", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
