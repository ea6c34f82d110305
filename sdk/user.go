package sdk

import (
	"context"
	"strconv"
	"strings"
)

// GetUserInfo gets the current user's info
func (c *Client) GetUserInfo(ctx context.Context) (*UserInfo, error) {
	var result UserInfo
	if err := c.get(ctx, "/user/info", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetUserInfoById gets a user's info by Id
func (c *Client) GetUserInfoById(ctx context.Context, userId string) (*UserInfo, error) {
	var result UserInfo
	if err := c.get(ctx, "/user/info/"+userId, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateUserInfo updates the current user's info
func (c *Client) UpdateUserInfo(ctx context.Context, req *UpdateUserRequest) (*UserInfo, error) {
	var result UserInfo
	if err := c.put(ctx, "/user/update", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchUsers finds users by nickname
func (c *Client) SearchUsers(ctx context.Context, keyword string, limit int) ([]*UserInfo, error) {
	params := map[string]string{"keyword": keyword}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	var result []*UserInfo
	if err := c.get(ctx, "/user/search", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetUsersOnlineStatus gets online status for multiple users
func (c *Client) GetUsersOnlineStatus(ctx context.Context, userIds []string) ([]*OnlineStatus, error) {
	var result []*OnlineStatus
	params := map[string]string{"user_ids": strings.Join(userIds, ",")}
	if err := c.get(ctx, "/user/online_status", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
