package sdk

import "context"

// CreateGroup creates a new group with the caller as admin
func (c *Client) CreateGroup(ctx context.Context, req *CreateGroupRequest) (*GroupDetail, error) {
	var result GroupDetail
	if err := c.post(ctx, "/group/create", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetGroup gets group info with its members
func (c *Client) GetGroup(ctx context.Context, groupId string) (*GroupDetail, error) {
	var result GroupDetail
	params := map[string]string{"group_id": groupId}
	if err := c.get(ctx, "/group/info", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateGroup changes group details, admins only
func (c *Client) UpdateGroup(ctx context.Context, req *UpdateGroupRequest) (*GroupDetail, error) {
	var result GroupDetail
	if err := c.put(ctx, "/group/update", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LeaveGroup ends the caller's membership
func (c *Client) LeaveGroup(ctx context.Context, groupId string) error {
	return c.post(ctx, "/group/leave", &groupIdRequest{GroupId: groupId}, nil)
}

// RemoveMember removes another member, admins only
func (c *Client) RemoveMember(ctx context.Context, groupId, userId string) error {
	return c.post(ctx, "/group/remove_member", &removeMemberRequest{GroupId: groupId, UserId: userId}, nil)
}

// AddMembers adds users to a group and returns the ones actually added, admins only
func (c *Client) AddMembers(ctx context.Context, groupId string, userIds ...string) ([]string, error) {
	var result AddMembersResponse
	if err := c.post(ctx, "/group/add_members", &addMembersRequest{GroupId: groupId, UserIds: userIds}, &result); err != nil {
		return nil, err
	}
	return result.Added, nil
}
