package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/voxchat/voxchat-client/internal/types"
)

func (c *Client) Groups(ctx context.Context) ([]types.Group, error) {
	var groups []types.Group
	err := c.do(ctx, http.MethodGet, "/api/groups", nil, nil, &groups)
	return groups, err
}

func (c *Client) CreateGroup(ctx context.Context, name, description string) (types.Group, error) {
	var group types.Group
	err := c.do(ctx, http.MethodPost, "/api/groups/create",
		nil, map[string]string{"name": name, "description": description}, &group)
	return group, err
}

func (c *Client) Group(ctx context.Context, groupId int) (types.Group, error) {
	var group types.Group
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/groups/%d", groupId), nil, nil, &group)
	return group, err
}

func (c *Client) DeleteGroup(ctx context.Context, groupId int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/groups/%d", groupId), nil, nil, nil)
}

func (c *Client) GroupMembers(ctx context.Context, groupId int) ([]types.GroupMember, error) {
	var members []types.GroupMember
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/groups/%d/members", groupId), nil, nil, &members)
	return members, err
}

func (c *Client) AddGroupMember(ctx context.Context, groupId, userId int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/groups/%d/members/%d", groupId, userId), nil, nil, nil)
}

func (c *Client) RemoveGroupMember(ctx context.Context, groupId, userId int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/groups/%d/members/%d", groupId, userId), nil, nil, nil)
}

func (c *Client) GroupMessages(ctx context.Context, groupId int) (types.GroupMessagePage, error) {
	var page types.GroupMessagePage
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/groups/%d/messages", groupId), nil, nil, &page)
	return page, err
}

// SendGroupMessage posts to a group. The backend takes the payload as query
// parameters on this endpoint, not as a JSON body.
func (c *Client) SendGroupMessage(ctx context.Context, groupId int, content string, msgType int) (types.GroupMessage, error) {
	if msgType == 0 {
		msgType = types.MsgTypeText
	}

	var msg types.GroupMessage
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/groups/%d/messages", groupId),
		url.Values{"content": {content}, "msg_type": {strconv.Itoa(msgType)}}, nil, &msg)
	return msg, err
}

func (c *Client) SearchGroups(ctx context.Context, keyword string) ([]types.Group, error) {
	if keyword == "" {
		return nil, nil
	}

	var groups []types.Group
	err := c.do(ctx, http.MethodGet, "/api/groups/search",
		url.Values{"keyword": {keyword}}, nil, &groups)
	return groups, err
}
