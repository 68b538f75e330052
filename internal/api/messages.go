package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/voxchat/voxchat-client/internal/types"
)

type SendMessageBody struct {
	ReceiverId int    `json:"receiver_id"`
	Content    string `json:"content"`
	MsgType    int    `json:"msg_type"`
}

// UnreadSummary is the aggregate unread count split the badge UI consumes.
type UnreadSummary struct {
	Private int `json:"private"`
	Group   int `json:"group"`
	Total   int `json:"total"`
}

// History fetches the stored messages exchanged with one peer.
func (c *Client) History(ctx context.Context, peerId int) (types.MessagePage, error) {
	var page types.MessagePage
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/messages/history/%d", peerId), nil, nil, &page)
	return page, err
}

func (c *Client) SendMessage(ctx context.Context, body SendMessageBody) (types.Message, error) {
	if body.MsgType == 0 {
		body.MsgType = types.MsgTypeText
	}

	var msg types.Message
	err := c.do(ctx, http.MethodPost, "/api/messages/send", nil, body, &msg)
	return msg, err
}

// MarkRead flags every unread message from the peer as read.
func (c *Client) MarkRead(ctx context.Context, peerId int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/messages/read/%d", peerId), nil, nil, nil)
}

func (c *Client) UnreadCount(ctx context.Context) (UnreadSummary, error) {
	var summary UnreadSummary
	err := c.do(ctx, http.MethodGet, "/api/messages/unread", nil, nil, &summary)
	return summary, err
}

// Upload stores a media file and returns its URL, to be sent as the content
// of an image, voice or file message.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.upload(ctx, "/api/messages/upload", "file", filename, r, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *Client) SearchMessages(ctx context.Context, keyword string, limit int) ([]types.SearchResult, error) {
	if keyword == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var results []types.SearchResult
	err := c.do(ctx, http.MethodGet, "/api/messages/search",
		url.Values{"keyword": {keyword}, "limit": {strconv.Itoa(limit)}}, nil, &results)
	return results, err
}
