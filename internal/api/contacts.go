package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/voxchat/voxchat-client/internal/types"
)

func (c *Client) Contacts(ctx context.Context) ([]types.Contact, error) {
	var contacts []types.Contact
	err := c.do(ctx, http.MethodGet, "/api/contacts", nil, nil, &contacts)
	return contacts, err
}

func (c *Client) AddContact(ctx context.Context, contactUserId int) (types.Contact, error) {
	var contact types.Contact
	err := c.do(ctx, http.MethodPost, "/api/contacts",
		nil, map[string]int{"contact_user_id": contactUserId}, &contact)
	return contact, err
}

func (c *Client) RemoveContact(ctx context.Context, contactUserId int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/contacts/%d", contactUserId), nil, nil, nil)
}

func (c *Client) ContactDetail(ctx context.Context, contactUserId int) (types.Contact, error) {
	var contact types.Contact
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/contacts/%d", contactUserId), nil, nil, &contact)
	return contact, err
}

func (c *Client) ToggleFavorite(ctx context.Context, contactUserId int) (types.Contact, error) {
	var contact types.Contact
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/contacts/%d/favorite", contactUserId), nil, nil, &contact)
	return contact, err
}
