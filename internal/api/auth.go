package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/voxchat/voxchat-client/internal/types"
)

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type loginRequest struct {
	Username string `json:"username,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// Login authenticates with a username or phone number and installs the
// returned bearer token on the client.
func (c *Client) Login(ctx context.Context, identifier, password string, isPhone bool) (TokenResponse, error) {
	req := loginRequest{Password: password}
	if isPhone {
		req.Phone = identifier
	} else {
		req.Username = identifier
	}

	var tok TokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, req, &tok); err != nil {
		return TokenResponse{}, err
	}

	c.SetToken(tok.AccessToken)
	return tok, nil
}

func (c *Client) Register(ctx context.Context, username, password, phone string) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodPost, "/api/auth/register",
		nil, registerRequest{Username: username, Password: password, Phone: phone}, &user)
	return user, err
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &user)
	return user, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
}

// SetOnlineStatus reports presence. Satisfies transport.PresenceReporter.
func (c *Client) SetOnlineStatus(ctx context.Context, status string) error {
	return c.do(ctx, http.MethodPut, "/api/auth/me/status",
		nil, map[string]string{"status": status}, nil)
}

func (c *Client) SearchUsers(ctx context.Context, keyword string) ([]types.User, error) {
	var users []types.User
	err := c.do(ctx, http.MethodGet, "/api/auth/search",
		url.Values{"q": {keyword}}, nil, &users)
	return users, err
}

func (c *Client) UpdateBio(ctx context.Context, bio string) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodPut, "/api/auth/me/bio",
		nil, map[string]string{"bio": bio}, &user)
	return user, err
}

func (c *Client) UpdateUsername(ctx context.Context, username string) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodPut, "/api/auth/me/username",
		nil, map[string]string{"username": username}, &user)
	return user, err
}

// TokenExpired reports whether a stored bearer token is past its exp claim.
// The signature is not verified; only the backend can do that. A token
// without a readable exp claim is treated as expired.
func TokenExpired(tokenString string) bool {
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return true
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return true
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return true
	}

	return time.Now().After(time.Unix(int64(exp), 0))
}
