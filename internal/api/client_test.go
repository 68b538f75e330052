package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxchat/voxchat-client/internal/testutil"
	"github.com/voxchat/voxchat-client/internal/types"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, testutil.TestLogger(t))
}

func TestLogin(t *testing.T) {
	var gotBody loginRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method, "expected POST")
		assert.Equal(t, "/api/auth/login", r.URL.Path, "unexpected path")

		err := json.NewDecoder(r.Body).Decode(&gotBody)
		require.NoError(t, err, "failed to decode request body")

		json.NewEncoder(w).Encode(TokenResponse{AccessToken: "tok-123", TokenType: "bearer"})
	}))

	tok, err := c.Login(context.Background(), "nats", "secret", false)
	require.NoError(t, err, "expected login to succeed")

	assert.Equal(t, "tok-123", tok.AccessToken, "unexpected access token")
	assert.Equal(t, "nats", gotBody.Username, "expected username in request body")
	assert.Empty(t, gotBody.Phone, "phone should not be set for a username login")
	assert.Equal(t, "tok-123", c.Token(), "expected token to be installed on the client")
}

func TestLoginPhone(t *testing.T) {
	var gotBody loginRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(TokenResponse{AccessToken: "tok-456"})
	}))

	_, err := c.Login(context.Background(), "5551234", "secret", true)
	require.NoError(t, err, "expected login to succeed")

	assert.Equal(t, "5551234", gotBody.Phone, "expected phone in request body")
	assert.Empty(t, gotBody.Username, "username should not be set for a phone login")
}

func TestBearerTokenSent(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(types.User{Id: 1, Username: "nats"})
	}))
	c.SetToken("tok-789")

	_, err := c.Me(context.Background())
	require.NoError(t, err, "expected request to succeed")

	assert.Equal(t, "Bearer tok-789", gotAuth, "expected bearer token header")
}

func TestErrorFromResponse(t *testing.T) {
	tcases := []struct {
		name        string
		status      int
		body        string
		expectedMsg string
	}{
		{
			name:        "detail body",
			status:      http.StatusConflict,
			body:        `{"detail": "already in a call"}`,
			expectedMsg: "already in a call",
		},
		{
			name:        "plain text body",
			status:      http.StatusBadRequest,
			body:        "bad input",
			expectedMsg: "bad input",
		},
		{
			name:        "empty body falls back to status text",
			status:      http.StatusUnauthorized,
			body:        "",
			expectedMsg: "unauthorized",
		},
		{
			name:        "json body without detail falls back to status text",
			status:      http.StatusInternalServerError,
			body:        `{"error": "boom"}`,
			expectedMsg: "internal server error",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))

			_, err := c.Me(context.Background())
			require.Error(t, err, "expected an error for status %d", tc.status)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr, "expected an *Error")
			assert.Equal(t, tc.status, apiErr.StatusCode, "unexpected status code")
			assert.Equal(t, tc.expectedMsg, apiErr.Message, "unexpected message")
		})
	}
}

func TestSendMessageDefaultsToText(t *testing.T) {
	var gotBody SendMessageBody
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(types.Message{Id: 7, Content: "hi"})
	}))

	msg, err := c.SendMessage(context.Background(), SendMessageBody{ReceiverId: 2, Content: "hi"})
	require.NoError(t, err, "expected send to succeed")

	assert.Equal(t, types.MsgTypeText, gotBody.MsgType, "expected msg_type to default to text")
	assert.Equal(t, 7, msg.Id, "unexpected message id")
}

func TestSendGroupMessageUsesQueryParams(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/groups/3/messages", r.URL.Path, "unexpected path")
		assert.Equal(t, "hello group", r.URL.Query().Get("content"), "expected content query param")
		assert.Equal(t, "1", r.URL.Query().Get("msg_type"), "expected msg_type query param")

		json.NewEncoder(w).Encode(types.GroupMessage{Id: 9, GroupId: 3, Content: "hello group"})
	}))

	msg, err := c.SendGroupMessage(context.Background(), 3, "hello group", 0)
	require.NoError(t, err, "expected send to succeed")
	assert.Equal(t, 9, msg.Id, "unexpected message id")
}

func TestMarkRead(t *testing.T) {
	var gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))

	err := c.MarkRead(context.Background(), 42)
	require.NoError(t, err, "expected mark read to succeed")
	assert.Equal(t, "/api/messages/read/42", gotPath, "unexpected path")
}

func TestSearchMessagesEmptyKeyword(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty keyword")
	}))

	results, err := c.SearchMessages(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Nil(t, results, "expected no results for an empty keyword")
}

func TestUpload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseMultipartForm(1 << 20)
		require.NoError(t, err, "failed to parse multipart form")

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err, "expected a file field")
		defer f.Close()

		assert.Equal(t, "note.ogg", hdr.Filename, "unexpected filename")
		json.NewEncoder(w).Encode(map[string]string{"url": "/static/note.ogg"})
	}))

	url, err := c.Upload(context.Background(), "note.ogg", strings.NewReader("audio-bytes"))
	require.NoError(t, err, "expected upload to succeed")
	assert.Equal(t, "/static/note.ogg", url, "unexpected url")
}

func makeToken(t *testing.T, exp time.Time) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	claims, err := json.Marshal(map[string]any{"sub": "1", "exp": exp.Unix()})
	require.NoError(t, err, "failed to marshal claims")

	return header + "." + base64.RawURLEncoding.EncodeToString(claims) + ".sig"
}

func TestTokenExpired(t *testing.T) {
	tcases := []struct {
		name     string
		token    string
		expected bool
	}{
		{
			name:     "valid token",
			token:    makeToken(t, time.Now().Add(time.Hour)),
			expected: false,
		},
		{
			name:     "expired token",
			token:    makeToken(t, time.Now().Add(-time.Hour)),
			expected: true,
		},
		{
			name:     "garbage token",
			token:    "not-a-jwt",
			expected: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, TokenExpired(tc.token),
				"expected TokenExpired to return %v", tc.expected)
		})
	}
}
