package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	var (
		serverURL = "https://chat.example.com:8000"
		storePath = "voxchat.db"
	)

	tcases := []struct {
		name      string
		serverURL string
		storePath string
		err       bool
	}{
		{
			name:      "valid config",
			serverURL: serverURL,
			storePath: storePath,
			err:       false,
		},
		{
			name:      "empty server url",
			serverURL: "",
			storePath: storePath,
			err:       true,
		},
		{
			name:      "empty store path",
			serverURL: serverURL,
			storePath: "",
			err:       true,
		},
		{
			name:      "non-http scheme",
			serverURL: "ftp://chat.example.com",
			storePath: storePath,
			err:       true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			config, err := NewConfig(tc.serverURL, tc.storePath, "")
			if tc.err {
				assert.Error(t, err, "expected error for config: %s", tc.name)
				return
			}
			assert.NoError(t, err, "expected no error for config: %s", tc.name)

			assert.Equal(t, tc.serverURL, config.ServerURL, "expected server url to match")
			assert.Equal(t, tc.storePath, config.StorePath, "expected store path to match")
			assert.NotEmpty(t, config.WebsocketURL, "expected websocket url to be derived")
		})
	}
}

func Test_websocketURL(t *testing.T) {
	tcases := []struct {
		name     string
		origin   string
		expected string
		err      bool
	}{
		{
			name:     "http upgrades to ws",
			origin:   "http://localhost:8000",
			expected: "ws://localhost:8000/ws",
		},
		{
			name:     "https upgrades to wss",
			origin:   "https://chat.example.com",
			expected: "wss://chat.example.com/ws",
		},
		{
			name:     "trailing slash is collapsed",
			origin:   "http://localhost:8000/",
			expected: "ws://localhost:8000/ws",
		},
		{
			name:   "unsupported scheme",
			origin: "tcp://localhost:8000",
			err:    true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := websocketURL(tc.origin)
			if tc.err {
				assert.Error(t, err, "expected error for origin: %s", tc.origin)
				return
			}
			assert.NoError(t, err, "expected no error for origin: %s", tc.origin)
			assert.Equal(t, tc.expected, got, "expected derived url to match for origin: %s", tc.origin)
		})
	}
}
