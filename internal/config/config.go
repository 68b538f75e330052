package config

import (
	"fmt"
	"net/url"
	"strings"
)

type Config struct {
	// ServerURL is the backend origin, e.g. https://chat.example.com:8000.
	ServerURL string
	// WebsocketURL is derived from ServerURL by upgrading the scheme.
	WebsocketURL string
	// StorePath is the sqlite file holding the token and cached previews.
	StorePath string
	// DebugAddr, when non-empty, serves /debug/vars on this address.
	DebugAddr string
}

// websocketURL upgrades an http(s) origin to its socket-protocol equivalent
// and appends the /ws path.
func websocketURL(origin string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

func NewConfig(serverURL, storePath, debugAddr string) (*Config, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("server url cannot be empty")
	}
	if storePath == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}

	wsURL, err := websocketURL(serverURL)
	if err != nil {
		return nil, fmt.Errorf("derive websocket url: %w", err)
	}

	return &Config{
		ServerURL:    strings.TrimSuffix(serverURL, "/"),
		WebsocketURL: wsURL,
		StorePath:    storePath,
		DebugAddr:    debugAddr,
	}, nil
}
