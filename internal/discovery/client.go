// Package discovery performs the HTTP handshake that precedes a socket
// connection: resolving a room's backing chat channel, then fetching the
// socket endpoints and one-time auth key for that channel.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ConnectionInfo is the chat connection handshake response.
type ConnectionInfo struct {
	Endpoints []string `json:"endpoints"`
	AuthKey   string   `json:"authkey"`
}

type channelInfo struct {
	ID int64 `json:"id"`
}

// Client talks to the platform REST API.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ChannelForRoom resolves the chat channel backing a room identifier.
func (c *Client) ChannelForRoom(ctx context.Context, roomID string) (int64, error) {
	var info channelInfo
	u := fmt.Sprintf("%s/api/v1/channels/%s", c.baseURL, url.PathEscape(roomID))
	if err := c.getJSON(ctx, u, "", &info); err != nil {
		return 0, err
	}
	if info.ID == 0 {
		return 0, fmt.Errorf("no chat channel for room %q", roomID)
	}
	return info.ID, nil
}

// ChatConnectionInfo fetches the socket endpoints and one-time auth key
// for a channel. An empty bearer performs the request anonymously; the
// resulting session will not be able to send.
func (c *Client) ChatConnectionInfo(ctx context.Context, channelID int64, bearer string) (*ConnectionInfo, error) {
	var info ConnectionInfo
	u := fmt.Sprintf("%s/api/v1/chats/%d?fields=id", c.baseURL, channelID)
	if err := c.getJSON(ctx, u, bearer, &info); err != nil {
		return nil, err
	}
	if len(info.Endpoints) == 0 {
		return nil, fmt.Errorf("chat connection info for channel %d lists no endpoints", channelID)
	}
	return &info, nil
}

func (c *Client) getJSON(ctx context.Context, u, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	c.logger.Debug().Str("url", u).Msg("discovery request")
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", u).Msg("discovery request failed")
		return fmt.Errorf("discovery request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error().Int("status", resp.StatusCode).Str("url", u).Msg("discovery request rejected")
		return fmt.Errorf("discovery request %s: unexpected status %d", u, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode discovery response: %w", err)
	}
	return nil
}
