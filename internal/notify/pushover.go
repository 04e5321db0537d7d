// Package notify delivers best-effort push notifications via Pushover.
// Delivery is informational only: failures are logged and discarded,
// never surfaced to the conversation that triggered them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kwren/emissary/internal/httpkit"
)

// DefaultBaseURL is the hosted Pushover API endpoint.
const DefaultBaseURL = "https://api.pushover.net"

// pushTimeout bounds a single delivery attempt so a slow notification
// endpoint cannot stall the conversation turn that triggered it.
const pushTimeout = 5 * time.Second

// Client sends messages to the Pushover API. A Client constructed
// without both credentials is a permanent no-op.
type Client struct {
	baseURL    string
	token      string
	user       string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewPushover creates a notification client. token and user may be
// empty, in which case Enabled reports false and Push does nothing.
func NewPushover(token, user string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		user:    user,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(pushTimeout),
		),
		logger: logger,
	}
}

// SetBaseURL points the client at a different endpoint. Used by tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimSuffix(u, "/")
}

// Enabled reports whether both credentials are configured.
func (c *Client) Enabled() bool {
	return c.token != "" && c.user != ""
}

// Push delivers one text message. It is fire-and-forget: there is no
// retry, the response body is ignored beyond the status code, and a
// disabled client returns nil immediately. Callers are expected to log
// and drop the returned error rather than propagate it.
func (c *Client) Push(ctx context.Context, message string) error {
	if !c.Enabled() {
		c.logger.Debug("pushover not configured, skipping notification")
		return nil
	}

	form := url.Values{
		"token":   {c.token},
		"user":    {c.user},
		"message": {message},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/1/messages.json", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pushover request failed: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("pushover API error %d", resp.StatusCode)
	}

	c.logger.Debug("pushover notification sent", "chars", len(message))
	return nil
}
