// Package agent talks to per-property access agents, the services that
// drive the physical locks.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/str-access/backend/internal/unlock"
)

// Client posts unlock commands to an agent's /unlock/{action} endpoint.
type Client struct {
	client *resty.Client
}

// NewClient creates an agent client. The timeout caps every request in
// addition to any deadline on the caller's context.
func NewClient(timeout time.Duration) *Client {
	c := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &Client{client: c}
}

// UnlockURL builds the endpoint for action on the agent at agentURL.
func UnlockURL(agentURL, action string) string {
	return strings.TrimSuffix(agentURL, "/") + "/unlock/" + url.PathEscape(action)
}

// Dispatch sends cmd to the agent. Any HTTP response, whatever its status,
// is returned as a Reply; only transport failures and timeouts are errors.
func (c *Client) Dispatch(ctx context.Context, agentURL string, cmd unlock.Command) (unlock.Reply, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&cmd).
		Post(UnlockURL(agentURL, cmd.Action))
	if err != nil {
		return unlock.Reply{}, fmt.Errorf("agent request: %w", err)
	}

	return unlock.Reply{
		StatusCode: resp.StatusCode(),
		Body:       decodeBody(resp.Body()),
	}, nil
}

// decodeBody parses the agent's answer; anything that is not JSON reads as {}.
func decodeBody(raw []byte) any {
	var body any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return map[string]any{}
	}
	return body
}
