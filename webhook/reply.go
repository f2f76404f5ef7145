package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/velmie/chatrelay"
)

// awaitReply polls the reply endpoint until a reply shows up, the window closes or ctx ends.
// The message is already accepted, so every outcome is a delivery.
func (c *Client) awaitReply(ctx context.Context, id string, tokens oauth2.TokenSource) chatrelay.Delivery {
	window := time.NewTimer(c.cfg.ReplyWait)
	defer window.Stop()
	poll := time.NewTicker(c.cfg.ReplyPoll)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			c.cfg.Logger.Warn("reply wait interrupted", "message_id", id, "err", ctx.Err())

			return chatrelay.Delivery{}
		case <-window.C:
			c.cfg.Logger.Info("reply wait expired", "message_id", id, "wait", c.cfg.ReplyWait.String())

			return chatrelay.Delivery{}
		case <-poll.C:
			reply, err := c.fetchReply(ctx, id, tokens)
			if err != nil {
				c.cfg.Logger.Debug("reply poll failed", "message_id", id, "err", err)
				continue
			}
			if reply != "" {
				return chatrelay.Delivery{Reply: reply, Replied: true}
			}
		}
	}
}

func (c *Client) fetchReply(ctx context.Context, id string, tokens oauth2.TokenSource) (string, error) {
	u, err := url.Parse(c.cfg.ReplyURL)
	if err != nil {
		return "", fmt.Errorf("chatrelay webhook: parse reply url: %w", err)
	}
	q := u.Query()
	q.Set("message_id", id)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	if err := c.authorize(ctx, req, tokens); err != nil {
		return "", err
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return "", nil
	case resp.StatusCode == http.StatusUnauthorized:
		c.invalidate(tokens)
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out); err != nil {
		return "", fmt.Errorf("chatrelay webhook: decode reply: %w", err)
	}

	return out.Reply, nil
}
