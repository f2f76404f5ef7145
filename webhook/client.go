// Package webhook delivers outbox messages to a chat channel over HTTP.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/velmie/chatrelay"
)

const maxResponseBody = 1 << 20

type payload struct {
	ID            string `json:"id"`
	ChatID        string `json:"chat_id"`
	ItemID        string `json:"item_id,omitempty"`
	AuthorID      string `json:"author_id,omitempty"`
	ChannelUserID string `json:"channel_user_id,omitempty"`
	Content       string `json:"content"`
}

type response struct {
	MessageID string `json:"message_id"`
	Reply     string `json:"reply"`
}

// Client implements chatrelay.Sink with a JSON POST per message.
type Client struct {
	url     string
	cfg     Config
	limiter *rate.Limiter

	mu     sync.Mutex
	open   bool
	tokens oauth2.TokenSource
}

var _ chatrelay.Sink = (*Client)(nil)

// New constructs a client posting to rawURL. Call Open before Send.
func New(rawURL string, opts ...Option) (*Client, error) {
	if rawURL == "" {
		return nil, ErrURLRequired
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("chatrelay webhook: parse url: %w", err)
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	c := &Client{url: rawURL, cfg: cfg}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	return c, nil
}

// Open starts the session. With client credentials configured it fetches the first token
// and fails with ErrAuthFailed when the channel rejects them.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.TokenURL != "" {
		tokens := c.newTokenSource()
		if _, err := tokenWithContext(ctx, tokens); err != nil {
			return fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
		c.tokens = tokens
	}
	c.open = true

	return nil
}

// Close ends the session and releases idle connections.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.open = false
	c.tokens = nil
	c.cfg.HTTPClient.CloseIdleConnections()

	return nil
}

// Send posts msg and returns the channel's reply when one arrives within the reply window.
func (c *Client) Send(ctx context.Context, msg chatrelay.Message) (chatrelay.Delivery, error) {
	tokens, err := c.session()
	if err != nil {
		return chatrelay.Delivery{}, &chatrelay.DeliveryError{Reason: "no session", Err: err}
	}
	if err := c.wait(ctx); err != nil {
		return chatrelay.Delivery{}, &chatrelay.DeliveryError{Reason: "rate limit", Err: err}
	}

	body, err := json.Marshal(payload{
		ID:            msg.ID,
		ChatID:        msg.ChatID,
		ItemID:        msg.ItemID,
		AuthorID:      msg.AuthorID,
		ChannelUserID: msg.ChannelUserID,
		Content:       msg.Content,
	})
	if err != nil {
		return chatrelay.Delivery{}, &chatrelay.DeliveryError{Reason: "encode", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return chatrelay.Delivery{}, &chatrelay.DeliveryError{Reason: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", msg.ID)
	if err := c.authorize(ctx, req, tokens); err != nil {
		return chatrelay.Delivery{}, &chatrelay.DeliveryError{Reason: "auth", Err: err}
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return chatrelay.Delivery{}, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidate(tokens)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

		return chatrelay.Delivery{}, &chatrelay.DeliveryError{
			Reason: fmt.Sprintf("status %d", resp.StatusCode),
			Err:    fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode),
		}
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		// The channel accepted the message, an unreadable body only loses the reply.
		c.cfg.Logger.Warn("webhook response unreadable", "message_id", msg.ID, "err", err)
	}
	if out.Reply != "" {
		return chatrelay.Delivery{Reply: out.Reply, Replied: true}, nil
	}
	if c.cfg.ReplyURL != "" && c.cfg.ReplyWait > 0 {
		return c.awaitReply(ctx, msg.ID, tokens), nil
	}

	return chatrelay.Delivery{}, nil
}

func (c *Client) session() (oauth2.TokenSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrNoSession
	}

	return c.tokens, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}

	return c.limiter.Wait(ctx)
}

func (c *Client) authorize(ctx context.Context, req *http.Request, tokens oauth2.TokenSource) error {
	if tokens == nil {
		return nil
	}
	tok, err := tokenWithContext(ctx, tokens)
	if err != nil {
		return err
	}
	tok.SetAuthHeader(req)

	return nil
}

// invalidate swaps in a fresh token source so the next request re-authenticates.
func (c *Client) invalidate(stale oauth2.TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open && c.tokens != nil && c.tokens == stale {
		c.tokens = c.newTokenSource()
		c.cfg.Logger.Warn("webhook token rejected, re-authenticating on next send")
	}
}

func (c *Client) newTokenSource() oauth2.TokenSource {
	cc := clientcredentials.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		TokenURL:     c.cfg.TokenURL,
		Scopes:       c.cfg.Scopes,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.cfg.HTTPClient)

	return cc.TokenSource(ctx)
}

// tokenWithContext stops waiting for a token fetch when ctx ends.
func tokenWithContext(ctx context.Context, tokens oauth2.TokenSource) (*oauth2.Token, error) {
	type result struct {
		tok *oauth2.Token
		err error
	}
	done := make(chan result, 1)
	go func() {
		tok, err := tokens.Token()
		done <- result{tok: tok, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.tok, r.err
	}
}

func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &chatrelay.DeliveryError{Reason: "timeout", Err: err}
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return &chatrelay.DeliveryError{Reason: "timeout", Err: err}
	}

	return &chatrelay.DeliveryError{Reason: "transport", Err: err}
}
