package webhook

import (
	"net/http"
	"time"

	"github.com/velmie/chatrelay"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultReplyPoll = 500 * time.Millisecond
)

// Config defines how the client talks to the messaging channel.
type Config struct {
	// TokenURL enables the client-credentials session when set.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	// ReplyURL is polled for a reply when the send response carries none.
	ReplyURL  string
	ReplyWait time.Duration
	ReplyPoll time.Duration

	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// RateLimit is the sustained requests per second, zero disables limiting.
	RateLimit  float64
	RateBurst  int
	HTTPClient *http.Client
	Logger     chatrelay.Logger
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.ReplyPoll <= 0 {
		c.ReplyPoll = defaultReplyPoll
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 1
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	if c.Logger == nil {
		c.Logger = chatrelay.NopLogger{}
	}

	return c
}

// Option configures the client.
type Option func(*Config)

// WithClientCredentials enables an OAuth2 client-credentials session against tokenURL.
func WithClientCredentials(tokenURL, clientID, clientSecret string, scopes ...string) Option {
	return func(c *Config) {
		c.TokenURL = tokenURL
		c.ClientID = clientID
		c.ClientSecret = clientSecret
		c.Scopes = scopes
	}
}

// WithReplyWait polls replyURL every poll interval for up to wait after each delivery.
func WithReplyWait(replyURL string, wait, poll time.Duration) Option {
	return func(c *Config) {
		c.ReplyURL = replyURL
		c.ReplyWait = wait
		c.ReplyPoll = poll
	}
}

// WithTimeout bounds each HTTP request made by the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithRateLimit caps outbound requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Config) {
		c.RateLimit = rps
		c.RateBurst = burst
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithLogger sets the client logger.
func WithLogger(logger chatrelay.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
