// Package config loads process configuration from an optional file and CHATRELAY_ env vars.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "CHATRELAY"

// Config is the full process configuration.
type Config struct {
	Relay     Relay     `mapstructure:"relay"`
	Store     Store     `mapstructure:"store"`
	Sink      Sink      `mapstructure:"sink"`
	Ledger    Ledger    `mapstructure:"ledger"`
	Log       Log       `mapstructure:"log"`
	Telemetry Telemetry `mapstructure:"telemetry"`
	Sentry    Sentry    `mapstructure:"sentry"`
}

// Relay controls the tick schedule.
type Relay struct {
	Interval    time.Duration `mapstructure:"interval" validate:"gt=0"`
	SendTimeout time.Duration `mapstructure:"send_timeout" validate:"gt=0"`
	RunOnStart  bool          `mapstructure:"run_on_start"`
}

// Store selects the outbox backend.
type Store struct {
	Driver     string `mapstructure:"driver" validate:"oneof=mysql postgres sqlite"`
	DSN        string `mapstructure:"dsn" validate:"required"`
	Table      string `mapstructure:"table" validate:"required,max=64"`
	FetchLimit int    `mapstructure:"fetch_limit" validate:"gte=0"`
	Migrate    bool   `mapstructure:"migrate"`
}

// Sink configures the webhook client.
type Sink struct {
	URL          string        `mapstructure:"url" validate:"required,url"`
	TokenURL     string        `mapstructure:"token_url" validate:"omitempty,url"`
	ClientID     string        `mapstructure:"client_id" validate:"required_with=TokenURL"`
	ClientSecret string        `mapstructure:"client_secret" validate:"required_with=TokenURL"`
	ReplyURL     string        `mapstructure:"reply_url" validate:"omitempty,url"`
	ReplyWait    time.Duration `mapstructure:"reply_wait" validate:"gte=0"`
	ReplyPoll    time.Duration `mapstructure:"reply_poll" validate:"gte=0"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RateLimit    float64       `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst    int           `mapstructure:"rate_burst" validate:"gte=0"`
}

// Ledger enables the redis delivery ledger when RedisAddr is set.
type Ledger struct {
	RedisAddr     string        `mapstructure:"redis_addr" validate:"omitempty,hostname_port"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" validate:"gte=0"`
	TTL           time.Duration `mapstructure:"ttl" validate:"gte=0"`
	Prefix        string        `mapstructure:"prefix"`
}

// Log configures the process logger.
type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// Telemetry configures trace export. An empty endpoint disables it.
type Telemetry struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint" validate:"omitempty,url"`
	ServiceName  string `mapstructure:"service_name" validate:"required"`
}

// Sentry configures error reporting. An empty DSN disables it.
type Sentry struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// ErrReplyWaitTooLong indicates the reply window does not fit in the send timeout.
var ErrReplyWaitTooLong = errors.New("config: sink.reply_wait must be shorter than relay.send_timeout")

func setDefaults(v *viper.Viper) {
	v.SetDefault("relay.interval", 5*time.Minute)
	v.SetDefault("relay.send_timeout", 30*time.Second)
	v.SetDefault("relay.run_on_start", false)
	v.SetDefault("store.driver", "mysql")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "outbox_messages")
	v.SetDefault("store.fetch_limit", 0)
	v.SetDefault("store.migrate", false)
	v.SetDefault("sink.url", "")
	v.SetDefault("sink.token_url", "")
	v.SetDefault("sink.client_id", "")
	v.SetDefault("sink.client_secret", "")
	v.SetDefault("sink.reply_url", "")
	v.SetDefault("sink.reply_wait", 0)
	v.SetDefault("sink.reply_poll", 500*time.Millisecond)
	v.SetDefault("sink.timeout", 10*time.Second)
	v.SetDefault("sink.rate_limit", 0)
	v.SetDefault("sink.rate_burst", 1)
	v.SetDefault("ledger.redis_addr", "")
	v.SetDefault("ledger.redis_password", "")
	v.SetDefault("ledger.redis_db", 0)
	v.SetDefault("ledger.ttl", 7*24*time.Hour)
	v.SetDefault("ledger.prefix", "chatrelay:delivered:")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "chat-relay")
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "")
}

// Load reads path when non-empty, applies env overrides and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Sink.ReplyWait > 0 && c.Sink.ReplyWait >= c.Relay.SendTimeout {
		return ErrReplyWaitTooLong
	}

	return nil
}
