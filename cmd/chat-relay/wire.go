package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/velmie/chatrelay"
	"github.com/velmie/chatrelay/gormstore"
	"github.com/velmie/chatrelay/internal/config"
	"github.com/velmie/chatrelay/internal/logging"
	"github.com/velmie/chatrelay/internal/telemetry"
	"github.com/velmie/chatrelay/mysql"
	"github.com/velmie/chatrelay/redisledger"
	"github.com/velmie/chatrelay/webhook"
)

const (
	pingTimeout     = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

type relayStore interface {
	chatrelay.Store
	chatrelay.PendingCounter
	Migrate(ctx context.Context) error
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("trace shutdown failed", zap.Error(err))
		}
	}()

	reporting, err := telemetry.SetupSentry(cfg.Sentry.DSN, cfg.Sentry.Environment, version)
	if err != nil {
		return err
	}
	if reporting {
		defer telemetry.FlushSentry()
	}

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.Store.Migrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	relayLogger := logging.Relay(logger)
	sink, err := newSink(cfg.Sink, relayLogger)
	if err != nil {
		return err
	}
	if err := sink.Open(ctx); err != nil {
		return fmt.Errorf("open sink session: %w", err)
	}
	defer sink.Close()

	ledger, closeLedger, err := openLedger(ctx, cfg.Ledger)
	if err != nil {
		return err
	}
	defer closeLedger()

	counters := &chatrelay.Counters{}
	opts := relayOptions(cfg, relayLogger, counters, ledger, reporting)
	runner := chatrelay.NewRunner(chatrelay.NewScheduler(store, sink, opts...), opts...)

	if pending, err := store.PendingCount(ctx); err == nil {
		logger.Info("chat-relay starting",
			zap.String("version", version),
			zap.String("driver", cfg.Store.Driver),
			zap.Int("pending", pending),
			zap.Duration("interval", cfg.Relay.Interval),
		)
	} else {
		logger.Warn("pending count failed", zap.Error(err))
	}

	if err := runner.Run(ctx); err != nil {
		return err
	}

	snap := counters.Snapshot()
	logger.Info("chat-relay stopped",
		zap.Int64("ticks", snap.Ticks),
		zap.Int64("delivered", snap.Delivered),
		zap.Int64("failed", snap.Failed),
		zap.Int64("missing", snap.Missing),
		zap.Int64("skipped", snap.Skipped),
		zap.Int64("pending", snap.Pending),
	)

	return nil
}

func relayOptions(
	cfg config.Config,
	logger chatrelay.Logger,
	metrics chatrelay.Metrics,
	ledger chatrelay.Ledger,
	reporting bool,
) []chatrelay.Option {
	opts := []chatrelay.Option{
		chatrelay.WithInterval(cfg.Relay.Interval),
		chatrelay.WithRunOnStart(cfg.Relay.RunOnStart),
		chatrelay.WithSendTimeout(cfg.Relay.SendTimeout),
		chatrelay.WithLogger(logger),
		chatrelay.WithMetrics(metrics),
	}
	if ledger != nil {
		opts = append(opts, chatrelay.WithLedger(ledger))
	}
	if reporting {
		opts = append(opts, chatrelay.WithFailureHandler(chatrelay.FailureHandlers(telemetry.ReportFailure(nil))))
	}

	return opts
}

func openStore(ctx context.Context, cfg config.Store) (relayStore, func(), error) {
	switch cfg.Driver {
	case "mysql":
		db, err := sql.Open("mysql", cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := db.PingContext(pctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ping mysql: %w", err)
		}
		store, err := mysql.NewStore(db, mysql.WithTable(cfg.Table), mysql.WithFetchLimit(cfg.FetchLimit))
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return store, func() { _ = db.Close() }, nil
	default:
		db, err := gormstore.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		store, err := gormstore.New(db, gormstore.WithTable(cfg.Table), gormstore.WithFetchLimit(cfg.FetchLimit))
		if err != nil {
			_ = gormstore.Close(db)
			return nil, nil, err
		}

		return store, func() { _ = gormstore.Close(db) }, nil
	}
}

func newSink(cfg config.Sink, logger chatrelay.Logger) (*webhook.Client, error) {
	opts := []webhook.Option{
		webhook.WithTimeout(cfg.Timeout),
		webhook.WithLogger(logger),
	}
	if cfg.TokenURL != "" {
		opts = append(opts, webhook.WithClientCredentials(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret))
	}
	if cfg.ReplyURL != "" && cfg.ReplyWait > 0 {
		opts = append(opts, webhook.WithReplyWait(cfg.ReplyURL, cfg.ReplyWait, cfg.ReplyPoll))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, webhook.WithRateLimit(cfg.RateLimit, cfg.RateBurst))
	}

	return webhook.New(cfg.URL, opts...)
}

// openLedger returns a nil ledger when no redis address is configured.
func openLedger(ctx context.Context, cfg config.Ledger) (chatrelay.Ledger, func(), error) {
	if cfg.RedisAddr == "" {
		return nil, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	ledger, err := redisledger.New(client, redisledger.WithTTL(cfg.TTL), redisledger.WithPrefix(cfg.Prefix))
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	return ledger, func() { _ = client.Close() }, nil
}
