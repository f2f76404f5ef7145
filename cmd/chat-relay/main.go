// Command chat-relay forwards unsent outbox messages to the chat channel on a fixed interval.
//
// Configuration comes from an optional YAML file (-config) and CHATRELAY_* environment
// variables. SIGINT or SIGTERM stops the relay after the message in flight.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/velmie/chatrelay/internal/config"
	"github.com/velmie/chatrelay/internal/logging"
	"github.com/velmie/chatrelay/internal/telemetry"
)

const exitUsage = 2

var version = "dev"

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(exitUsage)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("chat-relay failed", zap.Error(err))
		telemetry.ReportFatal(err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}
