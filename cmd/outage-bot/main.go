package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/outage-bot/internal/app"
	"github.com/samvad-hq/outage-bot/internal/config"
	"github.com/samvad-hq/outage-bot/internal/ircconn"
	"github.com/samvad-hq/outage-bot/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "outage-bot failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	redacted := *cfg
	if redacted.IRC.Password != "" {
		redacted.IRC.Password = "<redacted>"
	}
	logger.InfoObj("outage-bot starting", "config", redacted)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot, err := app.NewBot(ctx, cfg, log, ircconn.TerminalPrompt)
	if err != nil {
		logger.ErrorObj("failed to initialize bot", "error", err.Error())
		return err
	}

	if err := bot.Run(ctx); err != nil {
		return fmt.Errorf("bot run: %w", err)
	}
	return nil
}
