package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/outage-bot/internal/announce"
	"github.com/samvad-hq/outage-bot/internal/commands"
	"github.com/samvad-hq/outage-bot/internal/config"
	"github.com/samvad-hq/outage-bot/internal/domain"
	"github.com/samvad-hq/outage-bot/internal/heartbeat"
	"github.com/samvad-hq/outage-bot/internal/ircconn"
	"github.com/samvad-hq/outage-bot/internal/logger"
	"github.com/samvad-hq/outage-bot/internal/notify"
	"github.com/samvad-hq/outage-bot/internal/poller"
	"github.com/samvad-hq/outage-bot/internal/render"
	"github.com/samvad-hq/outage-bot/internal/storage"
	"github.com/samvad-hq/outage-bot/pkg/providers"
	"github.com/samvad-hq/outage-bot/pkg/publishers"
)

// Dialer opens the chat connection. It is ircconn.Connect outside of tests.
type Dialer func(ctx context.Context, spec ircconn.Spec, readyTimeout time.Duration, log logger.Logger) (ircconn.Client, error)

// Bot represents the outage bot runtime. It owns the feed loops, the command
// path and the heartbeat, all sharing one chat connection, and it handles
// storage initialization and cleanup.
type Bot struct {
	cfg         *config.Config
	spec        ircconn.Spec
	providerReg *providers.Registry
	fetchers    providers.FetcherRegistry
	store       storage.Store
	notify      *notify.Registry
	fanout      *publishers.Fanout
	stats       *domain.Stats
	dial        Dialer
	log         logger.Logger
}

// NewBot validates every startup input before any network connection is made.
func NewBot(ctx context.Context, cfg *config.Config, log logger.Logger, prompt ircconn.PasswordPrompter) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	spec, err := ircconn.BuildSpec(cfg.IRC, prompt)
	if err != nil {
		return nil, fmt.Errorf("build connection spec: %w", err)
	}

	providerReg, err := providers.LoadRegistry(cfg.ProvidersFile)
	if err != nil {
		return nil, fmt.Errorf("load providers registry: %w", err)
	}
	log.InfoObj("providers registry loaded", "providers_meta", map[string]any{
		"count": len(providerReg.IDs()),
		"ids":   providerReg.IDs(),
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, storage.Options{
		CacheDir:   cfg.CacheDir,
		BBoltPath:  cfg.BBoltPath,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":      cfg.StorageType,
		"cache_dir": cfg.CacheDir,
	})

	notifyReg, err := notify.Open(cfg.NotifyFile, providerReg.IDs())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open notify registry: %w", err)
	}

	return &Bot{
		cfg:         cfg,
		spec:        spec,
		providerReg: providerReg,
		fetchers:    providers.DefaultFetcherRegistry(nil),
		store:       store,
		notify:      notifyReg,
		fanout:      fanout,
		stats:       domain.NewStats(time.Now()),
		dial:        dialIRC,
		log:         log,
	}, nil
}

func dialIRC(ctx context.Context, spec ircconn.Spec, readyTimeout time.Duration, log logger.Logger) (ircconn.Client, error) {
	return ircconn.Connect(ctx, spec, readyTimeout, log)
}

// buildFanout loads the optional event mirror sinks.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{"id": pubCfg.ID, "type": pubCfg.Type})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run connects, starts every loop and blocks until ctx is cancelled, then
// leaves the channel and shuts down.
func (b *Bot) Run(ctx context.Context) error {
	if b == nil || b.dial == nil {
		return fmt.Errorf("bot is not initialized")
	}
	defer b.closeStore()

	client, err := b.dial(ctx, b.spec, b.cfg.IRC.ReadyTimeout, b.log)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	feeds := b.providerReg.All()
	polling, proc, hb, err := b.components(client, feeds)
	if err != nil {
		client.Close()
		return err
	}

	queue := newCommandQueue(commandQueueSize, proc.Handle, b.log)
	client.OnMessage(func(msg domain.ChatMessage) {
		if strings.EqualFold(msg.Sender, client.Nick()) {
			return
		}
		queue.Offer(msg)
	})

	b.log.InfoObj("bot loop starting", "bot_state", map[string]any{
		"providers_count":  len(feeds),
		"publishers_count": b.fanout.Size(),
		"default_interval": b.cfg.PollingInterval.String(),
		"channel":          b.spec.Channel,
	})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		hb.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		queue.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := polling.Run(ctx, feeds); err != nil {
			b.log.ErrorObj("poller stopped", "error", err.Error())
		}
	}()

	<-ctx.Done()
	b.log.InfoObj("bot shutting down", "reason", ctx.Err().Error())
	b.leave(client)
	wg.Wait()
	return nil
}

// components builds the per-connection collaborators.
func (b *Bot) components(client ircconn.Client, feeds []providers.Provider) (*poller.Service, *commands.Processor, *heartbeat.Heartbeat, error) {
	hb := heartbeat.New(client, b.cfg.IRC.PingInterval, b.log)

	annOpts := announce.Options{
		Client:   client,
		Channel:  b.spec.Channel,
		Renderer: render.DefaultRegistry(),
		Notify:   b.notify,
		Stats:    b.stats,
		Log:      b.log,
	}
	if b.fanout.Size() > 0 {
		annOpts.Mirror = b.fanout
	}
	announcer, err := announce.New(annOpts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init announcer: %w", err)
	}

	polling, err := poller.NewService(poller.Options{
		Fetchers:        b.fetchers,
		Store:           b.store,
		Announcer:       announcer,
		DefaultInterval: b.cfg.PollingInterval,
		Spacing:         b.cfg.IRC.FloodProtectWait,
		SilentFirstRun:  b.cfg.IRC.SilentFirstRun,
		Log:             b.log,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init poller: %w", err)
	}

	registry := commands.NewRegistry(b.cfg.IRC.CommandPrefix, commands.Builtins(commands.Deps{
		Stats:  b.stats,
		Feeds:  feeds,
		Notify: b.notify,
		Lag:    hb.LastRTT,
	})...)
	proc, err := commands.NewProcessor(commands.Options{
		Registry:      registry,
		Client:        client,
		Prefix:        b.cfg.IRC.CommandPrefix,
		Spacing:       b.cfg.IRC.CommandFloodProtectWait,
		CounterSuffix: b.cfg.IRC.CounterSuffix,
		Log:           b.log,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init command processor: %w", err)
	}

	return polling, proc, hb, nil
}

// leave parts the channel, gives the server the grace period to flush, and
// closes the connection. Queued commands are not awaited.
func (b *Bot) leave(client ircconn.Client) {
	if err := client.Part(b.spec.Channel, b.spec.QuitMessage); err != nil {
		b.log.WarnObj("part failed", "error", err.Error())
	}
	if b.cfg.IRC.QuitGrace > 0 {
		time.Sleep(b.cfg.IRC.QuitGrace)
	}
	client.Close()
}

// closeStore safely closes the storage backend, logging any errors encountered.
func (b *Bot) closeStore() {
	if b == nil || b.store == nil {
		return
	}
	if err := b.store.Close(); err != nil {
		b.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
