package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"gitlab.com/zephyrtronium/pick"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/zephyrtronium/bouncer/command"
	"github.com/zephyrtronium/bouncer/cooldown"
	"github.com/zephyrtronium/bouncer/metrics"
	"github.com/zephyrtronium/bouncer/registry"
	"github.com/zephyrtronium/bouncer/snipe"
)

// Bouncer is the overall state of the bot.
type Bouncer struct {
	// registry is the persistent access registry.
	registry *registry.Registry
	// closeDB closes the registry's database.
	closeDB func() error
	// router dispatches gateway events.
	router *command.Router
	// discord is the gateway connection.
	discord *Discord
	// metrics is the bot's counters.
	metrics *metrics.Metrics
	// owner is the name of the owner.
	owner string
	// ownerContact describes contact information for the owner.
	ownerContact string
}

// New opens the registry and connects the pieces of the bot. Collections
// that fail to load start empty rather than stopping the bot.
func New(ctx context.Context, cfg *Config) (*Bouncer, error) {
	store, closeDB, err := loadStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	reg, err := registry.Open(ctx, store, slog.Default())
	if err != nil {
		slog.ErrorContext(ctx, "registry loaded with errors; continuing", slog.Any("err", err))
	}
	if cfg.Owner.ID == "" {
		slog.WarnContext(ctx, "no owner ID; continuing with owner commands disabled")
	}
	lim := rate.NewLimiter(rate.Every(fseconds(cfg.Discord.Rate.Every)), cfg.Discord.Rate.Num)
	dc, err := NewDiscord(cfg.Discord.Token, cfg.Discord.Guild, lim, slog.Default())
	if err != nil {
		closeDB()
		return nil, err
	}
	ms := newMetrics()
	bot := &command.Bot{
		Log:       slog.Default(),
		Registry:  reg,
		Cooldowns: cooldown.New(),
		Spam:      cooldown.NewCounter(cfg.Spam.Threshold, fseconds(cfg.Spam.Decay)),
		Snipes:    snipe.New(),
		Platform:  dc,
		Metrics:   ms,
		Owner:     cfg.Owner.ID,
		Prefix:    cfg.Prefix,
		Settings: command.Settings{
			WakeupMax:       cfg.Wakeup.Max,
			WakeupDelay:     fseconds(cfg.Wakeup.Delay),
			WakeupCooldown:  fseconds(cfg.Wakeup.Cooldown),
			WakeupAway:      cfg.Wakeup.Away,
			CommandCooldown: fseconds(cfg.Cooldown),
			SpamTimeout:     fseconds(cfg.Spam.Timeout),
			Ping:            pinger(cfg.Ping),
			Apology:         cfg.Apology,
		},
	}
	router := command.NewRouter(bot, command.Table())
	dc.Route(ctx, router)
	b := &Bouncer{
		registry:     reg,
		closeDB:      closeDB,
		router:       router,
		discord:      dc,
		metrics:      ms,
		owner:        cfg.Owner.Name,
		ownerContact: cfg.Owner.Contact,
	}
	return b, nil
}

// pinger creates a weighted picker over ping replies.
func pinger(replies map[string]int) func() string {
	if len(replies) == 0 {
		return nil
	}
	d := pick.New(pick.FromMap(replies))
	return func() string { return d.Pick(rand.Uint32()) }
}

// Run serves the gateway and, if listen is not empty, the HTTP API until
// ctx is canceled. The registry is flushed before returning.
func (b *Bouncer) Run(ctx context.Context, listen string) error {
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return b.discord.Run(gctx) })
	if listen != "" {
		group.Go(func() error { return b.api(gctx, listen, http.NewServeMux(), b.metrics.Collectors()) })
	}
	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		// If the first error is context canceled, then we are shutting down
		// normally in response to a sigint.
		err = nil
	}
	b.flush(context.WithoutCancel(ctx), "shutdown")
	return err
}

// Close flushes the registry once more and closes its database.
func (b *Bouncer) Close(ctx context.Context) error {
	b.flush(ctx, "close")
	if err := b.closeDB(); err != nil {
		return fmt.Errorf("couldn't close registry db: %w", err)
	}
	return nil
}

func (b *Bouncer) flush(ctx context.Context, why string) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := b.registry.Flush(ctx); err != nil {
		b.metrics.PersistFailures.Observe(1)
		slog.ErrorContext(ctx, "couldn't flush registry", slog.String("on", why), slog.Any("err", err))
		return
	}
	slog.InfoContext(ctx, "flushed registry", slog.String("on", why))
}
