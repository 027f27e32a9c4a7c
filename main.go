package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/zephyrtronium/bouncer/metrics"
	"github.com/zephyrtronium/bouncer/registry"
)

var app = cli.Command{
	Name:  "bouncer",
	Usage: "Discord moderation bot",

	Flags: []cli.Flag{
		&flagConfig,
		&flagLog,
		&flagLogFormat,
	},
	Commands: []*cli.Command{
		{
			Name:   "dump",
			Usage:  "Print the registry as JSON without serving",
			Action: cliDump,
		},
		{
			Name:  "convert",
			Usage: "Copy the registry into another store",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "kind",
					Usage:    "Destination store kind, one of json, sqlite, badger",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "path",
					Usage:    "Destination store path or DSN",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "kvflag",
					Usage: "Badger superflag for a badger destination",
				},
			},
			Action: cliConvert,
		},
	},
	Action: cliRun,

	Authors: []any{
		"Branden J Brown  @zephyrtronium",
	},
	Copyright: "Copyright 2024 Branden J Brown",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		stop()
	}()
	err := app.Run(ctx, os.Args)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(ctx context.Context, cmd *cli.Command) (*Config, error) {
	r, err := os.Open(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("couldn't open config file: %w", err)
	}
	defer r.Close()
	cfg, _, err := Load(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("couldn't load config: %w", err)
	}
	return cfg, nil
}

func cliRun(ctx context.Context, cmd *cli.Command) error {
	slog.SetDefault(loggerFromFlags(cmd))
	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	if cfg.Discord.Token == "" {
		return errors.New("no Discord token; set discord.token or $TOKEN")
	}
	b, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	err = b.Run(ctx, cfg.HTTP.Listen)
	if cerr := b.Close(context.WithoutCancel(ctx)); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

func cliDump(ctx context.Context, cmd *cli.Command) error {
	slog.SetDefault(loggerFromFlags(cmd))
	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	store, closeDB, err := loadStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeDB()
	reg, err := registry.Open(ctx, store, slog.Default())
	if err != nil {
		// Print what loaded anyway.
		slog.ErrorContext(ctx, "registry loaded with errors", slog.Any("err", err))
	}
	snap := reg.Snapshot()
	out := make([]apiCollection, len(snap))
	for i, l := range snap {
		out[i] = collectionJSON(l)
	}
	b, err := json.Marshal(out, jsontext.WithIndent("\t"))
	if err != nil {
		return fmt.Errorf("couldn't encode registry: %w", err)
	}
	fmt.Println(string(b))
	return nil
}

func cliConvert(ctx context.Context, cmd *cli.Command) error {
	slog.SetDefault(loggerFromFlags(cmd))
	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	dstCfg := StoreCfg{
		Kind:   cmd.String("kind"),
		Path:   cmd.String("path"),
		KVFlag: cmd.String("kvflag"),
	}
	if dstCfg == cfg.Store {
		return errors.New("source and destination are the same store")
	}
	var (
		reg *registry.Registry
		dst registry.Store
	)
	closers := make([]func() error, 2)
	defer func() {
		for _, f := range closers {
			if f != nil {
				f()
			}
		}
	}()
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		src, closeDB, err := loadStore(gctx, cfg.Store)
		if err != nil {
			return fmt.Errorf("couldn't open source: %w", err)
		}
		closers[0] = closeDB
		reg, err = registry.Open(gctx, src, slog.Default())
		if err != nil {
			return fmt.Errorf("couldn't load source: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		var closeDB func() error
		dst, closeDB, err = loadStore(gctx, dstCfg)
		if err != nil {
			return fmt.Errorf("couldn't open destination: %w", err)
		}
		closers[1] = closeDB
		return nil
	})
	if err := group.Wait(); err != nil {
		return err
	}
	snap := reg.Snapshot()
	if err := dst.Save(ctx, snap); err != nil {
		return fmt.Errorf("couldn't save destination: %w", err)
	}
	for _, l := range snap {
		slog.InfoContext(ctx, "converted", slog.String("name", l.Name), slog.Int("ids", len(l.IDs)), slog.Int("pairs", len(l.Pairs)))
	}
	return nil
}

var (
	flagConfig = cli.StringFlag{
		Name:       "config",
		Required:   true,
		Usage:      "TOML config file",
		Persistent: true,
		Action: func(ctx context.Context, cmd *cli.Command, s string) error {
			i, err := os.Stat(s)
			if err != nil {
				return err
			}
			if !i.Mode().IsRegular() {
				return errors.New("config must be a regular file")
			}
			return nil
		},
	}

	flagLog = cli.StringFlag{
		Name:       "log",
		Usage:      "Logging level, one of debug, info, warn, error",
		Value:      "info",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			var l slog.Level
			return l.UnmarshalText([]byte(s))
		},
	}

	flagLogFormat = cli.StringFlag{
		Name:       "log-format",
		Usage:      "Logging format, either text or json",
		Value:      "text",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			switch strings.ToLower(s) {
			case "text", "json":
				return nil
			default:
				return errors.New("unknown logging format")
			}
		},
	}
)

func loggerFromFlags(cmd *cli.Command) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(cmd.String("log"))); err != nil {
		panic(err)
	}
	var h slog.Handler
	switch strings.ToLower(cmd.String("log-format")) {
	case "text":
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	case "json":
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	}
	return slog.New(h)
}

// metrics configuration
func newMetrics() *metrics.Metrics {
	return &metrics.Metrics{
		MessagesCount: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "bouncer",
					Subsystem: "discord",
					Name:      "messages",
					Help:      "Number of messages received from the gateway.",
				},
			),
		),
		CommandCount: metrics.NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "bouncer",
					Subsystem: "commands",
					Name:      "invocations",
					Help:      "Number of commands executed.",
				},
				[]string{"command"},
			),
		),
		DeniedCount: metrics.NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "bouncer",
					Subsystem: "commands",
					Name:      "denied",
					Help:      "Number of commands refused for lack of permission.",
				},
				[]string{"command"},
			),
		),
		ActionFailures: metrics.NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "bouncer",
					Subsystem: "discord",
					Name:      "action_failures",
					Help:      "Number of platform actions that failed.",
				},
				[]string{"action"},
			),
		),
		PersistFailures: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "bouncer",
					Subsystem: "registry",
					Name:      "persist_failures",
					Help:      "Number of registry snapshots that failed to save.",
				},
			),
		),
		WakeupMoves: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "bouncer",
					Subsystem: "commands",
					Name:      "wakeup_moves",
					Help:      "Number of voice moves performed by wakeup.",
				},
			),
		),
		GuardTriggerCount: metrics.NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "bouncer",
					Subsystem: "guards",
					Name:      "triggers",
					Help:      "Number of times each guard acted.",
				},
				[]string{"guard"},
			),
		),
	}
}
