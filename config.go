package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	_ "github.com/joho/godotenv/autoload"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/zephyrtronium/bouncer/command"
	"github.com/zephyrtronium/bouncer/registry"
	"github.com/zephyrtronium/bouncer/registry/jsonstore"
	"github.com/zephyrtronium/bouncer/registry/kvstore"
	"github.com/zephyrtronium/bouncer/registry/sqlstore"
)

// Load loads Bouncer's configuration from TOML. Unset options take their
// defaults, and ${VAR} references are expanded from the environment.
func Load(ctx context.Context, r io.Reader) (*Config, *toml.MetaData, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't decode config: %w", err)
	}
	expandcfg(&cfg, os.Getenv)
	defaults(&cfg, os.Getenv)
	if un := md.Undecoded(); len(un) != 0 {
		slog.WarnContext(ctx, "unknown config keys", slog.Any("keys", un))
	}
	return &cfg, &md, nil
}

// Config is the marshaled structure of Bouncer's configuration.
type Config struct {
	// Prefix is the command prefix.
	Prefix string `toml:"prefix"`
	// Cooldown is the minimum interval in seconds between commands from a
	// single untrusted user.
	Cooldown float64 `toml:"cooldown"`
	// Apology is the reply when a command fails for reasons outside the
	// caller's control.
	Apology string `toml:"apology"`
	// Owner is the bot owner, who may use every command.
	Owner Owner `toml:"owner"`
	// Discord is the gateway connection configuration.
	Discord DiscordCfg `toml:"discord"`
	// Store is the registry persistence configuration.
	Store StoreCfg `toml:"store"`
	// HTTP is the keep-alive and metrics server configuration.
	HTTP HTTPCfg `toml:"http"`
	// Wakeup is the wakeup command configuration.
	Wakeup WakeupCfg `toml:"wakeup"`
	// Spam is the spam guard configuration.
	Spam SpamCfg `toml:"spam"`
	// Ping is the set of replies to the ping command with their weights.
	Ping map[string]int `toml:"ping"`
}

// Owner is metadata about the bot owner.
type Owner struct {
	// ID is the owner's user ID.
	ID string `toml:"id"`
	// Name is the name of the owner. It does not need to be a username.
	Name string `toml:"name"`
	// Contact describes owner contact information.
	Contact string `toml:"contact"`
}

// DiscordCfg is the configuration for connecting to Discord.
type DiscordCfg struct {
	// Token is the bot token. It defaults to $TOKEN.
	Token string `toml:"token"`
	// Guild restricts the bot to a single guild if set.
	Guild string `toml:"guild"`
	// Rate is the rate limit for outgoing messages.
	Rate Rate `toml:"rate"`
}

// StoreCfg selects where the registry lives.
type StoreCfg struct {
	// Kind is one of json, sqlite, or badger.
	Kind string `toml:"kind"`
	// Path is the directory for json, the DSN for sqlite, or the directory
	// for badger.
	Path string `toml:"path"`
	// KVFlag is a badger superflag string.
	KVFlag string `toml:"kvflag"`
}

type HTTPCfg struct {
	// Listen is the address to serve on. It defaults to :$PORT when PORT is
	// set. If empty, no server runs.
	Listen string `toml:"listen"`
}

type WakeupCfg struct {
	// Max caps the number of round trips.
	Max int `toml:"max"`
	// Delay is the pause between moves in seconds.
	Delay float64 `toml:"delay"`
	// Cooldown is the per-caller cooldown in seconds.
	Cooldown float64 `toml:"cooldown"`
	// Away is the voice channel to bounce members through.
	Away string `toml:"away"`
}

type SpamCfg struct {
	// Threshold is the number of messages that trips the guard.
	Threshold int `toml:"threshold"`
	// Decay is how long each message counts, in seconds.
	Decay float64 `toml:"decay"`
	// Timeout is how long spammers are timed out, in seconds.
	Timeout float64 `toml:"timeout"`
}

// Rate is a rate limit configuration.
type Rate struct {
	Every float64 `toml:"every"`
	Num   int     `toml:"num"`
}

func expandcfg(cfg *Config, expand func(s string) string) {
	fields := []*string{
		&cfg.Prefix,
		&cfg.Owner.ID,
		&cfg.Owner.Name,
		&cfg.Owner.Contact,
		&cfg.Discord.Token,
		&cfg.Discord.Guild,
		&cfg.Store.Kind,
		&cfg.Store.Path,
		&cfg.Store.KVFlag,
		&cfg.HTTP.Listen,
		&cfg.Wakeup.Away,
	}
	for _, f := range fields {
		*f = os.Expand(*f, expand)
	}
}

func defaults(cfg *Config, env func(s string) string) {
	if cfg.Prefix == "" {
		cfg.Prefix = "+"
	}
	if cfg.Discord.Token == "" {
		cfg.Discord.Token = env("TOKEN")
	}
	if cfg.Discord.Rate.Num <= 0 {
		cfg.Discord.Rate = Rate{Every: 1, Num: 5}
	}
	if cfg.HTTP.Listen == "" {
		if port := env("PORT"); port != "" {
			cfg.HTTP.Listen = ":" + port
		}
	}
	if cfg.Store.Kind == "" {
		cfg.Store.Kind = "json"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "data"
	}
	if cfg.Wakeup.Max <= 0 || cfg.Wakeup.Max > command.DefaultWakeupMax {
		cfg.Wakeup.Max = command.DefaultWakeupMax
	}
	if cfg.Wakeup.Delay <= 0 {
		cfg.Wakeup.Delay = 0.5
	}
	if cfg.Wakeup.Cooldown <= 0 {
		cfg.Wakeup.Cooldown = 60
	}
	if cfg.Spam.Threshold <= 0 {
		cfg.Spam.Threshold = 5
	}
	if cfg.Spam.Decay <= 0 {
		cfg.Spam.Decay = 5
	}
	if cfg.Spam.Timeout <= 0 {
		cfg.Spam.Timeout = 60
	}
}

// loadStore opens the configured registry store. The returned function
// closes any database the store uses.
func loadStore(ctx context.Context, cfg StoreCfg) (registry.Store, func() error, error) {
	nop := func() error { return nil }
	switch cfg.Kind {
	case "json":
		slog.DebugContext(ctx, "using jsonstore", slog.String("path", cfg.Path))
		s, err := jsonstore.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, nop, nil
	case "sqlite":
		slog.DebugContext(ctx, "using sqlstore", slog.String("path", cfg.Path))
		db, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{})
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't open sqlite db: %w", err)
		}
		if err := sqlstore.Init(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("couldn't initialize sqlite db: %w", err)
		}
		s, err := sqlstore.Open(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil
	case "badger":
		slog.DebugContext(ctx, "using kvstore", slog.String("path", cfg.Path), slog.String("flags", cfg.KVFlag))
		opts := badger.DefaultOptions(cfg.Path)
		opts = opts.WithLogger(nil)
		opts = opts.WithCompression(options.None)
		db, err := badger.Open(opts.FromSuperFlag(cfg.KVFlag))
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't open badger db: %w", err)
		}
		return kvstore.New(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

func fseconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
