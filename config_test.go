package main_test

import (
	"context"
	_ "embed"
	"strings"
	"testing"

	main "github.com/zephyrtronium/bouncer"
)

//go:embed example.toml
var exampleToml string

func eqcase[T comparable](t *testing.T, name string, val T, eq T) {
	t.Helper()
	if val != eq {
		t.Errorf("wrong %s: want %#v, got %#v", name, eq, val)
	}
}

func TestExampleConfig(t *testing.T) {
	t.Setenv("OWNER_ID", "51421897")
	t.Setenv("TOKEN", "bocchi")
	cfg, _, err := main.Load(context.Background(), strings.NewReader(exampleToml))
	if err != nil {
		t.Fatalf("failed to load example.toml: %v", err)
	}

	eqcase(t, "Prefix", cfg.Prefix, "+")
	eqcase(t, "Cooldown", cfg.Cooldown, 1.5)
	eqcase(t, "Apology", cfg.Apology, "Sorry, that didn't work.")
	eqcase(t, "Owner.ID", cfg.Owner.ID, "51421897")
	eqcase(t, "Owner.Name", cfg.Owner.Name, "zephyrtronium")
	eqcase(t, "Owner.Contact", cfg.Owner.Contact, "@zephyrtronium")
	eqcase(t, "Discord.Token", cfg.Discord.Token, "bocchi")
	eqcase(t, "Discord.Guild", cfg.Discord.Guild, "1010101010101010101")
	eqcase(t, "Discord.Rate.Every", cfg.Discord.Rate.Every, 2.5)
	eqcase(t, "Discord.Rate.Num", cfg.Discord.Rate.Num, 5)
	eqcase(t, "Store.Kind", cfg.Store.Kind, "sqlite")
	eqcase(t, "Store.KVFlag", cfg.Store.KVFlag, "")
	eqcase(t, "HTTP.Listen", cfg.HTTP.Listen, ":4959")
	eqcase(t, "Wakeup.Max", cfg.Wakeup.Max, 150)
	eqcase(t, "Wakeup.Delay", cfg.Wakeup.Delay, 0.5)
	eqcase(t, "Wakeup.Cooldown", cfg.Wakeup.Cooldown, 300)
	eqcase(t, "Wakeup.Away", cfg.Wakeup.Away, "2020202020202020202")
	eqcase(t, "Spam.Threshold", cfg.Spam.Threshold, 6)
	eqcase(t, "Spam.Decay", cfg.Spam.Decay, 4)
	eqcase(t, "Spam.Timeout", cfg.Spam.Timeout, 120)
	eqcase(t, "Ping[`Pong!`]", cfg.Ping["Pong!"], 10)
	eqcase(t, "Ping[`I'm awake.`]", cfg.Ping["I'm awake."], 3)
	eqcase(t, "Ping[`🏓`]", cfg.Ping["🏓"], 1)
	if !strings.Contains(cfg.Store.Path, "file:") || strings.Contains(cfg.Store.Path, "$") {
		t.Errorf("wrong Store.Path: %q", cfg.Store.Path)
	}
}

func TestDefaults(t *testing.T) {
	t.Setenv("TOKEN", "kita")
	t.Setenv("PORT", "8080")
	cfg, _, err := main.Load(context.Background(), strings.NewReader(`[owner]
id = "1"`))
	if err != nil {
		t.Fatalf("failed to load minimal config: %v", err)
	}
	eqcase(t, "Prefix", cfg.Prefix, "+")
	eqcase(t, "Discord.Token", cfg.Discord.Token, "kita")
	eqcase(t, "HTTP.Listen", cfg.HTTP.Listen, ":8080")
	eqcase(t, "Store.Kind", cfg.Store.Kind, "json")
	eqcase(t, "Store.Path", cfg.Store.Path, "data")
	eqcase(t, "Wakeup.Max", cfg.Wakeup.Max, 150)
	eqcase(t, "Wakeup.Delay", cfg.Wakeup.Delay, 0.5)
	eqcase(t, "Spam.Threshold", cfg.Spam.Threshold, 5)
}

func TestWakeupMaxCapped(t *testing.T) {
	cfg, _, err := main.Load(context.Background(), strings.NewReader(`[wakeup]
max = 1000`))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	eqcase(t, "Wakeup.Max", cfg.Wakeup.Max, 150)
}

func TestBadConfig(t *testing.T) {
	_, _, err := main.Load(context.Background(), strings.NewReader(`prefix = [`))
	if err == nil {
		t.Error("no error for malformed config")
	}
}
