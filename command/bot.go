package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zephyrtronium/bouncer/cooldown"
	"github.com/zephyrtronium/bouncer/message"
	"github.com/zephyrtronium/bouncer/metrics"
	"github.com/zephyrtronium/bouncer/registry"
	"github.com/zephyrtronium/bouncer/snipe"
	"github.com/zephyrtronium/bouncer/syncmap"
)

// Bot is the bot state as is visible to commands.
type Bot struct {
	Log       *slog.Logger
	Registry  *registry.Registry
	Cooldowns *cooldown.Tracker
	Spam      *cooldown.Counter
	Snipes    *snipe.Cache
	Platform  Platform
	Metrics   *metrics.Metrics
	// Owner is the user ID of the bot owner.
	Owner string
	// Prefix is the command prefix.
	Prefix string
	Settings

	// commands is the router's command table, for help.
	commands []*Descriptor
	// pins holds the nicknames of members whose names are locked.
	pins pins
}

// Settings are tunables for commands and guards.
type Settings struct {
	// WakeupMax is the largest number of round trips wakeup performs.
	WakeupMax int
	// WakeupDelay is the pause between wakeup moves.
	WakeupDelay time.Duration
	// WakeupCooldown is the per-caller wakeup cooldown.
	WakeupCooldown time.Duration
	// WakeupAway is the voice channel wakeup moves members to and from.
	WakeupAway string
	// CommandCooldown is the minimum interval between commands from a single
	// untrusted caller.
	CommandCooldown time.Duration
	// SpamTimeout is how long the spam guard silences a member.
	SpamTimeout time.Duration
	// Ping picks a reply to the ping command.
	Ping func() string
	// Apology is the reply when a command fails outside the bot's control.
	Apology string
}

// Refusal is the reply to callers without permission for a command.
const Refusal = "You don't have permission to use that command."

// TierOf resolves the permission tier of a message's sender.
func (b *Bot) TierOf(msg *message.Received) Tier {
	switch {
	case msg.Sender == b.Owner:
		return Owner
	case msg.IsAdmin, b.Registry.Contains(registry.Whitelist, msg.Sender):
		return Trusted
	default:
		return Everyone
	}
}

// Do performs an external action, logging and counting failures.
func (b *Bot) Do(ctx context.Context, action string, f func(ctx context.Context) error) Result {
	err := f(ctx)
	if err != nil {
		b.Log.ErrorContext(ctx, "action failed", slog.String("action", action), slog.Any("err", err))
		b.Metrics.ActionFailures.Observe(1, action)
	}
	return Result{Action: action, Err: err}
}

// Reply sends a reply to an invocation.
func (b *Bot) Reply(ctx context.Context, call *Invocation, text string) Result {
	msg := message.Sent{Reply: call.Message.ID, To: call.Message.To, Text: text}
	return b.Send(ctx, msg)
}

// Replyf sends a formatted reply to an invocation.
func (b *Bot) Replyf(ctx context.Context, call *Invocation, format string, args ...any) Result {
	return b.Reply(ctx, call, fmt.Sprintf(format, args...))
}

// Send sends a message.
func (b *Bot) Send(ctx context.Context, msg message.Sent) Result {
	return b.Do(ctx, "send", func(ctx context.Context) error { return b.Platform.Send(ctx, msg) })
}

// Usage replies with the usage text of the invoked command.
func (b *Bot) Usage(ctx context.Context, call *Invocation) Result {
	return b.Replyf(ctx, call, "Usage: %s%s", b.Prefix, call.Usage)
}

// Apologize replies with the generic failure message.
func (b *Bot) Apologize(ctx context.Context, call *Invocation) {
	text := b.Apology
	if text == "" {
		text = "Something went wrong."
	}
	b.Reply(ctx, call, text)
}

// Persisted handles the error from a registry mutation. Persistence failures
// leave the in-memory state authoritative, so they are only counted.
// It returns false if the mutation itself was rejected.
func (b *Bot) Persisted(ctx context.Context, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, registry.ErrUnknown), errors.Is(err, registry.ErrNegativeLimit):
		b.Log.ErrorContext(ctx, "registry rejected mutation", slog.Any("err", err))
		return false
	default:
		b.Metrics.PersistFailures.Observe(1)
		return true
	}
}

// pins is a set of pinned nicknames.
type pins struct {
	nicks syncmap.Map[string, string]
}

// get returns the pinned nickname for a member, pinning def if there is none.
func (p *pins) get(user, def string) string {
	n, _ := p.nicks.LoadOrStore(user, def)
	return n
}

func (p *pins) set(user, nick string) {
	p.nicks.Store(user, nick)
}

func (p *pins) remove(user string) {
	p.nicks.Delete(user)
}
