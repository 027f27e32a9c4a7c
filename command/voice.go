package command

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/zephyrtronium/bouncer/cooldown"
	"github.com/zephyrtronium/bouncer/message"
	"github.com/zephyrtronium/bouncer/registry"
)

// Move moves members to a voice channel. Without a channel, members are
// moved to the caller's channel. Untrusted callers may move only
// themselves and members on the permmv list.
func Move(ctx context.Context, bot *Bot, call *Invocation) {
	targets := call.Of(message.User)
	var dst string
	if chs := call.Of(message.Channel); len(chs) != 0 {
		dst = chs[0]
	} else if n := len(call.Args); n > 0 && call.Args[n-1].Kind == message.Plain {
		dst = call.Args[n-1].ID
	}
	if len(targets) == 0 {
		bot.Usage(ctx, call)
		return
	}
	guild, caller := call.Message.Guild, call.Message.Sender
	if call.Tier < Trusted {
		for _, id := range targets {
			if id != caller && !bot.Registry.Contains(registry.PermMove, id) {
				bot.Metrics.DeniedCount.Observe(1, call.Name)
				bot.Reply(ctx, call, Refusal)
				return
			}
		}
	}
	if dst == "" {
		ch, err := bot.Platform.VoiceChannel(ctx, guild, caller)
		if err != nil || ch == "" {
			bot.Reply(ctx, call, "Name a channel or join one first.")
			return
		}
		dst = ch
	}
	var done, failed []string
	for _, id := range targets {
		r := bot.Do(ctx, "move", func(ctx context.Context) error {
			return bot.Platform.Move(ctx, guild, id, dst)
		})
		if r.OK() {
			done = append(done, id)
		} else {
			failed = append(failed, id)
		}
	}
	bot.Reply(ctx, call, outcome("Moved", "move", done, failed))
}

// DefaultWakeupMax is the default cap on wakeup round trips.
const DefaultWakeupMax = 150

// Wakeup bounces a member between the away channel and their current voice
// channel to get their attention.
func Wakeup(ctx context.Context, bot *Bot, call *Invocation) {
	if len(call.Args) == 0 {
		bot.Usage(ctx, call)
		return
	}
	target := call.Args[0].ID
	n := 5
	if len(call.Args) > 1 {
		k, err := strconv.Atoi(call.Args[1].Raw)
		if err != nil || k < 1 {
			bot.Usage(ctx, call)
			return
		}
		n = k
	}
	away := bot.WakeupAway
	if away == "" {
		bot.Reply(ctx, call, "No wakeup channel is configured.")
		return
	}
	guild := call.Message.Guild
	home, err := bot.Platform.VoiceChannel(ctx, guild, target)
	if err != nil {
		bot.Log.ErrorContext(ctx, "couldn't get voice state", slog.String("user", target), slog.Any("err", err))
		bot.Apologize(ctx, call)
		return
	}
	if home == "" {
		bot.Replyf(ctx, call, "%s isn't in a voice channel.", mention(target))
		return
	}
	if home == away {
		bot.Replyf(ctx, call, "%s is already in the wakeup channel.", mention(target))
		return
	}
	// Trigger before moving so concurrent wakeups from the same caller
	// cannot both start.
	key := cooldown.Key(call.Message.Sender, "wakeup")
	if !bot.Cooldowns.TryTrigger(key, bot.WakeupCooldown) {
		left := bot.Cooldowns.Remaining(key, bot.WakeupCooldown).Round(time.Second)
		bot.Replyf(ctx, call, "You can use wakeup again in %v.", left)
		return
	}
	bot.Replyf(ctx, call, "Waking up %s.", mention(target))
	moves := bot.WakeUp(ctx, guild, target, home, away, n)
	bot.Metrics.WakeupMoves.Observe(float64(moves))
}

// WakeUp moves a member to away and back to home n times, capped at the
// configured maximum, which itself never exceeds DefaultWakeupMax.
// Failed moves are logged and the loop continues. It
// returns the number of moves that succeeded. It stops early if ctx is
// canceled.
func (b *Bot) WakeUp(ctx context.Context, guild, user, home, away string, n int) int {
	limit := b.WakeupMax
	if limit <= 0 || limit > DefaultWakeupMax {
		limit = DefaultWakeupMax
	}
	n = min(n, limit)
	moves := 0
	for range n {
		for _, ch := range [2]string{away, home} {
			if ctx.Err() != nil {
				return moves
			}
			r := b.Do(ctx, "wakeup", func(ctx context.Context) error {
				return b.Platform.Move(ctx, guild, user, ch)
			})
			if r.OK() {
				moves++
			}
			if !sleep(ctx, b.WakeupDelay) {
				return moves
			}
		}
	}
	return moves
}

// sleep waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
