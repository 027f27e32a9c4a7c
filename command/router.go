package command

import (
	"context"
	"log/slog"

	"github.com/zephyrtronium/bouncer/cooldown"
	"github.com/zephyrtronium/bouncer/message"
	"github.com/zephyrtronium/bouncer/registry"
)

// Router dispatches messages to commands and guards.
type Router struct {
	bot  *Bot
	cmds map[string]*Descriptor
}

// NewRouter creates a router over a command table. Later descriptors with
// the same name replace earlier ones.
func NewRouter(bot *Bot, table []*Descriptor) *Router {
	r := &Router{bot: bot, cmds: make(map[string]*Descriptor, len(table))}
	for _, d := range table {
		r.cmds[d.Name] = d
	}
	bot.commands = table
	return r
}

// Bot returns the router's bot.
func (r *Router) Bot() *Bot {
	return r.bot
}

// Handle processes an inbound message. It returns the name of the command
// that ran, or the empty string if none did.
func (r *Router) Handle(ctx context.Context, msg *message.Received) string {
	if msg.IsBot {
		return ""
	}
	bot := r.bot
	bot.Metrics.MessagesCount.Observe(1)
	if bot.guard(ctx, msg) {
		return ""
	}
	cmd, ok := message.Parse(bot.Prefix, msg.Text)
	if !ok {
		return ""
	}
	d := r.cmds[cmd.Name]
	if d == nil {
		return ""
	}
	log := bot.Log.With(slog.String("trace", msg.ID), slog.String("sender", msg.Sender), slog.String("channel", msg.To))
	tier := bot.TierOf(msg)
	if tier < Owner && bot.Registry.Contains(registry.Blacklist, msg.Sender) {
		log.DebugContext(ctx, "ignoring blacklisted caller")
		return ""
	}
	if tier == Everyone && bot.CommandCooldown > 0 && !bot.Cooldowns.TryTrigger(cooldown.Key(msg.Sender, "command"), bot.CommandCooldown) {
		log.DebugContext(ctx, "caller on cooldown")
		return ""
	}
	name, args := d.Name, cmd.Args
	if len(args) > 0 && d.Subs != nil {
		if sub := d.Subs[message.Fold(args[0].Raw)]; sub != nil {
			d, name, args = sub, name+" "+sub.Name, args[1:]
		}
	}
	call := &Invocation{Message: msg, Name: name, Args: args, Tier: tier, Usage: d.Usage}
	if tier < d.Tier {
		log.DebugContext(ctx, "refused", slog.String("command", name), slog.String("tier", tier.String()), slog.String("need", d.Tier.String()))
		bot.Metrics.DeniedCount.Observe(1, name)
		bot.Reply(ctx, call, Refusal)
		return ""
	}
	if d.Func == nil {
		bot.Usage(ctx, call)
		return ""
	}
	log.InfoContext(ctx, "command", slog.String("name", name), slog.String("tier", tier.String()))
	bot.Metrics.CommandCount.Observe(1, name)
	d.Func(ctx, bot, call)
	return name
}
