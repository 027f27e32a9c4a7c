package command

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/zephyrtronium/bouncer/message"
	"github.com/zephyrtronium/bouncer/registry"
	"github.com/zephyrtronium/bouncer/snipe"
)

// Guard names, as stored in the protections set.
const (
	AntiSpam = "antispam"
	AntiLink = "antilink"
	AntiBot  = "antibot"
	AntiRaid = "antiraid"
)

// RaidLog is the settings key for the channel that receives guard reports.
const RaidLog = "raidlog"

var linkRE = regexp.MustCompile(`(?i)\bhttps?://\S|\bdiscord(?:\.gg|app\.com/invite|\.com/invite)/\S|\bwww\.\S+\.\S`)

// guard applies message guards. It returns true if the message was removed.
func (b *Bot) guard(ctx context.Context, msg *message.Received) bool {
	if msg.Guild == "" || msg.Sender == b.Owner {
		return false
	}
	if b.Registry.Contains(registry.Wetlist, msg.Sender) {
		b.Metrics.GuardTriggerCount.Observe(1, registry.Wetlist)
		b.remove(ctx, msg)
		return true
	}
	if b.TierOf(msg) >= Trusted {
		return false
	}
	if b.Protected(AntiLink) && linkRE.MatchString(msg.Text) {
		b.Log.InfoContext(ctx, "removing link", slog.String("sender", msg.Sender), slog.String("channel", msg.To))
		b.Metrics.GuardTriggerCount.Observe(1, AntiLink)
		b.remove(ctx, msg)
		return true
	}
	if b.Protected(AntiSpam) && b.Spam != nil && b.Spam.Hit(msg.Sender) {
		b.Log.InfoContext(ctx, "timing out spammer", slog.String("sender", msg.Sender), slog.Duration("for", b.SpamTimeout))
		b.Metrics.GuardTriggerCount.Observe(1, AntiSpam)
		until := time.Now().Add(b.SpamTimeout)
		r := b.Do(ctx, "timeout", func(ctx context.Context) error {
			return b.Platform.Timeout(ctx, msg.Guild, msg.Sender, until)
		})
		if r.OK() {
			b.Send(ctx, message.Format("", msg.To, "%s was timed out for spamming.", mention(msg.Sender)))
			b.report(ctx, message.Format("", "", "Timed out %s for spamming in <#%s>.", mention(msg.Sender), msg.To))
		}
	}
	return false
}

func (b *Bot) remove(ctx context.Context, msg *message.Received) Result {
	return b.Do(ctx, "delete", func(ctx context.Context) error {
		return b.Platform.DeleteMessages(ctx, msg.To, []string{msg.ID})
	})
}

// report sends a message to the raid log channel, if one is set.
func (b *Bot) report(ctx context.Context, msg message.Sent) {
	ch, ok := b.Registry.Mapping(registry.Settings, RaidLog)
	if !ok || ch == "" {
		return
	}
	msg.To = ch
	b.Send(ctx, msg)
}

// OnMessageDelete records a deleted message for snipe.
func (r *Router) OnMessageDelete(ctx context.Context, old *message.Received) {
	if old == nil || old.IsBot || old.Text == "" {
		return
	}
	r.bot.Snipes.Record(old.To, snipe.Entry{
		Content: old.Text,
		Author:  old.Sender,
		Name:    old.Name,
		Time:    old.Time(),
	})
}

// OnMemberJoin applies the banlist and join guards to a new member.
func (r *Router) OnMemberJoin(ctx context.Context, guild string, m Member) {
	bot := r.bot
	switch {
	case m.ID == bot.Owner:
		return
	case bot.Registry.Contains(registry.Banlist, m.ID):
		bot.Log.InfoContext(ctx, "banning returning member", slog.String("user", m.ID))
		bot.Metrics.GuardTriggerCount.Observe(1, registry.Banlist)
		res := bot.Do(ctx, "ban", func(ctx context.Context) error {
			return bot.Platform.Ban(ctx, guild, m.ID, "on the banlist")
		})
		if res.OK() {
			bot.report(ctx, message.Format("", "", "Banned %s (%s) on the banlist.", mention(m.ID), m.Name))
		}
	case m.Bot && bot.Protected(AntiBot):
		bot.Metrics.GuardTriggerCount.Observe(1, AntiBot)
		res := bot.Do(ctx, "kick", func(ctx context.Context) error {
			return bot.Platform.Kick(ctx, guild, m.ID, "antibot")
		})
		if res.OK() {
			bot.report(ctx, message.Format("", "", "Kicked bot %s (%s).", mention(m.ID), m.Name))
		}
	case !m.Bot && bot.Protected(AntiRaid):
		bot.Metrics.GuardTriggerCount.Observe(1, AntiRaid)
		res := bot.Do(ctx, "kick", func(ctx context.Context) error {
			return bot.Platform.Kick(ctx, guild, m.ID, "antiraid")
		})
		if res.OK() {
			bot.report(ctx, message.Format("", "", "Kicked %s (%s) during raid protection.", mention(m.ID), m.Name))
		}
	}
}

// OnMemberUpdate keeps dog and locked nicknames in place. before is the
// member's nickname before the update, or empty if unknown.
func (r *Router) OnMemberUpdate(ctx context.Context, guild, before string, m Member) {
	bot := r.bot
	if master, ok := bot.isDog(m.ID); ok {
		mm, err := bot.Platform.Member(ctx, guild, master)
		if err != nil {
			bot.Log.WarnContext(ctx, "couldn't get master", slog.String("master", master), slog.Any("err", err))
			return
		}
		if want := DogName(mm.Name); m.Nick != want {
			bot.Do(ctx, "leash", func(ctx context.Context) error {
				return bot.Platform.SetNickname(ctx, guild, m.ID, want)
			})
		}
		return
	}
	if !bot.Registry.Contains(registry.LockedNames, m.ID) {
		return
	}
	def := before
	if def == "" {
		def = m.Nick
	}
	if pin := bot.pins.get(m.ID, def); m.Nick != pin {
		bot.Do(ctx, "lockname", func(ctx context.Context) error {
			return bot.Platform.SetNickname(ctx, guild, m.ID, pin)
		})
	}
}

// OnVoiceJoin disconnects blacklisted members from voice.
func (r *Router) OnVoiceJoin(ctx context.Context, guild, user, channel string) {
	bot := r.bot
	if channel == "" || user == bot.Owner || !bot.Registry.Contains(registry.Blacklist, user) {
		return
	}
	bot.Metrics.GuardTriggerCount.Observe(1, registry.Blacklist)
	bot.Do(ctx, "disconnect", func(ctx context.Context) error {
		return bot.Platform.Move(ctx, guild, user, "")
	})
}

// SetRaidLog sets or clears the channel for guard reports.
func SetRaidLog(ctx context.Context, bot *Bot, call *Invocation) {
	chs := call.Of(message.Channel)
	if len(chs) == 0 {
		if len(call.Args) > 0 && message.Fold(call.Args[0].Raw) == "off" {
			if !bot.Persisted(ctx, bot.Registry.RemoveMapping(ctx, registry.Settings, RaidLog)) {
				bot.Apologize(ctx, call)
				return
			}
			bot.Reply(ctx, call, "Raid log disabled.")
			return
		}
		bot.Usage(ctx, call)
		return
	}
	if !bot.Persisted(ctx, bot.Registry.SetMapping(ctx, registry.Settings, RaidLog, chs[0])) {
		bot.Apologize(ctx, call)
		return
	}
	bot.Replyf(ctx, call, "Guard reports go to <#%s>.", chs[0])
}
