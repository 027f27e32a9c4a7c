package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zephyrtronium/bouncer/message"
)

// Help lists the commands available to the caller.
func Help(ctx context.Context, bot *Bot, call *Invocation) {
	var b strings.Builder
	for _, d := range bot.commands {
		if d.Tier > call.Tier || d.Help == "" {
			continue
		}
		fmt.Fprintf(&b, "`%s%s` %s\n", bot.Prefix, d.Usage, d.Help)
	}
	bot.Send(ctx, message.Sent{
		Reply: call.Message.ID,
		To:    call.Message.To,
		Embed: &message.Embed{
			Title:       "Commands",
			Description: strings.TrimSpace(b.String()),
		},
	})
}

// Ping replies so callers can see the bot is alive.
func Ping(ctx context.Context, bot *Bot, call *Invocation) {
	text := "Pong!"
	if bot.Ping != nil {
		if s := bot.Ping(); s != "" {
			text = s
		}
	}
	bot.Reply(ctx, call, text)
}

// Snipe shows the most recently deleted message in the channel.
func Snipe(ctx context.Context, bot *Bot, call *Invocation) {
	e, ok := bot.Snipes.Last(call.Message.To)
	if !ok {
		bot.Reply(ctx, call, "There's nothing to snipe.")
		return
	}
	bot.Send(ctx, message.Sent{
		Reply: call.Message.ID,
		To:    call.Message.To,
		Embed: &message.Embed{
			Title:       e.Name,
			Description: e.Content,
			Fields: []message.Field{
				{Name: "Author", Value: mention(e.Author)},
				{Name: "Sent", Value: fmt.Sprintf("<t:%d:R>", e.Time.Unix())},
			},
		},
	})
}

// Banner shows a user's profile banner.
func Banner(ctx context.Context, bot *Bot, call *Invocation) {
	user := call.Message.Sender
	if ids := users(call); len(ids) != 0 {
		user = ids[0]
	}
	url, err := bot.Platform.UserBanner(ctx, user)
	if err != nil {
		bot.Log.ErrorContext(ctx, "couldn't get banner", slog.String("user", user), slog.Any("err", err))
		bot.Apologize(ctx, call)
		return
	}
	if url == "" {
		bot.Replyf(ctx, call, "%s has no banner.", mention(user))
		return
	}
	bot.image(ctx, call, "Banner", url)
}

// ServerPic shows the guild icon.
func ServerPic(ctx context.Context, bot *Bot, call *Invocation) {
	icon, _, err := bot.Platform.GuildImages(ctx, call.Message.Guild)
	if err != nil {
		bot.Log.ErrorContext(ctx, "couldn't get guild images", slog.Any("err", err))
		bot.Apologize(ctx, call)
		return
	}
	if icon == "" {
		bot.Reply(ctx, call, "This server has no icon.")
		return
	}
	bot.image(ctx, call, "Server icon", icon)
}

// ServerBanner shows the guild banner.
func ServerBanner(ctx context.Context, bot *Bot, call *Invocation) {
	_, banner, err := bot.Platform.GuildImages(ctx, call.Message.Guild)
	if err != nil {
		bot.Log.ErrorContext(ctx, "couldn't get guild images", slog.Any("err", err))
		bot.Apologize(ctx, call)
		return
	}
	if banner == "" {
		bot.Reply(ctx, call, "This server has no banner.")
		return
	}
	bot.image(ctx, call, "Server banner", banner)
}

func (b *Bot) image(ctx context.Context, call *Invocation, title, url string) {
	b.Send(ctx, message.Sent{
		Reply: call.Message.ID,
		To:    call.Message.To,
		Embed: &message.Embed{Title: title, Image: url},
	})
}

// Snap persists the registry immediately.
func Snap(ctx context.Context, bot *Bot, call *Invocation) {
	if err := bot.Registry.Flush(ctx); err != nil {
		bot.Metrics.PersistFailures.Observe(1)
		bot.Apologize(ctx, call)
		return
	}
	bot.Reply(ctx, call, "Saved.")
}
