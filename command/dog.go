package command

import (
	"context"
	"log/slog"
	"strings"

	"github.com/zephyrtronium/bouncer/registry"
)

// maxNick is the longest nickname the platform accepts, in runes.
const maxNick = 32

// DogName is the nickname given to a dog of the named master.
func DogName(master string) string {
	s := master + "'s dog"
	if r := []rune(s); len(r) > maxNick {
		// Keep the suffix so the name stays recognizable.
		suf := []rune("'s dog")
		s = string(r[:maxNick-len(suf)]) + string(suf)
	}
	return s
}

// Dog makes the first mentioned user the dog of the second, or of the caller
// if there is no second.
func Dog(ctx context.Context, bot *Bot, call *Invocation) {
	ids := users(call)
	if len(ids) == 0 {
		bot.Usage(ctx, call)
		return
	}
	dog, master := ids[0], call.Message.Sender
	if len(ids) > 1 {
		master = ids[1]
	}
	if dog == bot.Owner || dog == master {
		bot.Reply(ctx, call, "No.")
		return
	}
	if !bot.Persisted(ctx, bot.Registry.SetMapping(ctx, registry.Dogs, dog, master)) {
		bot.Apologize(ctx, call)
		return
	}
	bot.leash(ctx, call.Message.Guild, dog, master)
	bot.Replyf(ctx, call, "%s is now %s's dog.", mention(dog), mention(master))
}

// leash sets a dog's nickname from its master's name.
func (b *Bot) leash(ctx context.Context, guild, dog, master string) Result {
	m, err := b.Platform.Member(ctx, guild, master)
	if err != nil {
		b.Log.WarnContext(ctx, "couldn't get master", slog.String("master", master), slog.Any("err", err))
		return Result{Action: "leash", Err: err}
	}
	nick := DogName(m.Name)
	return b.Do(ctx, "leash", func(ctx context.Context) error {
		return b.Platform.SetNickname(ctx, guild, dog, nick)
	})
}

// Undog releases dogs and clears their nicknames.
func Undog(ctx context.Context, bot *Bot, call *Invocation) {
	ids := users(call)
	if len(ids) == 0 {
		bot.Usage(ctx, call)
		return
	}
	var freed []string
	for _, id := range ids {
		if _, ok := bot.Registry.Mapping(registry.Dogs, id); !ok {
			continue
		}
		if !bot.Persisted(ctx, bot.Registry.RemoveMapping(ctx, registry.Dogs, id)) {
			bot.Apologize(ctx, call)
			return
		}
		bot.unleash(ctx, call.Message.Guild, id)
		freed = append(freed, id)
	}
	if len(freed) == 0 {
		bot.Reply(ctx, call, "Nobody to release.")
		return
	}
	bot.Replyf(ctx, call, "Released %s.", mentions(freed))
}

// UndogAll releases every dog.
func UndogAll(ctx context.Context, bot *Bot, call *Invocation) {
	dogs := bot.Registry.Mappings(registry.Dogs)
	if !bot.Persisted(ctx, bot.Registry.Clear(ctx, registry.Dogs)) {
		bot.Apologize(ctx, call)
		return
	}
	for _, p := range dogs {
		bot.unleash(ctx, call.Message.Guild, p[0])
	}
	bot.Replyf(ctx, call, "Released %d dogs.", len(dogs))
}

func (b *Bot) unleash(ctx context.Context, guild, dog string) Result {
	return b.Do(ctx, "unleash", func(ctx context.Context) error {
		return b.Platform.SetNickname(ctx, guild, dog, "")
	})
}

// DogList lists dogs with their masters.
func DogList(ctx context.Context, bot *Bot, call *Invocation) {
	dogs := bot.Registry.Mappings(registry.Dogs)
	if len(dogs) == 0 {
		bot.Reply(ctx, call, "There are no dogs.")
		return
	}
	var b strings.Builder
	for i, p := range dogs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(mention(p[0]))
		b.WriteString(" → ")
		b.WriteString(mention(p[1]))
	}
	bot.Reply(ctx, call, b.String())
}

// dogCommands is the dog command with its subcommands. A bare invocation
// with a target dogs the target.
func dogCommands() *Descriptor {
	return &Descriptor{
		Name:  "dog",
		Tier:  Trusted,
		Func:  Dog,
		Usage: "dog [add|list] <user> [master]",
		Help:  "Make a member someone's dog.",
		Subs: map[string]*Descriptor{
			"add":  {Name: "add", Tier: Trusted, Func: Dog, Usage: "dog add <user> [master]"},
			"list": {Name: "list", Tier: Trusted, Func: DogList, Usage: "dog list"},
		},
	}
}

// isDog reports whether a user is leashed and to whom.
func (b *Bot) isDog(user string) (string, bool) {
	return b.Registry.Mapping(registry.Dogs, user)
}
