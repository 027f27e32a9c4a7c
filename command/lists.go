package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/zephyrtronium/bouncer/message"
	"github.com/zephyrtronium/bouncer/registry"
)

// users returns the user IDs named by an invocation's arguments. Mentions
// take precedence; otherwise every argument is taken as a raw ID.
func users(call *Invocation) []string {
	if ids := call.Of(message.User); len(ids) != 0 {
		return ids
	}
	return plain(call)
}

// plain returns the IDs of the plain arguments of an invocation in order.
func plain(call *Invocation) []string {
	var ids []string
	for _, a := range call.Args {
		if a.Kind == message.Plain {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func mention(id string) string {
	return "<@" + id + ">"
}

func mentions(ids []string) string {
	m := make([]string, len(ids))
	for i, id := range ids {
		m[i] = mention(id)
	}
	return strings.Join(m, ", ")
}

// AddTo creates a command that adds users to a registry set.
func AddTo(list, title string) Func {
	return func(ctx context.Context, bot *Bot, call *Invocation) {
		ids := users(call)
		if len(ids) == 0 {
			bot.Reply(ctx, call, "Mention at least one user.")
			return
		}
		for _, id := range ids {
			if !bot.Persisted(ctx, bot.Registry.Add(ctx, list, id)) {
				bot.Apologize(ctx, call)
				return
			}
		}
		bot.Replyf(ctx, call, "Added %s to the %s.", mentions(ids), title)
	}
}

// RemoveFrom creates a command that removes users from a registry set.
func RemoveFrom(list, title string) Func {
	return func(ctx context.Context, bot *Bot, call *Invocation) {
		ids := users(call)
		if len(ids) == 0 {
			bot.Reply(ctx, call, "Mention at least one user.")
			return
		}
		for _, id := range ids {
			if !bot.Persisted(ctx, bot.Registry.Remove(ctx, list, id)) {
				bot.Apologize(ctx, call)
				return
			}
		}
		bot.Replyf(ctx, call, "Removed %s from the %s.", mentions(ids), title)
	}
}

// ListOf creates a command that lists the users in a registry set, one per
// line.
func ListOf(list, title string) Func {
	return func(ctx context.Context, bot *Bot, call *Invocation) {
		ids := bot.Registry.All(list)
		if len(ids) == 0 {
			bot.Replyf(ctx, call, "The %s is empty.", title)
			return
		}
		lines := make([]string, len(ids))
		for i, id := range ids {
			lines[i] = mention(id)
		}
		bot.Reply(ctx, call, strings.Join(lines, "\n"))
	}
}

// listCommands creates the descriptor for a registry set with add, remove,
// and list subcommands. A bare invocation lists the set.
func listCommands(name, list, title string, edit Tier) *Descriptor {
	return &Descriptor{
		Name:  name,
		Tier:  Trusted,
		Func:  ListOf(list, title),
		Usage: name + " add|remove|list <user>...",
		Help:  fmt.Sprintf("Manage the %s.", title),
		Subs: map[string]*Descriptor{
			"add": {
				Name:  "add",
				Tier:  edit,
				Func:  AddTo(list, title),
				Usage: name + " add <user>...",
			},
			"remove": {
				Name:  "remove",
				Tier:  edit,
				Func:  RemoveFrom(list, title),
				Usage: name + " remove <user>...",
			},
			"list": {
				Name:  "list",
				Tier:  Trusted,
				Func:  ListOf(list, title),
				Usage: name + " list",
			},
		},
	}
}

// Protected reports whether a guard is enabled.
func (b *Bot) Protected(guard string) bool {
	return b.Registry.Contains(registry.Protections, guard)
}

// Toggle creates a command that enables or disables a guard. With no
// argument it flips the guard's state.
func Toggle(guard string) Func {
	return func(ctx context.Context, bot *Bot, call *Invocation) {
		on := !bot.Protected(guard)
		if len(call.Args) > 0 {
			switch message.Fold(call.Args[0].Raw) {
			case "on", "enable", "true":
				on = true
			case "off", "disable", "false":
				on = false
			default:
				bot.Usage(ctx, call)
				return
			}
		}
		var err error
		if on {
			err = bot.Registry.Add(ctx, registry.Protections, guard)
		} else {
			err = bot.Registry.Remove(ctx, registry.Protections, guard)
		}
		if !bot.Persisted(ctx, err) {
			bot.Apologize(ctx, call)
			return
		}
		state := "disabled"
		if on {
			state = "enabled"
		}
		bot.Replyf(ctx, call, "%s %s.", guard, state)
	}
}
