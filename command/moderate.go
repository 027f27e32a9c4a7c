package command

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/zephyrtronium/bouncer/message"
	"github.com/zephyrtronium/bouncer/registry"
)

// Ban bans users and adds them to the banlist so they are banned again if
// they return.
func Ban(ctx context.Context, bot *Bot, call *Invocation) {
	ids := users(call)
	if len(ids) == 0 {
		bot.Usage(ctx, call)
		return
	}
	reason := fmt.Sprintf("banned by %s (%s)", call.Message.Name, call.Message.Sender)
	var done, failed []string
	for _, id := range ids {
		if id == bot.Owner {
			continue
		}
		if !bot.Persisted(ctx, bot.Registry.Add(ctx, registry.Banlist, id)) {
			bot.Apologize(ctx, call)
			return
		}
		r := bot.Do(ctx, "ban", func(ctx context.Context) error {
			return bot.Platform.Ban(ctx, call.Message.Guild, id, reason)
		})
		if r.OK() {
			done = append(done, id)
		} else {
			failed = append(failed, id)
		}
	}
	bot.Reply(ctx, call, outcome("Banned", "ban", done, failed))
}

// Unban lifts bans and removes users from the banlist.
func Unban(ctx context.Context, bot *Bot, call *Invocation) {
	ids := users(call)
	if len(ids) == 0 {
		bot.Usage(ctx, call)
		return
	}
	var done, failed []string
	for _, id := range ids {
		if !bot.Persisted(ctx, bot.Registry.Remove(ctx, registry.Banlist, id)) {
			bot.Apologize(ctx, call)
			return
		}
		r := bot.Do(ctx, "unban", func(ctx context.Context) error {
			return bot.Platform.Unban(ctx, call.Message.Guild, id)
		})
		if r.OK() {
			done = append(done, id)
		} else {
			failed = append(failed, id)
		}
	}
	bot.Reply(ctx, call, outcome("Unbanned", "unban", done, failed))
}

// UnbanAll lifts every ban on the banlist and clears it.
func UnbanAll(ctx context.Context, bot *Bot, call *Invocation) {
	ids := bot.Registry.All(registry.Banlist)
	if !bot.Persisted(ctx, bot.Registry.Clear(ctx, registry.Banlist)) {
		bot.Apologize(ctx, call)
		return
	}
	n := 0
	for _, id := range ids {
		r := bot.Do(ctx, "unban", func(ctx context.Context) error {
			return bot.Platform.Unban(ctx, call.Message.Guild, id)
		})
		if r.OK() {
			n++
		}
	}
	bot.Replyf(ctx, call, "Unbanned %d of %d users.", n, len(ids))
}

// outcome describes the results of an action applied to several users.
func outcome(verb, action string, done, failed []string) string {
	var b strings.Builder
	if len(done) != 0 {
		fmt.Fprintf(&b, "%s %s.", verb, mentions(done))
	}
	if len(failed) != 0 {
		if b.Len() != 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "Couldn't %s %s.", action, mentions(failed))
	}
	if b.Len() == 0 {
		return "Nothing to do."
	}
	return b.String()
}

// userRoles splits an invocation into a member and roles. Mentions take
// precedence. Without a user mention, the first plain argument is the
// member; without role mentions, the remaining plain arguments are roles.
func userRoles(call *Invocation) (user string, roles []string) {
	rest := plain(call)
	if us := call.Of(message.User); len(us) != 0 {
		user = us[0]
	} else if len(rest) != 0 {
		user, rest = rest[0], rest[1:]
	}
	if roles = call.Of(message.Role); len(roles) == 0 {
		roles = rest
	}
	return user, roles
}

// roleCount finds the role and integer arguments of an invocation. A plain
// argument taken as the role is not considered for the count.
func roleCount(call *Invocation) (role string, n int, ok bool) {
	rest := plain(call)
	if roles := call.Of(message.Role); len(roles) != 0 {
		role = roles[0]
	} else if len(rest) != 0 {
		role, rest = rest[0], rest[1:]
	}
	for _, s := range rest {
		if v, err := strconv.Atoi(s); err == nil {
			return role, v, role != ""
		}
	}
	return role, 0, false
}

// AddRole gives a role to a member, honoring the role's member limit.
func AddRole(ctx context.Context, bot *Bot, call *Invocation) {
	user, roles := userRoles(call)
	if user == "" || len(roles) == 0 {
		bot.Usage(ctx, call)
		return
	}
	guild, role := call.Message.Guild, roles[0]
	if limit, ok := bot.Registry.Limit(role); ok {
		n, err := bot.Platform.RoleMembers(ctx, guild, role)
		if err != nil {
			bot.Log.ErrorContext(ctx, "couldn't count role members", slog.String("role", role), slog.Any("err", err))
			bot.Apologize(ctx, call)
			return
		}
		if n >= limit {
			bot.Replyf(ctx, call, "<@&%s> is full (%d/%d).", role, n, limit)
			return
		}
	}
	r := bot.Do(ctx, "addrole", func(ctx context.Context) error {
		return bot.Platform.AddRole(ctx, guild, user, role)
	})
	if !r.OK() {
		bot.Apologize(ctx, call)
		return
	}
	bot.Replyf(ctx, call, "Gave <@&%s> to %s.", role, mention(user))
}

// DelRole takes roles from a member. With no role named, it takes every
// role the member has.
func DelRole(ctx context.Context, bot *Bot, call *Invocation) {
	user, roles := userRoles(call)
	if user == "" {
		bot.Usage(ctx, call)
		return
	}
	guild := call.Message.Guild
	if len(roles) == 0 {
		var err error
		roles, err = bot.Platform.Roles(ctx, guild, user)
		if err != nil {
			bot.Log.ErrorContext(ctx, "couldn't get roles", slog.String("user", user), slog.Any("err", err))
			bot.Apologize(ctx, call)
			return
		}
	}
	n := 0
	for _, role := range roles {
		r := bot.Do(ctx, "delrole", func(ctx context.Context) error {
			return bot.Platform.RemoveRole(ctx, guild, user, role)
		})
		if r.OK() {
			n++
		}
	}
	if n < len(roles) {
		bot.Replyf(ctx, call, "Took %d of %d roles from %s.", n, len(roles), mention(user))
		return
	}
	bot.Replyf(ctx, call, "Took %d roles from %s.", n, mention(user))
}

// LimitRole sets the member limit of a role.
func LimitRole(ctx context.Context, bot *Bot, call *Invocation) {
	role, n, ok := roleCount(call)
	if !ok {
		bot.Usage(ctx, call)
		return
	}
	if n < 0 {
		bot.Reply(ctx, call, "The limit can't be negative.")
		return
	}
	if !bot.Persisted(ctx, bot.Registry.SetLimit(ctx, role, n)) {
		bot.Apologize(ctx, call)
		return
	}
	bot.Replyf(ctx, call, "<@&%s> is limited to %d members.", role, n)
}

// UnlimitRole removes the member limit of a role.
func UnlimitRole(ctx context.Context, bot *Bot, call *Invocation) {
	roles := call.Of(message.Role)
	if len(roles) == 0 {
		roles = plain(call)
	}
	if len(roles) == 0 {
		bot.Usage(ctx, call)
		return
	}
	if !bot.Persisted(ctx, bot.Registry.RemoveMapping(ctx, registry.RoleLimits, roles[0])) {
		bot.Apologize(ctx, call)
		return
	}
	bot.Replyf(ctx, call, "<@&%s> is no longer limited.", roles[0])
}

// RoleLimits lists role limits.
func RoleLimits(ctx context.Context, bot *Bot, call *Invocation) {
	ls := bot.Registry.Mappings(registry.RoleLimits)
	if len(ls) == 0 {
		bot.Reply(ctx, call, "No roles are limited.")
		return
	}
	lines := make([]string, len(ls))
	for i, p := range ls {
		lines[i] = fmt.Sprintf("<@&%s>: %s", p[0], p[1])
	}
	bot.Reply(ctx, call, strings.Join(lines, "\n"))
}

// LockName adds members to the locked names list and pins their current
// nicknames.
func LockName(ctx context.Context, bot *Bot, call *Invocation) {
	ids := users(call)
	if len(ids) == 0 {
		bot.Usage(ctx, call)
		return
	}
	for _, id := range ids {
		if !bot.Persisted(ctx, bot.Registry.Add(ctx, registry.LockedNames, id)) {
			bot.Apologize(ctx, call)
			return
		}
		m, err := bot.Platform.Member(ctx, call.Message.Guild, id)
		if err != nil {
			bot.Log.WarnContext(ctx, "couldn't get member to pin nickname", slog.String("user", id), slog.Any("err", err))
			continue
		}
		bot.pins.set(id, m.Nick)
	}
	bot.Replyf(ctx, call, "Locked names of %s.", mentions(ids))
}

// UnlockName removes members from the locked names list.
func UnlockName(ctx context.Context, bot *Bot, call *Invocation) {
	RemoveFrom(registry.LockedNames, "locked names list")(ctx, bot, call)
	for _, id := range users(call) {
		bot.pins.remove(id)
	}
}

// maxClear is the most messages clear deletes at once.
const maxClear = 100

// Clear deletes recent messages in the channel.
func Clear(ctx context.Context, bot *Bot, call *Invocation) {
	n, ok := call.Int()
	if !ok || n < 1 || n > maxClear {
		bot.Usage(ctx, call)
		return
	}
	ch := call.Message.To
	ids, err := bot.Platform.RecentMessages(ctx, ch, n)
	if err != nil {
		bot.Log.ErrorContext(ctx, "couldn't get recent messages", slog.String("channel", ch), slog.Any("err", err))
		bot.Apologize(ctx, call)
		return
	}
	r := bot.Do(ctx, "clear", func(ctx context.Context) error {
		return bot.Platform.DeleteMessages(ctx, ch, ids)
	})
	if !r.OK() {
		bot.Apologize(ctx, call)
		return
	}
	// The invoking message may be gone, so don't reply to it.
	bot.Send(ctx, message.Format("", ch, "Deleted %d messages.", len(ids)))
}

// maxSlowmode is the longest slowmode interval in seconds.
const maxSlowmode = 21600

// Slowmode sets the channel's per-user message interval.
func Slowmode(ctx context.Context, bot *Bot, call *Invocation) {
	if len(call.Args) == 0 {
		bot.Usage(ctx, call)
		return
	}
	n, err := strconv.Atoi(strings.TrimSuffix(call.Args[0].Raw, "s"))
	if err != nil || n < 0 || n > maxSlowmode {
		bot.Usage(ctx, call)
		return
	}
	r := bot.Do(ctx, "slowmode", func(ctx context.Context) error {
		return bot.Platform.SetSlowmode(ctx, call.Message.To, n)
	})
	if !r.OK() {
		bot.Apologize(ctx, call)
		return
	}
	if n == 0 {
		bot.Reply(ctx, call, "Slowmode disabled.")
		return
	}
	bot.Replyf(ctx, call, "Slowmode set to %d seconds.", n)
}
