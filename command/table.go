package command

import "github.com/zephyrtronium/bouncer/registry"

// Table returns the command table.
func Table() []*Descriptor {
	return []*Descriptor{
		{Name: "help", Tier: Everyone, Func: Help, Usage: "help", Help: "List the commands you can use."},
		{Name: "ping", Tier: Everyone, Func: Ping, Usage: "ping", Help: "Check that the bot is alive."},
		{Name: "snipe", Tier: Everyone, Func: Snipe, Usage: "snipe", Help: "Show the last deleted message in this channel."},
		{Name: "banner", Tier: Everyone, Func: Banner, Usage: "banner [user]", Help: "Show a profile banner."},
		{Name: "serverpic", Tier: Everyone, Func: ServerPic, Usage: "serverpic", Help: "Show the server icon."},
		{Name: "serverbanner", Tier: Everyone, Func: ServerBanner, Usage: "serverbanner", Help: "Show the server banner."},

		listCommands("whitelist", registry.Whitelist, "whitelist", Owner),
		{Name: "wl", Tier: Owner, Func: AddTo(registry.Whitelist, "whitelist"), Usage: "wl <user>..."},
		{Name: "unwl", Tier: Owner, Func: RemoveFrom(registry.Whitelist, "whitelist"), Usage: "unwl <user>..."},
		{Name: "wlist", Tier: Trusted, Func: ListOf(registry.Whitelist, "whitelist"), Usage: "wlist"},

		listCommands("blacklist", registry.Blacklist, "blacklist", Trusted),
		{Name: "bl", Tier: Trusted, Func: AddTo(registry.Blacklist, "blacklist"), Usage: "bl <user>..."},
		{Name: "unbl", Tier: Trusted, Func: RemoveFrom(registry.Blacklist, "blacklist"), Usage: "unbl <user>..."},
		{Name: "blist", Tier: Trusted, Func: ListOf(registry.Blacklist, "blacklist"), Usage: "blist"},

		listCommands("wetlist", registry.Wetlist, "wetlist", Trusted),
		{Name: "wet", Tier: Trusted, Func: AddTo(registry.Wetlist, "wetlist"), Usage: "wet <user>..."},
		{Name: "unwet", Tier: Trusted, Func: RemoveFrom(registry.Wetlist, "wetlist"), Usage: "unwet <user>..."},

		listCommands("banlist", registry.Banlist, "banlist", Trusted),
		{Name: "ban", Tier: Trusted, Func: Ban, Usage: "ban <user>...", Help: "Ban members and keep them banned."},
		{Name: "unban", Tier: Trusted, Func: Unban, Usage: "unban <user>...", Help: "Lift bans."},
		{Name: "unbanall", Tier: Owner, Func: UnbanAll, Usage: "unbanall", Help: "Lift every ban on the banlist."},

		listCommands("permmv", registry.PermMove, "permmv list", Trusted),
		{Name: "permv", Tier: Trusted, Func: AddTo(registry.PermMove, "permmv list"), Usage: "permv <user>..."},
		{Name: "unpermv", Tier: Trusted, Func: RemoveFrom(registry.PermMove, "permmv list"), Usage: "unpermv <user>..."},
		{Name: "permvlist", Tier: Trusted, Func: ListOf(registry.PermMove, "permmv list"), Usage: "permvlist"},
		{Name: "mv", Tier: Everyone, Func: Move, Usage: "mv <user>... [channel]", Help: "Move members between voice channels."},
		{Name: "wakeup", Tier: Trusted, Func: Wakeup, Usage: "wakeup <user> [count]", Help: "Bounce a member between voice channels."},

		lockedNames(),

		dogCommands(),
		{Name: "undog", Tier: Trusted, Func: Undog, Usage: "undog <user>...", Help: "Release dogs."},
		{Name: "undogall", Tier: Owner, Func: UndogAll, Usage: "undogall", Help: "Release every dog."},
		{Name: "doglist", Tier: Trusted, Func: DogList, Usage: "doglist"},

		{Name: "addrole", Tier: Trusted, Func: AddRole, Usage: "addrole <user> <role>", Help: "Give a role, honoring role limits."},
		{Name: "delrole", Tier: Trusted, Func: DelRole, Usage: "delrole <user> [role]...", Help: "Take roles."},
		{Name: "derank", Tier: Trusted, Func: DelRole, Usage: "derank <user>", Help: "Take every role from a member."},
		limitRoles(),
		{Name: "limitrole", Tier: Trusted, Func: LimitRole, Usage: "limitrole <role> <count>"},
		{Name: "unlimitrole", Tier: Trusted, Func: UnlimitRole, Usage: "unlimitrole <role>"},

		{Name: AntiSpam, Tier: Trusted, Func: Toggle(AntiSpam), Usage: "antispam [on|off]", Help: "Time out members who send messages too quickly."},
		{Name: AntiBot, Tier: Trusted, Func: Toggle(AntiBot), Usage: "antibot [on|off]", Help: "Kick bots that join."},
		{Name: AntiLink, Tier: Trusted, Func: Toggle(AntiLink), Usage: "antilink [on|off]", Help: "Delete links from untrusted members."},
		{Name: AntiRaid, Tier: Trusted, Func: Toggle(AntiRaid), Usage: "antiraid [on|off]", Help: "Kick everyone who joins."},
		{Name: RaidLog, Tier: Trusted, Func: SetRaidLog, Usage: "raidlog <channel>|off", Help: "Choose where guard reports go."},

		{Name: "clear", Tier: Trusted, Func: Clear, Usage: "clear <1-100>", Help: "Delete recent messages."},
		{Name: "slowmode", Tier: Trusted, Func: Slowmode, Usage: "slowmode <0-21600>", Help: "Set the channel slowmode."},
		{Name: "snap", Tier: Owner, Func: Snap, Usage: "snap", Help: "Save the registry now."},
	}
}

func lockedNames() *Descriptor {
	d := listCommands("lockednames", registry.LockedNames, "locked names list", Trusted)
	d.Subs["add"].Func = LockName
	d.Subs["remove"].Func = UnlockName
	return d
}

func limitRoles() *Descriptor {
	return &Descriptor{
		Name:  "limitroles",
		Tier:  Trusted,
		Func:  RoleLimits,
		Usage: "limitroles add|remove|list <role> [count]",
		Help:  "Manage role member limits.",
		Subs: map[string]*Descriptor{
			"add":    {Name: "add", Tier: Trusted, Func: LimitRole, Usage: "limitroles add <role> <count>"},
			"remove": {Name: "remove", Tier: Trusted, Func: UnlimitRole, Usage: "limitroles remove <role>"},
			"list":   {Name: "list", Tier: Trusted, Func: RoleLimits, Usage: "limitroles list"},
		},
	}
}
