package command_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/bouncer/registry"
)

func TestModerate(t *testing.T) {
	cases := []struct {
		name  string
		setup func(ctx context.Context, r *registry.Registry, p *fake)
		text  string
		acts  []string
		reply []string
	}{
		{
			name:  "ban",
			text:  "+ban <@5> <@" + owner + ">",
			acts:  []string{"ban 5"},
			reply: []string{"Banned <@5>."},
		},
		{
			name:  "ban-fails",
			setup: func(ctx context.Context, r *registry.Registry, p *fake) { p.fail["ban"] = true },
			text:  "+ban <@5>",
			acts:  []string{"ban 5"},
			reply: []string{"Couldn't ban <@5>."},
		},
		{
			name:  "unban",
			setup: func(ctx context.Context, r *registry.Registry, p *fake) { r.Add(ctx, registry.Banlist, "5") },
			text:  "+unban <@5>",
			acts:  []string{"unban 5"},
			reply: []string{"Unbanned <@5>."},
		},
		{
			name: "unbanall",
			setup: func(ctx context.Context, r *registry.Registry, p *fake) {
				r.Add(ctx, registry.Banlist, "5")
				r.Add(ctx, registry.Banlist, "6")
			},
			text:  "+unbanall",
			acts:  []string{"unban 5", "unban 6"},
			reply: []string{"Unbanned 2 of 2 users."},
		},
		{
			name:  "addrole",
			text:  "+addrole <@5> <@&44>",
			acts:  []string{"addrole 5 44"},
			reply: []string{"Gave <@&44> to <@5>."},
		},
		{
			name: "addrole-under-limit",
			setup: func(ctx context.Context, r *registry.Registry, p *fake) {
				r.SetLimit(ctx, "44", 2)
				p.holders["44"] = 1
			},
			text:  "+addrole <@5> <@&44>",
			acts:  []string{"addrole 5 44"},
			reply: []string{"Gave <@&44> to <@5>."},
		},
		{
			name: "addrole-full",
			setup: func(ctx context.Context, r *registry.Registry, p *fake) {
				r.SetLimit(ctx, "44", 2)
				p.holders["44"] = 2
			},
			text:  "+addrole <@5> <@&44>",
			reply: []string{"<@&44> is full (2/2)."},
		},
		{
			name:  "addrole-fails",
			setup: func(ctx context.Context, r *registry.Registry, p *fake) { p.fail["addrole"] = true },
			text:  "+addrole <@5> <@&44>",
			acts:  []string{"addrole 5 44"},
			reply: []string{"sorry"},
		},
		{
			name:  "delrole",
			text:  "+delrole <@5> <@&44>",
			acts:  []string{"delrole 5 44"},
			reply: []string{"Took 1 roles from <@5>."},
		},
		{
			name:  "derank",
			setup: func(ctx context.Context, r *registry.Registry, p *fake) { p.roles["5"] = []string{"44", "45"} },
			text:  "+derank <@5>",
			acts:  []string{"delrole 5 44", "delrole 5 45"},
			reply: []string{"Took 2 roles from <@5>."},
		},
		{
			name:  "limitrole",
			text:  "+limitrole <@&44> 3",
			reply: []string{"<@&44> is limited to 3 members."},
		},
		{
			name:  "limitrole-negative",
			text:  "+limitroles add <@&44> -3",
			reply: []string{"The limit can't be negative."},
		},
		{
			name:  "limitroles-list",
			setup: func(ctx context.Context, r *registry.Registry, p *fake) { r.SetLimit(ctx, "44", 3) },
			text:  "+limitroles list",
			reply: []string{"<@&44>: 3"},
		},
		{
			name:  "addrole-plain",
			text:  "+addrole 5 44",
			acts:  []string{"addrole 5 44"},
			reply: []string{"Gave <@&44> to <@5>."},
		},
		{
			name:  "addrole-plain-role",
			text:  "+addrole <@5> 44",
			acts:  []string{"addrole 5 44"},
			reply: []string{"Gave <@&44> to <@5>."},
		},
		{
			name:  "delrole-plain",
			text:  "+delrole 5 44",
			acts:  []string{"delrole 5 44"},
			reply: []string{"Took 1 roles from <@5>."},
		},
		{
			name:  "delrole-usage",
			text:  "+delrole",
			reply: []string{"Usage: +delrole <user> [role]..."},
		},
		{
			name:  "derank-usage",
			text:  "+derank",
			reply: []string{"Usage: +derank <user>"},
		},
		{
			name:  "limitroles-add-plain",
			text:  "+limitroles add 12345 3",
			reply: []string{"<@&12345> is limited to 3 members."},
		},
		{
			name:  "limitroles-add-usage",
			text:  "+limitroles add 12345",
			reply: []string{"Usage: +limitroles add <role> <count>"},
		},
		{
			name:  "limitroles-remove-plain",
			setup: func(ctx context.Context, r *registry.Registry, p *fake) { r.SetLimit(ctx, "12345", 3) },
			text:  "+limitroles remove 12345",
			reply: []string{"<@&12345> is no longer limited."},
		},
		{
			name:  "limitroles-remove-usage",
			text:  "+limitroles remove",
			reply: []string{"Usage: +limitroles remove <role>"},
		},
		{
			name:  "clear",
			setup: func(ctx context.Context, r *registry.Registry, p *fake) { p.recent[chat] = []string{"3", "2", "1"} },
			text:  "+clear 2",
			acts:  []string{"delete " + chat + " 3,2"},
			reply: []string{"Deleted 2 messages."},
		},
		{
			name:  "clear-too-many",
			text:  "+clear 101",
			reply: []string{"Usage: +clear <1-100>"},
		},
		{
			name:  "clear-none",
			text:  "+clear 0",
			reply: []string{"Usage: +clear <1-100>"},
		},
		{
			name:  "slowmode",
			text:  "+slowmode 30",
			acts:  []string{"slowmode " + chat + " 30"},
			reply: []string{"Slowmode set to 30 seconds."},
		},
		{
			name:  "slowmode-off",
			text:  "+slowmode 0",
			acts:  []string{"slowmode " + chat + " 0"},
			reply: []string{"Slowmode disabled."},
		},
		{
			name:  "slowmode-too-long",
			text:  "+slowmode 21601",
			reply: []string{"Usage: +slowmode <0-21600>"},
		},
		{
			name:  "antilink-toggle",
			text:  "+antilink",
			reply: []string{"antilink enabled."},
		},
		{
			name:  "antilink-off",
			setup: func(ctx context.Context, r *registry.Registry, p *fake) { r.Add(ctx, registry.Protections, "antilink") },
			text:  "+antilink off",
			reply: []string{"antilink disabled."},
		},
		{
			name:  "raidlog",
			text:  "+raidlog <#88>",
			reply: []string{"Guard reports go to <#88>."},
		},
		{
			name:  "undog",
			setup: func(ctx context.Context, r *registry.Registry, p *fake) { r.SetMapping(ctx, registry.Dogs, "5", "6") },
			text:  "+undog <@5> <@7>",
			acts:  []string{"nick 5 "},
			reply: []string{"Released <@5>."},
		},
		{
			name: "undogall",
			setup: func(ctx context.Context, r *registry.Registry, p *fake) {
				r.SetMapping(ctx, registry.Dogs, "5", "6")
				r.SetMapping(ctx, registry.Dogs, "7", "6")
			},
			text:  "+undogall",
			acts:  []string{"nick 5 ", "nick 7 "},
			reply: []string{"Released 2 dogs."},
		},
		{
			name:  "dog-owner",
			text:  "+dog <@" + owner + ">",
			reply: []string{"No."},
		},
		{
			name:  "snap",
			text:  "+snap",
			reply: []string{"Saved."},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := context.Background()
			r, p := testRouter(t)
			if c.setup != nil {
				c.setup(ctx, r.Bot().Registry, p)
			}
			r.Handle(ctx, msg(owner, c.text))
			if diff := cmp.Diff(c.acts, p.actions()); diff != "" {
				t.Errorf("wrong actions (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(c.reply, p.texts()); diff != "" {
				t.Errorf("wrong replies (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBanRecordsEvenOnFailure(t *testing.T) {
	ctx := context.Background()
	r, p := testRouter(t)
	p.fail["ban"] = true
	r.Handle(ctx, msg(owner, "+ban <@5>"))
	if !r.Bot().Registry.Contains(registry.Banlist, "5") {
		t.Error("failed ban not recorded on the banlist")
	}
}

func TestRoleLimitsPlainIDs(t *testing.T) {
	ctx := context.Background()
	r, _ := testRouter(t)
	reg := r.Bot().Registry
	r.Handle(ctx, msg(owner, "+limitroles add 12345 3"))
	want := []registry.Pair{{"12345", "3"}}
	if diff := cmp.Diff(want, reg.Mappings(registry.RoleLimits)); diff != "" {
		t.Errorf("wrong limits after add (-want +got):\n%s", diff)
	}
	// The role id is numeric, but only the argument after it is the count.
	r.Handle(ctx, msg(owner, "+limitroles add 777 12"))
	if n, ok := reg.Limit("777"); !ok || n != 12 {
		t.Errorf("wrong limit for 777: got %d, %t", n, ok)
	}
	r.Handle(ctx, msg(owner, "+limitroles remove 12345"))
	want = []registry.Pair{{"777", "12"}}
	if diff := cmp.Diff(want, reg.Mappings(registry.RoleLimits)); diff != "" {
		t.Errorf("wrong limits after remove (-want +got):\n%s", diff)
	}
}
