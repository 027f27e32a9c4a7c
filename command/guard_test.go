package command_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/bouncer/command"
	"github.com/zephyrtronium/bouncer/message"
	"github.com/zephyrtronium/bouncer/registry"
)

func TestMessageGuards(t *testing.T) {
	cases := []struct {
		name    string
		sets    map[string][]string
		sender  string
		text    string
		removed bool
	}{
		{
			name:    "wet",
			sets:    map[string][]string{registry.Wetlist: {"9"}},
			sender:  "9",
			text:    "+ping",
			removed: true,
		},
		{
			name:   "wet-owner",
			sets:   map[string][]string{registry.Wetlist: {owner}},
			sender: owner,
			text:   "hello",
		},
		{
			name:    "link",
			sets:    map[string][]string{registry.Protections: {command.AntiLink}},
			sender:  "9",
			text:    "look at https://example.com",
			removed: true,
		},
		{
			name:    "invite",
			sets:    map[string][]string{registry.Protections: {command.AntiLink}},
			sender:  "9",
			text:    "join discord.gg/abc",
			removed: true,
		},
		{
			name:   "link-trusted",
			sets:   map[string][]string{registry.Protections: {command.AntiLink}, registry.Whitelist: {"9"}},
			sender: "9",
			text:   "look at https://example.com",
		},
		{
			name:   "link-disabled",
			sender: "9",
			text:   "look at https://example.com",
		},
		{
			name:   "no-link",
			sets:   map[string][]string{registry.Protections: {command.AntiLink}},
			sender: "9",
			text:   "http is a protocol",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := context.Background()
			r, p := testRouter(t)
			for name, ids := range c.sets {
				for _, id := range ids {
					r.Bot().Registry.Add(ctx, name, id)
				}
			}
			m := msg(c.sender, c.text)
			r.Handle(ctx, m)
			var want []string
			if c.removed {
				want = []string{"delete " + chat + " " + m.ID}
			}
			if diff := cmp.Diff(want, p.actions()); diff != "" {
				t.Errorf("wrong actions (-want +got):\n%s", diff)
			}
			if c.removed {
				if got := p.texts(); len(got) != 0 {
					t.Errorf("removed message ran a command: %q", got)
				}
			}
		})
	}
}

func TestAntiSpam(t *testing.T) {
	ctx := context.Background()
	r, p := testRouter(t)
	r.Bot().Registry.Add(ctx, registry.Protections, command.AntiSpam)
	r.Bot().Registry.SetMapping(ctx, registry.Settings, command.RaidLog, "88")
	for range 2 {
		r.Handle(ctx, msg("9", "spam"))
	}
	if got := p.actions(); len(got) != 0 {
		t.Errorf("acted before threshold: %q", got)
	}
	r.Handle(ctx, msg("9", "spam"))
	if diff := cmp.Diff([]string{"timeout 9"}, p.actions()); diff != "" {
		t.Errorf("wrong actions (-want +got):\n%s", diff)
	}
	want := []string{"<@9> was timed out for spamming.", "Timed out <@9> for spamming in <#" + chat + ">."}
	if diff := cmp.Diff(want, p.texts()); diff != "" {
		t.Errorf("wrong messages (-want +got):\n%s", diff)
	}
	// Trusted members are exempt.
	for range 5 {
		r.Handle(ctx, msg(owner, "spam"))
	}
	if got := p.actions(); len(got) != 0 {
		t.Errorf("owner timed out: %q", got)
	}
}

func TestOnMemberJoin(t *testing.T) {
	cases := []struct {
		name   string
		sets   map[string][]string
		member command.Member
		acts   []string
		report []string
	}{
		{
			name:   "nothing",
			member: command.Member{ID: "5", Name: "bocchi"},
		},
		{
			name:   "banlist",
			sets:   map[string][]string{registry.Banlist: {"5"}},
			member: command.Member{ID: "5", Name: "bocchi"},
			acts:   []string{"ban 5"},
			report: []string{"Banned <@5> (bocchi) on the banlist."},
		},
		{
			name:   "antibot",
			sets:   map[string][]string{registry.Protections: {command.AntiBot}},
			member: command.Member{ID: "5", Name: "robot", Bot: true},
			acts:   []string{"kick 5 antibot"},
			report: []string{"Kicked bot <@5> (robot)."},
		},
		{
			name:   "antibot-human",
			sets:   map[string][]string{registry.Protections: {command.AntiBot}},
			member: command.Member{ID: "5", Name: "bocchi"},
		},
		{
			name:   "antiraid",
			sets:   map[string][]string{registry.Protections: {command.AntiRaid}},
			member: command.Member{ID: "5", Name: "bocchi"},
			acts:   []string{"kick 5 antiraid"},
			report: []string{"Kicked <@5> (bocchi) during raid protection."},
		},
		{
			name:   "owner",
			sets:   map[string][]string{registry.Protections: {command.AntiRaid}, registry.Banlist: {owner}},
			member: command.Member{ID: owner, Name: "kessoku"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := context.Background()
			r, p := testRouter(t)
			r.Bot().Registry.SetMapping(ctx, registry.Settings, command.RaidLog, "88")
			for name, ids := range c.sets {
				for _, id := range ids {
					r.Bot().Registry.Add(ctx, name, id)
				}
			}
			r.OnMemberJoin(ctx, guild, c.member)
			if diff := cmp.Diff(c.acts, p.actions()); diff != "" {
				t.Errorf("wrong actions (-want +got):\n%s", diff)
			}
			p.mu.Lock()
			var got []string
			for _, m := range p.sent {
				if m.To != "88" {
					t.Errorf("report sent to %q", m.To)
				}
				got = append(got, m.Text)
			}
			p.mu.Unlock()
			if diff := cmp.Diff(c.report, got); diff != "" {
				t.Errorf("wrong reports (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOnVoiceJoin(t *testing.T) {
	ctx := context.Background()
	r, p := testRouter(t)
	r.Bot().Registry.Add(ctx, registry.Blacklist, "5")
	r.Bot().Registry.Add(ctx, registry.Blacklist, owner)
	r.OnVoiceJoin(ctx, guild, "5", "vc")
	r.OnVoiceJoin(ctx, guild, "6", "vc")
	r.OnVoiceJoin(ctx, guild, owner, "vc")
	r.OnVoiceJoin(ctx, guild, "5", "")
	if diff := cmp.Diff([]string{"move 5 "}, p.actions()); diff != "" {
		t.Errorf("wrong actions (-want +got):\n%s", diff)
	}
}

func TestOnMemberUpdateDog(t *testing.T) {
	ctx := context.Background()
	r, p := testRouter(t)
	p.names["6"] = "kita"
	r.Bot().Registry.SetMapping(ctx, registry.Dogs, "5", "6")
	r.OnMemberUpdate(ctx, guild, "kita's dog", command.Member{ID: "5", Nick: "free"})
	r.OnMemberUpdate(ctx, guild, "free", command.Member{ID: "5", Nick: "kita's dog"})
	if diff := cmp.Diff([]string{"nick 5 kita's dog"}, p.actions()); diff != "" {
		t.Errorf("wrong actions (-want +got):\n%s", diff)
	}
}

func TestOnMemberUpdateLocked(t *testing.T) {
	ctx := context.Background()
	r, p := testRouter(t)
	r.Bot().Registry.Add(ctx, registry.LockedNames, "5")
	r.OnMemberUpdate(ctx, guild, "old", command.Member{ID: "5", Nick: "new"})
	// The restore shows up as another update, which changes nothing.
	r.OnMemberUpdate(ctx, guild, "new", command.Member{ID: "5", Nick: "old"})
	// Unlocked members are left alone.
	r.OnMemberUpdate(ctx, guild, "a", command.Member{ID: "6", Nick: "b"})
	if diff := cmp.Diff([]string{"nick 5 old"}, p.actions()); diff != "" {
		t.Errorf("wrong actions (-want +got):\n%s", diff)
	}
}

func TestSnipe(t *testing.T) {
	ctx := context.Background()
	r, p := testRouter(t)
	r.Handle(ctx, msg("9", "+snipe"))
	if diff := cmp.Diff([]string{"There's nothing to snipe."}, p.texts()); diff != "" {
		t.Errorf("wrong reply (-want +got):\n%s", diff)
	}
	old := &message.Received{ID: "1", To: chat, Sender: "5", Name: "bocchi", Text: "oops", Timestamp: time.Now().UnixMilli()}
	r.OnMessageDelete(ctx, old)
	r.OnMessageDelete(ctx, &message.Received{ID: "2", To: chat, Sender: "6", Text: "beep", IsBot: true})
	r.Handle(ctx, msg("9", "+snipe"))
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sent) != 1 || p.sent[0].Embed == nil {
		t.Fatalf("wrong snipe reply: %+v", p.sent)
	}
	e := p.sent[0].Embed
	if e.Title != "bocchi" || e.Description != "oops" {
		t.Errorf("wrong sniped message: %+v", e)
	}
}

func TestDogName(t *testing.T) {
	cases := []struct {
		master string
		want   string
	}{
		{"kita", "kita's dog"},
		{"", "'s dog"},
		{"abcdefghijklmnopqrstuvwxyz0123456789", "abcdefghijklmnopqrstuvwxyz's dog"},
	}
	for _, c := range cases {
		if got := command.DogName(c.master); got != c.want {
			t.Errorf("DogName(%q): want %q, got %q", c.master, c.want, got)
		}
		if n := len([]rune(command.DogName(c.master))); n > 32 {
			t.Errorf("DogName(%q) too long: %d", c.master, n)
		}
	}
}
