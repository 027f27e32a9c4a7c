package command_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zephyrtronium/bouncer/command"
	"github.com/zephyrtronium/bouncer/cooldown"
	"github.com/zephyrtronium/bouncer/message"
	"github.com/zephyrtronium/bouncer/metrics"
	"github.com/zephyrtronium/bouncer/registry"
	"github.com/zephyrtronium/bouncer/snipe"
)

// fake is a Platform that records every call.
type fake struct {
	mu    sync.Mutex
	sent  []message.Sent
	calls []string
	// fail is the set of actions that fail.
	fail map[string]bool
	// voice maps users to their voice channels.
	voice map[string]string
	// names maps users to display names.
	names map[string]string
	// roles maps users to their roles.
	roles map[string][]string
	// holders counts role members.
	holders map[string]int
	// recent is the recent message IDs per channel, newest first.
	recent map[string][]string
	icon   string
	banner string
}

var errFake = errors.New("fake failure")

func (f *fake) record(action string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := action
	for _, a := range args {
		s += " " + fmt.Sprint(a)
	}
	f.calls = append(f.calls, s)
	if f.fail[action] {
		return errFake
	}
	return nil
}

func (f *fake) Send(ctx context.Context, msg message.Sent) error {
	if err := f.record("send"); err != nil {
		return err
	}
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	return nil
}

func (f *fake) Member(ctx context.Context, guild, user string) (command.Member, error) {
	if err := f.record("member", user); err != nil {
		return command.Member{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	name := f.names[user]
	if name == "" {
		name = user
	}
	return command.Member{ID: user, Name: name}, nil
}

func (f *fake) VoiceChannel(ctx context.Context, guild, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.voice[user], nil
}

func (f *fake) Move(ctx context.Context, guild, user, channel string) error {
	return f.record("move", user, channel)
}

func (f *fake) SetNickname(ctx context.Context, guild, user, nick string) error {
	return f.record("nick", user, nick)
}

func (f *fake) Ban(ctx context.Context, guild, user, reason string) error {
	return f.record("ban", user)
}

func (f *fake) Unban(ctx context.Context, guild, user string) error {
	return f.record("unban", user)
}

func (f *fake) Kick(ctx context.Context, guild, user, reason string) error {
	return f.record("kick", user, reason)
}

func (f *fake) Timeout(ctx context.Context, guild, user string, until time.Time) error {
	return f.record("timeout", user)
}

func (f *fake) AddRole(ctx context.Context, guild, user, role string) error {
	return f.record("addrole", user, role)
}

func (f *fake) RemoveRole(ctx context.Context, guild, user, role string) error {
	return f.record("delrole", user, role)
}

func (f *fake) Roles(ctx context.Context, guild, user string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roles[user], nil
}

func (f *fake) RoleMembers(ctx context.Context, guild, role string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holders[role], nil
}

func (f *fake) RecentMessages(ctx context.Context, channel string, n int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.recent[channel]
	return r[:min(n, len(r))], nil
}

func (f *fake) DeleteMessages(ctx context.Context, channel string, ids []string) error {
	return f.record("delete", channel, strings.Join(ids, ","))
}

func (f *fake) SetSlowmode(ctx context.Context, channel string, seconds int) error {
	return f.record("slowmode", channel, seconds)
}

func (f *fake) GuildImages(ctx context.Context, guild string) (string, string, error) {
	return f.icon, f.banner, nil
}

func (f *fake) UserBanner(ctx context.Context, user string) (string, error) {
	return "", nil
}

// texts returns the text of each sent message and forgets them.
func (f *fake) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := make([]string, len(f.sent))
	for i, m := range f.sent {
		r[i] = m.Text
	}
	f.sent = nil
	return r
}

// actions returns the recorded calls other than sends and member lookups
// and forgets them.
func (f *fake) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var r []string
	for _, c := range f.calls {
		if c == "send" || strings.HasPrefix(c, "member ") {
			continue
		}
		r = append(r, c)
	}
	f.calls = nil
	return r
}

// memStore is a registry store that keeps nothing.
type memStore struct {
	saves int
}

func (s *memStore) Load(ctx context.Context, name string, kind registry.Kind) (*registry.Collection, error) {
	return &registry.Collection{Name: name, Kind: kind}, nil
}

func (s *memStore) Save(ctx context.Context, snap []*registry.Collection) error {
	s.saves++
	return nil
}

const (
	owner = "1000"
	guild = "2000"
	chat  = "3000"
)

func testRouter(t *testing.T) (*command.Router, *fake) {
	t.Helper()
	reg, err := registry.Open(context.Background(), new(memStore), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("couldn't open registry: %v", err)
	}
	p := &fake{
		fail:    map[string]bool{},
		voice:   map[string]string{},
		names:   map[string]string{},
		roles:   map[string][]string{},
		holders: map[string]int{},
		recent:  map[string][]string{},
	}
	bot := &command.Bot{
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Registry:  reg,
		Cooldowns: cooldown.New(),
		Spam:      cooldown.NewCounter(3, time.Hour),
		Snipes:    snipe.New(),
		Platform:  p,
		Metrics:   metrics.Nop(),
		Owner:     owner,
		Prefix:    "+",
		Settings: command.Settings{
			WakeupMax:      command.DefaultWakeupMax,
			WakeupCooldown: time.Minute,
			WakeupAway:     "afk",
			SpamTimeout:    time.Minute,
			Apology:        "sorry",
		},
	}
	return command.NewRouter(bot, command.Table()), p
}

var msgID atomic.Int64

// msg creates a message from sender in the test channel.
func msg(sender, text string) *message.Received {
	return &message.Received{
		ID:        fmt.Sprint(msgID.Add(1)),
		To:        chat,
		Guild:     guild,
		Sender:    sender,
		Name:      "name-" + sender,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
}
