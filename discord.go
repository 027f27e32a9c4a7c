package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/zephyrtronium/bouncer/command"
	"github.com/zephyrtronium/bouncer/message"
)

// Discord is the Discord gateway connection and the platform actions
// commands use.
type Discord struct {
	session *discordgo.Session
	// guild restricts event handling to one guild when non-empty.
	guild string
	rate  *rate.Limiter
	log   *slog.Logger
}

var _ command.Platform = (*Discord)(nil)

// NewDiscord creates a Discord session. Event handlers are attached by
// [Discord.Route].
func NewDiscord(token, guild string, lim *rate.Limiter, log *slog.Logger) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildModeration |
		discordgo.IntentGuildVoiceStates |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent
	// Keep recent messages so deletions carry their content.
	session.State.MaxMessageCount = 100
	return &Discord{session: session, guild: guild, rate: lim, log: log}, nil
}

// Route attaches gateway event handlers that feed the router.
func (d *Discord) Route(ctx context.Context, r *command.Router) {
	d.session.AddHandler(func(s *discordgo.Session, ev *discordgo.Ready) {
		d.log.InfoContext(ctx, "connected", slog.String("user", ev.User.Username), slog.Int("guilds", len(ev.Guilds)))
	})
	d.session.AddHandler(func(s *discordgo.Session, ev *discordgo.MessageCreate) {
		if !d.serves(ev.GuildID) || ev.Author == nil {
			return
		}
		msg := d.received(ev.Message)
		if msg.Guild != "" && !msg.IsBot {
			msg.IsAdmin = d.admin(msg.Sender, msg.To)
		}
		r.Handle(ctx, msg)
	})
	d.session.AddHandler(func(s *discordgo.Session, ev *discordgo.MessageDelete) {
		if !d.serves(ev.GuildID) || ev.BeforeDelete == nil || ev.BeforeDelete.Author == nil {
			return
		}
		r.OnMessageDelete(ctx, d.received(ev.BeforeDelete))
	})
	d.session.AddHandler(func(s *discordgo.Session, ev *discordgo.GuildMemberAdd) {
		if !d.serves(ev.GuildID) || ev.Member == nil || ev.User == nil {
			return
		}
		r.OnMemberJoin(ctx, ev.GuildID, member(ev.Member))
	})
	d.session.AddHandler(func(s *discordgo.Session, ev *discordgo.GuildMemberUpdate) {
		if !d.serves(ev.GuildID) || ev.Member == nil || ev.User == nil {
			return
		}
		var before string
		if ev.BeforeUpdate != nil {
			before = ev.BeforeUpdate.Nick
		}
		r.OnMemberUpdate(ctx, ev.GuildID, before, member(ev.Member))
	})
	d.session.AddHandler(func(s *discordgo.Session, ev *discordgo.VoiceStateUpdate) {
		if !d.serves(ev.GuildID) || ev.ChannelID == "" {
			return
		}
		if ev.BeforeUpdate != nil && ev.BeforeUpdate.ChannelID == ev.ChannelID {
			// Mute, deafen, or similar.
			return
		}
		r.OnVoiceJoin(ctx, ev.GuildID, ev.UserID, ev.ChannelID)
	})
}

// Run opens the gateway connection and holds it until ctx is done.
func (d *Discord) Run(ctx context.Context) error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("couldn't connect to Discord: %w", err)
	}
	<-ctx.Done()
	if err := d.session.Close(); err != nil {
		d.log.ErrorContext(ctx, "closing Discord session", slog.Any("err", err))
	}
	return ctx.Err()
}

func (d *Discord) serves(guild string) bool {
	return d.guild == "" || guild == "" || guild == d.guild
}

func (d *Discord) received(m *discordgo.Message) *message.Received {
	msg := &message.Received{
		ID:        m.ID,
		To:        m.ChannelID,
		Guild:     m.GuildID,
		Text:      m.Content,
		Timestamp: m.Timestamp.UnixMilli(),
	}
	if m.Author != nil {
		msg.Sender = m.Author.ID
		msg.Name = userName(m.Author)
		msg.IsBot = m.Author.Bot
	}
	if m.Member != nil && m.Member.Nick != "" {
		msg.Name = m.Member.Nick
	}
	return msg
}

// admin reports whether a user has the administrator permission in a
// channel. Lookup failures count as no.
func (d *Discord) admin(user, channel string) bool {
	p, err := d.session.State.UserChannelPermissions(user, channel)
	if err != nil {
		p, err = d.session.UserChannelPermissions(user, channel)
		if err != nil {
			d.log.Warn("couldn't get permissions", slog.String("user", user), slog.String("channel", channel), slog.Any("err", err))
			return false
		}
	}
	return p&discordgo.PermissionAdministrator != 0
}

func userName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func member(m *discordgo.Member) command.Member {
	r := command.Member{Nick: m.Nick}
	if m.User != nil {
		r.ID = m.User.ID
		r.Name = userName(m.User)
		r.Bot = m.User.Bot
	}
	if m.Nick != "" {
		r.Name = m.Nick
	}
	return r
}

// Send sends a message, waiting on the rate limiter.
func (d *Discord) Send(ctx context.Context, msg message.Sent) error {
	if err := d.rate.Wait(ctx); err != nil {
		return fmt.Errorf("couldn't wait to send: %w", err)
	}
	m := &discordgo.MessageSend{
		Content: msg.Text,
		// Mentions in replies render but never notify.
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if msg.Reply != "" {
		m.Reference = &discordgo.MessageReference{MessageID: msg.Reply, ChannelID: msg.To}
	}
	if e := msg.Embed; e != nil {
		em := &discordgo.MessageEmbed{Title: e.Title, Description: e.Description}
		if e.Image != "" {
			em.Image = &discordgo.MessageEmbedImage{URL: e.Image}
		}
		for _, f := range e.Fields {
			em.Fields = append(em.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: true})
		}
		m.Embeds = []*discordgo.MessageEmbed{em}
	}
	_, err := d.session.ChannelMessageSendComplex(msg.To, m, discordgo.WithContext(ctx))
	return err
}

func (d *Discord) Member(ctx context.Context, guild, user string) (command.Member, error) {
	m, err := d.session.State.Member(guild, user)
	if err != nil {
		m, err = d.session.GuildMember(guild, user, discordgo.WithContext(ctx))
		if err != nil {
			return command.Member{}, err
		}
	}
	return member(m), nil
}

func (d *Discord) VoiceChannel(ctx context.Context, guild, user string) (string, error) {
	vs, err := d.session.State.VoiceState(guild, user)
	switch {
	case err == nil:
		return vs.ChannelID, nil
	case errors.Is(err, discordgo.ErrStateNotFound):
		return "", nil
	default:
		return "", err
	}
}

func (d *Discord) Move(ctx context.Context, guild, user, channel string) error {
	var ch *string
	if channel != "" {
		ch = &channel
	}
	return d.session.GuildMemberMove(guild, user, ch, discordgo.WithContext(ctx))
}

func (d *Discord) SetNickname(ctx context.Context, guild, user, nick string) error {
	return d.session.GuildMemberNickname(guild, user, nick, discordgo.WithContext(ctx))
}

func (d *Discord) Ban(ctx context.Context, guild, user, reason string) error {
	return d.session.GuildBanCreateWithReason(guild, user, reason, 0, discordgo.WithContext(ctx))
}

func (d *Discord) Unban(ctx context.Context, guild, user string) error {
	return d.session.GuildBanDelete(guild, user, discordgo.WithContext(ctx))
}

func (d *Discord) Kick(ctx context.Context, guild, user, reason string) error {
	return d.session.GuildMemberDeleteWithReason(guild, user, reason, discordgo.WithContext(ctx))
}

func (d *Discord) Timeout(ctx context.Context, guild, user string, until time.Time) error {
	return d.session.GuildMemberTimeout(guild, user, &until, discordgo.WithContext(ctx))
}

func (d *Discord) AddRole(ctx context.Context, guild, user, role string) error {
	return d.session.GuildMemberRoleAdd(guild, user, role, discordgo.WithContext(ctx))
}

func (d *Discord) RemoveRole(ctx context.Context, guild, user, role string) error {
	return d.session.GuildMemberRoleRemove(guild, user, role, discordgo.WithContext(ctx))
}

func (d *Discord) Roles(ctx context.Context, guild, user string) ([]string, error) {
	m, err := d.session.State.Member(guild, user)
	if err != nil {
		m, err = d.session.GuildMember(guild, user, discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
	}
	return m.Roles, nil
}

// RoleMembers counts role holders among the members in the state cache.
func (d *Discord) RoleMembers(ctx context.Context, guild, role string) (int, error) {
	g, err := d.session.State.Guild(guild)
	if err != nil {
		return 0, err
	}
	d.session.State.RLock()
	defer d.session.State.RUnlock()
	n := 0
	for _, m := range g.Members {
		for _, r := range m.Roles {
			if r == role {
				n++
				break
			}
		}
	}
	return n, nil
}

func (d *Discord) RecentMessages(ctx context.Context, channel string, n int) ([]string, error) {
	ms, err := d.session.ChannelMessages(channel, n, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.ID
	}
	return ids, nil
}

func (d *Discord) DeleteMessages(ctx context.Context, channel string, ids []string) error {
	switch len(ids) {
	case 0:
		return nil
	case 1:
		return d.session.ChannelMessageDelete(channel, ids[0], discordgo.WithContext(ctx))
	default:
		return d.session.ChannelMessagesBulkDelete(channel, ids, discordgo.WithContext(ctx))
	}
}

func (d *Discord) SetSlowmode(ctx context.Context, channel string, seconds int) error {
	_, err := d.session.ChannelEditComplex(channel, &discordgo.ChannelEdit{RateLimitPerUser: &seconds}, discordgo.WithContext(ctx))
	return err
}

func (d *Discord) GuildImages(ctx context.Context, guild string) (icon, banner string, err error) {
	g, err := d.session.Guild(guild, discordgo.WithContext(ctx))
	if err != nil {
		return "", "", err
	}
	return g.IconURL("1024"), g.BannerURL("1024"), nil
}

func (d *Discord) UserBanner(ctx context.Context, user string) (string, error) {
	u, err := d.session.User(user, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return u.BannerURL("1024"), nil
}
