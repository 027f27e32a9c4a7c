package command

import (
	"context"
	"time"

	"github.com/zephyrtronium/bouncer/message"
)

// Platform is the chat platform as seen by commands. Every method is a
// network call which may fail.
type Platform interface {
	// Send sends a message.
	Send(ctx context.Context, msg message.Sent) error
	// Member looks up a guild member.
	Member(ctx context.Context, guild, user string) (Member, error)
	// VoiceChannel returns the voice channel a member is connected to, or
	// the empty string if they are not connected.
	VoiceChannel(ctx context.Context, guild, user string) (string, error)
	// Move moves a member to a voice channel. The empty channel disconnects
	// the member.
	Move(ctx context.Context, guild, user, channel string) error
	// SetNickname sets a member's nickname.
	SetNickname(ctx context.Context, guild, user, nick string) error
	// Ban bans a user from a guild.
	Ban(ctx context.Context, guild, user, reason string) error
	// Unban lifts a ban.
	Unban(ctx context.Context, guild, user string) error
	// Kick removes a member from a guild.
	Kick(ctx context.Context, guild, user, reason string) error
	// Timeout prevents a member from talking until the given time.
	Timeout(ctx context.Context, guild, user string, until time.Time) error
	// AddRole gives a role to a member.
	AddRole(ctx context.Context, guild, user, role string) error
	// RemoveRole takes a role from a member.
	RemoveRole(ctx context.Context, guild, user, role string) error
	// Roles lists a member's roles.
	Roles(ctx context.Context, guild, user string) ([]string, error)
	// RoleMembers counts the members holding a role.
	RoleMembers(ctx context.Context, guild, role string) (int, error)
	// RecentMessages returns the IDs of up to n recent messages in a channel.
	RecentMessages(ctx context.Context, channel string, n int) ([]string, error)
	// DeleteMessages deletes messages in a channel.
	DeleteMessages(ctx context.Context, channel string, ids []string) error
	// SetSlowmode sets the per-user message interval of a channel.
	SetSlowmode(ctx context.Context, channel string, seconds int) error
	// GuildImages returns the URLs of a guild's icon and banner. Either may
	// be empty.
	GuildImages(ctx context.Context, guild string) (icon, banner string, err error)
	// UserBanner returns the URL of a user's profile banner, or the empty
	// string if they have none.
	UserBanner(ctx context.Context, user string) (string, error)
}

// Member is a guild member.
type Member struct {
	// ID is the member's user ID.
	ID string
	// Nick is the member's guild nickname, possibly empty.
	Nick string
	// Name is the member's display name.
	Name string
	// Bot indicates whether the member is an automated account.
	Bot bool
}

// Result is the outcome of invoking an external action.
type Result struct {
	// Action names the action.
	Action string
	// Err is the failure reason, or nil if the action succeeded.
	Err error
}

// OK reports whether the action succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}
