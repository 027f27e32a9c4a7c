package message

import (
	"fmt"
	"strings"
	"time"
)

// Received is a message received from the gateway.
type Received struct {
	// ID is the unique ID of the message.
	ID string
	// To is the channel in which the message was sent.
	To string
	// Guild is the guild containing the channel. It is empty for direct
	// messages.
	Guild string
	// Sender is the user ID of the message sender.
	Sender string
	// Name is the display name of the message sender.
	Name string
	// Text is the text of the message.
	Text string
	// Timestamp is the timestamp of the message as milliseconds since the
	// Unix epoch.
	Timestamp int64
	// IsBot indicates whether the sender is an automated account.
	IsBot bool
	// IsAdmin indicates whether the sender has the administrator capability
	// in the guild.
	IsAdmin bool
}

func (m *Received) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Sent is a message to be sent to the gateway.
type Sent struct {
	// Reply is a message to reply to. If empty, the message is not interpreted
	// as a reply.
	Reply string
	// To is the channel to which the message is sent.
	To string
	// Text is the message text.
	Text string
	// Embed is an optional rich embed to send with the text.
	Embed *Embed
}

// Embed is a rich message body.
type Embed struct {
	Title       string
	Description string
	// Image is the URL of an image to show in the embed.
	Image  string
	Fields []Field
}

// Field is a named section of an embed.
type Field struct {
	Name  string
	Value string
}

// formatString is a type to prevent misuse of format strings passed to [Format].
type formatString string

// Format constructs a message to send from a format string literal and
// formatting arguments.
func Format(reply, to string, f formatString, args ...any) Sent {
	return Sent{
		Reply: reply,
		To:    to,
		Text:  strings.TrimSpace(fmt.Sprintf(string(f), args...)),
	}
}
