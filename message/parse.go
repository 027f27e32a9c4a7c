package message

import (
	"strings"

	"golang.org/x/text/cases"
)

// Kind is the kind of a command argument.
type Kind int

const (
	// Plain is an argument with no special syntax.
	Plain Kind = iota
	// User is a user mention, <@id> or <@!id>.
	User
	// Role is a role mention, <@&id>.
	Role
	// Channel is a channel mention, <#id>.
	Channel
)

// Arg is a single command argument.
type Arg struct {
	// Raw is the argument as written.
	Raw string
	// ID is the mentioned ID for mentions and Raw otherwise.
	ID string
	// Kind is the kind of the argument.
	Kind Kind
}

// Command is a parsed command invocation.
type Command struct {
	// Name is the case-folded command name.
	Name string
	// Args is the arguments in order, mentions included.
	Args []Arg
}

// Fold case-folds a command or subcommand name.
func Fold(s string) string {
	// Casers are stateful, so each call gets its own.
	return cases.Fold().String(s)
}

// Parse parses a command invocation from message text. An invocation is text
// starting with prefix immediately followed by the command name.
func Parse(prefix, text string) (Command, bool) {
	text = strings.TrimSpace(text)
	rest, ok := strings.CutPrefix(text, prefix)
	if !ok || prefix == "" {
		return Command{}, false
	}
	f := strings.Fields(rest)
	if len(f) == 0 || strings.HasPrefix(rest, " ") {
		return Command{}, false
	}
	cmd := Command{Name: Fold(f[0])}
	if len(f) > 1 {
		cmd.Args = make([]Arg, len(f)-1)
		for i, s := range f[1:] {
			cmd.Args[i] = ParseArg(s)
		}
	}
	return cmd, true
}

// ParseArg parses a single argument.
func ParseArg(s string) Arg {
	a := Arg{Raw: s, ID: s, Kind: Plain}
	inner, ok := strings.CutPrefix(s, "<")
	if !ok {
		return a
	}
	inner, ok = strings.CutSuffix(inner, ">")
	if !ok {
		return a
	}
	var k Kind
	switch {
	case strings.HasPrefix(inner, "@&"):
		k, inner = Role, inner[2:]
	case strings.HasPrefix(inner, "@!"):
		k, inner = User, inner[2:]
	case strings.HasPrefix(inner, "@"):
		k, inner = User, inner[1:]
	case strings.HasPrefix(inner, "#"):
		k, inner = Channel, inner[1:]
	default:
		return a
	}
	if !snowflake(inner) {
		return a
	}
	a.ID, a.Kind = inner, k
	return a
}

func snowflake(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
