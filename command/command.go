package command

import (
	"context"
	"strconv"

	"github.com/zephyrtronium/bouncer/message"
)

// Invocation is a command invocation. An Invocation and its fields must not
// be modified or retained by any command.
type Invocation struct {
	// Message is the message which triggered the invocation.
	Message *message.Received
	// Name is the full name of the invoked command, including a subcommand.
	Name string
	// Args is the arguments following the command and subcommand names.
	Args []message.Arg
	// Tier is the caller's resolved permission tier.
	Tier Tier
	// Usage is the invoked command's usage text, without the prefix.
	Usage string
}

// Arg returns the ID of the i-th argument, or the empty string if there are
// not enough arguments.
func (call *Invocation) Arg(i int) string {
	if i >= len(call.Args) {
		return ""
	}
	return call.Args[i].ID
}

// Of returns the IDs of arguments of the given kind in order.
func (call *Invocation) Of(k message.Kind) []string {
	var r []string
	for _, a := range call.Args {
		if a.Kind == k {
			r = append(r, a.ID)
		}
	}
	return r
}

// Int parses the first plain argument that is an integer.
func (call *Invocation) Int() (int, bool) {
	for _, a := range call.Args {
		if a.Kind != message.Plain {
			continue
		}
		if n, err := strconv.Atoi(a.Raw); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Func executes a command.
type Func func(ctx context.Context, bot *Bot, call *Invocation)

// Tier is a permission tier. Higher tiers include lower ones.
type Tier int

const (
	// Everyone is any caller.
	Everyone Tier = iota
	// Trusted is whitelisted callers, guild administrators, and the owner.
	Trusted
	// Owner is only the bot owner.
	Owner
)

func (t Tier) String() string {
	switch t {
	case Everyone:
		return "everyone"
	case Trusted:
		return "trusted"
	case Owner:
		return "owner"
	default:
		return "Tier(" + strconv.Itoa(int(t)) + ")"
	}
}

// Descriptor binds a command name to its permission tier and operation.
type Descriptor struct {
	// Name is the case-folded command name.
	Name string
	// Tier is the minimum tier allowed to invoke the command.
	Tier Tier
	// Func is the operation. If nil, the command only dispatches to Subs
	// and replies with its usage otherwise.
	Func Func
	// Usage is a short usage line shown on misuse and in help.
	Usage string
	// Help describes the command.
	Help string
	// Subs is the set of subcommands keyed by case-folded name. A
	// subcommand has its own tier.
	Subs map[string]*Descriptor
}
