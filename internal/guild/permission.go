package guild

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// State is a tri-state permission value. The zero value leaves the bit as
// it currently is.
type State int

const (
	Unset State = iota
	Allow
	Deny
	Inherit
)

func (s State) String() string {
	switch s {
	case Unset:
		return "unset"
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Inherit:
		return "inherit"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Permission is the subset of overwrite bits the game manages.
type Permission struct {
	View State
	Send State
}

func (p Permission) String() string {
	return fmt.Sprintf("view=%s send=%s", p.View, p.Send)
}

// Merge applies p on top of an existing overwrite's allow and deny masks.
// Applying the same permission twice gives the same masks as applying it once.
func (p Permission) Merge(allow, deny int64) (int64, int64) {
	allow, deny = mergeBit(allow, deny, discordgo.PermissionViewChannel, p.View)
	allow, deny = mergeBit(allow, deny, discordgo.PermissionSendMessages, p.Send)
	return allow, deny
}

func mergeBit(allow, deny, bit int64, s State) (int64, int64) {
	switch s {
	case Allow:
		return allow | bit, deny &^ bit
	case Deny:
		return allow &^ bit, deny | bit
	case Inherit:
		return allow &^ bit, deny &^ bit
	default:
		return allow, deny
	}
}

// StateOf reads bit back from an overwrite's masks.
func StateOf(allow, deny, bit int64) State {
	switch {
	case allow&bit != 0:
		return Allow
	case deny&bit != 0:
		return Deny
	default:
		return Inherit
	}
}
