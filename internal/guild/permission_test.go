package guild

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

const (
	view = discordgo.PermissionViewChannel
	send = discordgo.PermissionSendMessages
)

func TestPermissionMerge(t *testing.T) {
	tests := []struct {
		name      string
		perm      Permission
		allow     int64
		deny      int64
		wantAllow int64
		wantDeny  int64
	}{
		{"deny both on empty", Permission{View: Deny, Send: Deny}, 0, 0, 0, view | send},
		{"allow view keeps send deny", Permission{View: Allow}, 0, view | send, view, send},
		{"inherit send clears both sides", Permission{Send: Inherit}, send, send, 0, 0},
		{"unset keeps everything", Permission{}, view, send, view, send},
		{"other bits untouched", Permission{View: Deny}, discordgo.PermissionAddReactions, 0, discordgo.PermissionAddReactions, view},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allow, deny := tt.perm.Merge(tt.allow, tt.deny)
			require.Equal(t, tt.wantAllow, allow)
			require.Equal(t, tt.wantDeny, deny)
		})
	}
}

func TestPermissionMergeIdempotent(t *testing.T) {
	p := Permission{View: Allow, Send: Deny}
	a1, d1 := p.Merge(send, view)
	a2, d2 := p.Merge(a1, d1)
	require.Equal(t, a1, a2)
	require.Equal(t, d1, d2)
}

func TestStateOf(t *testing.T) {
	require.Equal(t, Allow, StateOf(view, 0, view))
	require.Equal(t, Deny, StateOf(0, view, view))
	require.Equal(t, Inherit, StateOf(send, 0, view))
	require.Equal(t, "view=allow send=unset", Permission{View: Allow}.String())
}
