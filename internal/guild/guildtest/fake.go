// Package guildtest provides an in-memory guild for tests.
package guildtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"motive-discord-bot/internal/guild"
)

// Message is a message recorded by SendText.
type Message struct {
	ChannelID string
	Text      string
}

// RoleRemoval is a call recorded by RemoveRole.
type RoleRemoval struct {
	UserID string
	RoleID string
}

// Fake implements every guild service against in-memory state.
type Fake struct {
	mu sync.Mutex

	guild    *discordgo.Guild
	roles    []*discordgo.Role
	channels []*discordgo.Channel
	members  []*discordgo.Member

	Sent          []Message
	Purged        []string
	Removals      []RoleRemoval
	NickEdits     map[string]string
	PermissionOps int
	Events        []string

	// Failure injection keyed by channel id (permissions, purge) or user id
	// (role edits).
	FailPermission map[string]error
	FailPurge      map[string]error
	FailRole       map[string]error
}

var (
	_ guild.Directory         = (*Fake)(nil)
	_ guild.PermissionService = (*Fake)(nil)
	_ guild.MembershipService = (*Fake)(nil)
	_ guild.MessagingService  = (*Fake)(nil)
)

// New returns an empty guild owned by ownerID. The @everyone role is
// created with the guild's id.
func New(guildID, ownerID string) *Fake {
	return &Fake{
		guild:          &discordgo.Guild{ID: guildID, Name: "test-" + guildID, OwnerID: ownerID},
		roles:          []*discordgo.Role{{ID: guildID, Name: "@everyone"}},
		NickEdits:      map[string]string{},
		FailPermission: map[string]error{},
		FailPurge:      map[string]error{},
		FailRole:       map[string]error{},
	}
}

// Services returns the fake wired into every slot.
func (f *Fake) Services() guild.Services {
	return guild.Services{Directory: f, Permissions: f, Membership: f, Messaging: f}
}

// GuildID returns the fake's guild id.
func (f *Fake) GuildID() string { return f.guild.ID }

// AddRole creates a role named name with id "role-<lowercase name>".
func (f *Fake) AddRole(name string) *discordgo.Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &discordgo.Role{ID: "role-" + strings.ToLower(name), Name: name}
	f.roles = append(f.roles, r)
	return r
}

// AddChannel creates a channel with id "ch-<name>".
func (f *Fake) AddChannel(name string, typ discordgo.ChannelType, parentID string) *discordgo.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &discordgo.Channel{ID: "ch-" + name, GuildID: f.guild.ID, Name: name, Type: typ, ParentID: parentID}
	f.channels = append(f.channels, ch)
	return ch
}

// AddTextChannel creates a top-level text channel.
func (f *Fake) AddTextChannel(name string) *discordgo.Channel {
	return f.AddChannel(name, discordgo.ChannelTypeGuildText, "")
}

// AddForeignChannel creates a text channel with the given id that belongs
// to another guild. It is reachable through Channel but never listed.
func (f *Fake) AddForeignChannel(id, guildID string) *discordgo.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &discordgo.Channel{ID: id, GuildID: guildID, Name: id, Type: discordgo.ChannelTypeGuildText}
	f.channels = append(f.channels, ch)
	return ch
}

// AddMember adds a member holding the named roles, which must exist.
func (f *Fake) AddMember(userID string, bot bool, roleNames ...string) *discordgo.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &discordgo.Member{
		GuildID: f.guild.ID,
		User:    &discordgo.User{ID: userID, Username: userID, Bot: bot},
		Nick:    "nick-" + userID,
	}
	for _, name := range roleNames {
		for _, r := range f.roles {
			if r.Name == name {
				m.Roles = append(m.Roles, r.ID)
			}
		}
	}
	f.members = append(f.members, m)
	return m
}

// SetOverwrite seeds an overwrite on a channel.
func (f *Fake) SetOverwrite(channelID, roleID string, allow, deny int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := f.channelLocked(channelID)
	ow := overwriteFor(ch, roleID)
	ow.Allow, ow.Deny = allow, deny
}

// Overwrite returns a copy of the role's overwrite on the channel, or nil.
func (f *Fake) Overwrite(channelID, roleID string) *discordgo.PermissionOverwrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := f.channelLocked(channelID)
	if ch == nil {
		return nil
	}
	for _, ow := range ch.PermissionOverwrites {
		if ow.ID == roleID {
			c := *ow
			return &c
		}
	}
	return nil
}

// Overwrites returns a copy of every overwrite keyed by channel id then role id.
func (f *Fake) Overwrites() map[string]map[string]discordgo.PermissionOverwrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]map[string]discordgo.PermissionOverwrite{}
	for _, ch := range f.channels {
		m := map[string]discordgo.PermissionOverwrite{}
		for _, ow := range ch.PermissionOverwrites {
			m[ow.ID] = *ow
		}
		out[ch.ID] = m
	}
	return out
}

// Member returns the member with userID.
func (f *Fake) Member(userID string) *discordgo.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.memberLocked(userID)
}

func (f *Fake) Guild(_ context.Context, guildID string) (*discordgo.Guild, error) {
	if guildID != f.guild.ID {
		return nil, fmt.Errorf("unknown guild %s", guildID)
	}
	g := *f.guild
	return &g, nil
}

func (f *Fake) Roles(_ context.Context, _ string) ([]*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.Role(nil), f.roles...), nil
}

func (f *Fake) TextChannels(_ context.Context, _ string) ([]*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*discordgo.Channel
	for _, ch := range f.channels {
		if ch.GuildID == f.guild.ID && guild.IsTextChannel(ch) {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *Fake) Channel(_ context.Context, channelID string) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := f.channelLocked(channelID)
	if ch == nil {
		return nil, fmt.Errorf("unknown channel %s", channelID)
	}
	return ch, nil
}

func (f *Fake) Members(_ context.Context, _ string) ([]*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.Member(nil), f.members...), nil
}

func (f *Fake) SetChannelPermission(_ context.Context, channelID, roleID string, p guild.Permission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PermissionOps++
	if err := f.FailPermission[channelID]; err != nil {
		return err
	}
	ch := f.channelLocked(channelID)
	if ch == nil {
		return fmt.Errorf("unknown channel %s", channelID)
	}
	ow := overwriteFor(ch, roleID)
	ow.Allow, ow.Deny = p.Merge(ow.Allow, ow.Deny)
	return nil
}

func (f *Fake) CopyPermissions(_ context.Context, source, target *discordgo.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PermissionOps++
	if err := f.FailPermission[target.ID]; err != nil {
		return err
	}
	src := f.channelLocked(source.ID)
	dst := f.channelLocked(target.ID)
	if src == nil || dst == nil {
		return fmt.Errorf("unknown channel %s or %s", source.ID, target.ID)
	}
	dst.PermissionOverwrites = nil
	for _, ow := range src.PermissionOverwrites {
		c := *ow
		dst.PermissionOverwrites = append(dst.PermissionOverwrites, &c)
	}
	return nil
}

func (f *Fake) RemoveRole(_ context.Context, _ string, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailRole[userID]; err != nil {
		return err
	}
	m := f.memberLocked(userID)
	if m == nil {
		return fmt.Errorf("unknown member %s", userID)
	}
	kept := m.Roles[:0]
	for _, id := range m.Roles {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	m.Roles = kept
	f.Removals = append(f.Removals, RoleRemoval{UserID: userID, RoleID: roleID})
	f.Events = append(f.Events, "remove:"+userID+":"+roleID)
	return nil
}

func (f *Fake) SetNickname(_ context.Context, _ string, userID, nick string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.memberLocked(userID)
	if m == nil {
		return fmt.Errorf("unknown member %s", userID)
	}
	m.Nick = nick
	f.NickEdits[userID] = nick
	f.Events = append(f.Events, "nick:"+userID)
	return nil
}

func (f *Fake) SendText(_ context.Context, channelID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, Message{ChannelID: channelID, Text: text})
	return nil
}

func (f *Fake) PurgeAll(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailPurge[channelID]; err != nil {
		return err
	}
	f.Purged = append(f.Purged, channelID)
	return nil
}

func (f *Fake) channelLocked(id string) *discordgo.Channel {
	for _, ch := range f.channels {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

func (f *Fake) memberLocked(userID string) *discordgo.Member {
	for _, m := range f.members {
		if m.User.ID == userID {
			return m
		}
	}
	return nil
}

func overwriteFor(ch *discordgo.Channel, roleID string) *discordgo.PermissionOverwrite {
	for _, ow := range ch.PermissionOverwrites {
		if ow.ID == roleID {
			return ow
		}
	}
	ow := &discordgo.PermissionOverwrite{ID: roleID, Type: discordgo.PermissionOverwriteTypeRole}
	ch.PermissionOverwrites = append(ch.PermissionOverwrites, ow)
	return ow
}
