// Package guild declares the platform services the game core talks to.
//
// The types are discordgo's own model types; the discord package provides
// the session-backed implementation and tests provide in-memory fakes.
package guild

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
)

var (
	// ErrRoleNotFound means an expected role does not exist in the guild.
	// Callers treat it as a skip since players may not have joined yet.
	ErrRoleNotFound = errors.New("role not found")

	ErrPermissionEditFailed = errors.New("permission edit failed")
	ErrPurgeFailed          = errors.New("purge failed")
	ErrRoleEditFailed       = errors.New("role edit failed")

	// ErrForeignChannel means a channel named in a request is not a text
	// channel of the requesting guild.
	ErrForeignChannel = errors.New("not a text channel of this guild")
)

// Directory reads guild structure.
type Directory interface {
	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	Roles(ctx context.Context, guildID string) ([]*discordgo.Role, error)
	TextChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	Members(ctx context.Context, guildID string) ([]*discordgo.Member, error)
}

// PermissionService edits channel permission overwrites.
type PermissionService interface {
	// SetChannelPermission merges p into the role's overwrite on the channel.
	SetChannelPermission(ctx context.Context, channelID, roleID string, p Permission) error
	// CopyPermissions replaces target's overwrites with source's.
	CopyPermissions(ctx context.Context, source, target *discordgo.Channel) error
}

// MembershipService edits guild members.
type MembershipService interface {
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
	// SetNickname sets the member's nickname; an empty nick clears it.
	SetNickname(ctx context.Context, guildID, userID, nick string) error
}

// MessagingService sends and deletes channel messages.
type MessagingService interface {
	SendText(ctx context.Context, channelID, text string) error
	PurgeAll(ctx context.Context, channelID string) error
}

// Services bundles every collaborator.
type Services struct {
	Directory   Directory
	Permissions PermissionService
	Membership  MembershipService
	Messaging   MessagingService
}

// EveryoneRoleID returns the id of the @everyone role, which shares the
// guild's id.
func EveryoneRoleID(g *discordgo.Guild) string {
	return g.ID
}

// IsTextChannel reports whether ch is a guild text channel.
func IsTextChannel(ch *discordgo.Channel) bool {
	return ch != nil && ch.Type == discordgo.ChannelTypeGuildText
}
