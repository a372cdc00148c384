// Package discord implements the guild services on a discordgo session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"

	"motive-discord-bot/internal/guild"
)

const (
	membersPageSize  = 1000
	messagesPageSize = 100

	// Discord refuses to bulk delete messages older than two weeks.
	bulkDeleteMaxAge = 14*24*time.Hour - time.Hour
)

// Client adapts a session to the guild service interfaces. Reads go to the
// session's state cache first and fall back to the REST API. Values taken
// from the cache are copied under the state lock, since gateway events
// rewrite cached structs in place.
type Client struct {
	s   *discordgo.Session
	now func() time.Time
}

var (
	_ guild.Directory         = (*Client)(nil)
	_ guild.PermissionService = (*Client)(nil)
	_ guild.MembershipService = (*Client)(nil)
	_ guild.MessagingService  = (*Client)(nil)
)

// NewClient wraps s.
func NewClient(s *discordgo.Session) *Client {
	return &Client{s: s, now: time.Now}
}

// Services returns c in every slot.
func (c *Client) Services() guild.Services {
	return guild.Services{Directory: c, Permissions: c, Membership: c, Messaging: c}
}

func (c *Client) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if g, err := c.s.State.Guild(guildID); err == nil {
		c.s.State.RLock()
		defer c.s.State.RUnlock()
		cp := *g
		return &cp, nil
	}
	g, err := c.s.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch guild %s: %w", guildID, err)
	}
	return g, nil
}

func (c *Client) Roles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	if g, err := c.s.State.Guild(guildID); err == nil {
		c.s.State.RLock()
		roles := make([]*discordgo.Role, len(g.Roles))
		for i, r := range g.Roles {
			cp := *r
			roles[i] = &cp
		}
		c.s.State.RUnlock()
		if len(roles) > 0 {
			return roles, nil
		}
	}
	roles, err := c.s.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch roles of %s: %w", guildID, err)
	}
	return roles, nil
}

func (c *Client) TextChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	var all []*discordgo.Channel
	if g, err := c.s.State.Guild(guildID); err == nil {
		c.s.State.RLock()
		for _, ch := range g.Channels {
			all = append(all, cloneChannel(ch))
		}
		c.s.State.RUnlock()
	}
	if len(all) == 0 {
		var err error
		all, err = c.s.GuildChannels(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("fetch channels of %s: %w", guildID, err)
		}
	}

	var text []*discordgo.Channel
	for _, ch := range all {
		if guild.IsTextChannel(ch) {
			text = append(text, ch)
		}
	}
	sort.SliceStable(text, func(i, j int) bool { return text[i].Position < text[j].Position })
	return text, nil
}

func (c *Client) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if ch, err := c.s.State.Channel(channelID); err == nil {
		c.s.State.RLock()
		defer c.s.State.RUnlock()
		return cloneChannel(ch), nil
	}
	ch, err := c.s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	return ch, nil
}

// Members pages through the member list. It needs the guild members intent.
func (c *Client) Members(ctx context.Context, guildID string) ([]*discordgo.Member, error) {
	var out []*discordgo.Member
	after := ""
	for {
		page, err := c.s.GuildMembers(guildID, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("fetch members of %s: %w", guildID, err)
		}
		out = append(out, page...)
		if len(page) < membersPageSize {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// SetChannelPermission merges p into the role's current overwrite so bits p
// leaves unset keep their value.
func (c *Client) SetChannelPermission(ctx context.Context, channelID, roleID string, p guild.Permission) error {
	ch, err := c.Channel(ctx, channelID)
	if err != nil {
		return err
	}
	var allow, deny int64
	for _, ow := range ch.PermissionOverwrites {
		if ow.ID == roleID {
			allow, deny = ow.Allow, ow.Deny
			break
		}
	}
	allow, deny = p.Merge(allow, deny)
	return c.s.ChannelPermissionSet(channelID, roleID, discordgo.PermissionOverwriteTypeRole, allow, deny, discordgo.WithContext(ctx))
}

// CopyPermissions replaces target's overwrites with source's.
func (c *Client) CopyPermissions(ctx context.Context, source, target *discordgo.Channel) error {
	if len(source.PermissionOverwrites) > 0 {
		_, err := c.s.ChannelEdit(target.ID, &discordgo.ChannelEdit{
			PermissionOverwrites: source.PermissionOverwrites,
		}, discordgo.WithContext(ctx))
		return err
	}
	// An empty overwrite list is dropped from the edit payload, so clear
	// the target one overwrite at a time.
	var errs []error
	for _, ow := range target.PermissionOverwrites {
		if err := c.s.ChannelPermissionDelete(target.ID, ow.ID, discordgo.WithContext(ctx)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	return c.s.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (c *Client) SetNickname(ctx context.Context, guildID, userID, nick string) error {
	return c.s.GuildMemberNickname(guildID, userID, nick, discordgo.WithContext(ctx))
}

func (c *Client) SendText(ctx context.Context, channelID, text string) error {
	_, err := c.s.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return err
}

// PurgeAll deletes every message in the channel, newest first. Recent
// messages go through bulk delete; older ones are deleted one by one.
func (c *Client) PurgeAll(ctx context.Context, channelID string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msgs, err := c.s.ChannelMessages(channelID, messagesPageSize, "", "", "", discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("fetch messages: %w", err)
		}
		if len(msgs) == 0 {
			return nil
		}

		ids := make([]string, len(msgs))
		for i, m := range msgs {
			ids[i] = m.ID
		}
		bulk, single := partitionByAge(ids, c.now())
		if err := c.s.ChannelMessagesBulkDelete(channelID, bulk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("bulk delete: %w", err)
		}
		for _, id := range single {
			if err := c.s.ChannelMessageDelete(channelID, id, discordgo.WithContext(ctx)); err != nil {
				return fmt.Errorf("delete message %s: %w", id, err)
			}
		}
	}
}

// cloneChannel copies ch and its overwrites. Cached messages are dropped.
func cloneChannel(ch *discordgo.Channel) *discordgo.Channel {
	cp := *ch
	cp.Messages = nil
	if ch.PermissionOverwrites != nil {
		cp.PermissionOverwrites = make([]*discordgo.PermissionOverwrite, len(ch.PermissionOverwrites))
		for i, ow := range ch.PermissionOverwrites {
			o := *ow
			cp.PermissionOverwrites[i] = &o
		}
	}
	return &cp
}

// partitionByAge splits message ids into those young enough for bulk delete
// and the rest. Ids that are not snowflakes are deleted one by one.
func partitionByAge(ids []string, now time.Time) (bulk, single []string) {
	for _, id := range ids {
		ts, err := discordgo.SnowflakeTimestamp(id)
		if err == nil && now.Sub(ts) < bulkDeleteMaxAge {
			bulk = append(bulk, id)
			continue
		}
		single = append(single, id)
	}
	return bulk, single
}

// IsAdmin reports whether the user has the Administrator permission in the
// channel. The guild owner always has it.
func (c *Client) IsAdmin(ctx context.Context, userID, channelID string) (bool, error) {
	perms, err := c.s.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("resolve permissions of %s: %w", userID, err)
	}
	return perms&discordgo.PermissionAdministrator != 0, nil
}
