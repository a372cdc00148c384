package discord

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

const discordEpochMillis = 1420070400000

func snowflakeAt(t time.Time) string {
	ms := t.UnixMilli() - discordEpochMillis
	return strconv.FormatInt(ms<<22, 10)
}

func TestPartitionByAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := snowflakeAt(now.Add(-time.Hour))
	week := snowflakeAt(now.Add(-7 * 24 * time.Hour))
	old := snowflakeAt(now.Add(-30 * 24 * time.Hour))

	bulk, single := partitionByAge([]string{fresh, old, week, "not-a-snowflake"}, now)
	require.Equal(t, []string{fresh, week}, bulk)
	require.Equal(t, []string{old, "not-a-snowflake"}, single)
}

func TestPartitionByAgeEdge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	justInside := snowflakeAt(now.Add(-bulkDeleteMaxAge + time.Minute))
	justOutside := snowflakeAt(now.Add(-bulkDeleteMaxAge - time.Minute))

	bulk, single := partitionByAge([]string{justInside, justOutside}, now)
	require.Equal(t, []string{justInside}, bulk)
	require.Equal(t, []string{justOutside}, single)
}

func newCachedClient(t *testing.T) (*Client, *discordgo.State) {
	t.Helper()
	s, err := discordgo.New("Bot test")
	require.NoError(t, err)
	require.NoError(t, s.State.GuildAdd(&discordgo.Guild{
		ID:      "g1",
		Name:    "motive",
		OwnerID: "owner",
		Roles:   []*discordgo.Role{{ID: "g1", Name: "@everyone"}, {ID: "r-evan", Name: "Evan"}},
		Channels: []*discordgo.Channel{
			{ID: "c-group", GuildID: "g1", Name: "group-chat", Type: discordgo.ChannelTypeGuildText, Position: 2},
			{ID: "c-voice", GuildID: "g1", Name: "table", Type: discordgo.ChannelTypeGuildVoice, Position: 0},
			{
				ID: "c-clues", GuildID: "g1", Name: "evan-clues", Type: discordgo.ChannelTypeGuildText, Position: 1,
				PermissionOverwrites: []*discordgo.PermissionOverwrite{
					{ID: "r-evan", Type: discordgo.PermissionOverwriteTypeRole, Allow: discordgo.PermissionViewChannel},
				},
			},
		},
	}))
	return NewClient(s), s.State
}

func TestChannelCopiesCachedChannel(t *testing.T) {
	c, state := newCachedClient(t)

	ch, err := c.Channel(context.Background(), "c-clues")
	require.NoError(t, err)
	ch.PermissionOverwrites[0].Allow = 0

	cached, err := state.Channel("c-clues")
	require.NoError(t, err)
	require.Equal(t, int64(discordgo.PermissionViewChannel), cached.PermissionOverwrites[0].Allow)

	require.NoError(t, state.ChannelAdd(&discordgo.Channel{
		ID: "c-clues", GuildID: "g1", Name: "renamed", Type: discordgo.ChannelTypeGuildText,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{},
	}))
	require.Equal(t, "evan-clues", ch.Name)
	require.Len(t, ch.PermissionOverwrites, 1)
}

func TestChannelReadsDuringGatewayUpdates(t *testing.T) {
	c, state := newCachedClient(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 200 {
			_ = state.ChannelAdd(&discordgo.Channel{
				ID: "c-clues", GuildID: "g1", Name: "evan-clues", Type: discordgo.ChannelTypeGuildText,
				PermissionOverwrites: []*discordgo.PermissionOverwrite{
					{ID: "r-evan", Type: discordgo.PermissionOverwriteTypeRole, Allow: int64(i)},
				},
			})
		}
	}()
	for range 200 {
		ch, err := c.Channel(context.Background(), "c-clues")
		require.NoError(t, err)
		require.Len(t, ch.PermissionOverwrites, 1)
		require.Equal(t, "r-evan", ch.PermissionOverwrites[0].ID)
	}
	<-done
}

func TestTextChannelsFromState(t *testing.T) {
	c, state := newCachedClient(t)

	chans, err := c.TextChannels(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, chans, 2)
	require.Equal(t, "c-clues", chans[0].ID)
	require.Equal(t, "c-group", chans[1].ID)

	chans[0].Name = "changed"
	cached, err := state.Channel("c-clues")
	require.NoError(t, err)
	require.Equal(t, "evan-clues", cached.Name)
}

func TestGuildAndRolesFromState(t *testing.T) {
	c, state := newCachedClient(t)

	g, err := c.Guild(context.Background(), "g1")
	require.NoError(t, err)
	require.Equal(t, "owner", g.OwnerID)
	g.Name = "changed"

	roles, err := c.Roles(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, roles, 2)
	roles[1].Name = "changed"

	cached, err := state.Guild("g1")
	require.NoError(t, err)
	require.Equal(t, "motive", cached.Name)
	require.Equal(t, "Evan", cached.Roles[1].Name)
}
