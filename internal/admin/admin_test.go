package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"

	"motive-discord-bot/internal/channels"
	"motive-discord-bot/internal/game"
	"motive-discord-bot/internal/guild"
	"motive-discord-bot/internal/guild/guildtest"
	"motive-discord-bot/internal/locale"
	"motive-discord-bot/internal/permissions"
)

type fixture struct {
	guild    *guildtest.Fake
	registry *game.Registry
	text     *locale.Table
	svc      *Service
	req      Request
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := guildtest.New("g1", "owner")
	f.AddRole("Spectator")
	f.AddRole("Jack")
	f.AddRole("Evan")
	f.AddTextChannel("bot-commands")
	f.AddTextChannel("evan-clues")
	f.AddTextChannel("group-chat")

	text, err := locale.Load("en")
	require.NoError(t, err)
	rec, err := permissions.NewReconciler(channels.FromLocale(text), f, f, permissions.Options{})
	require.NoError(t, err)

	registry := game.NewRegistry()
	return &fixture{
		guild:    f,
		registry: registry,
		text:     text,
		svc:      NewService(f.Services(), registry, rec, text, Options{MaxInFlight: 2}),
		req:      Request{GuildID: "g1", ChannelID: "ch-bot-commands", UserID: "admin"},
	}
}

func (fx *fixture) sentTexts() []string {
	var out []string
	for _, m := range fx.guild.Sent {
		out = append(out, m.Text)
	}
	return out
}

func TestWipePurgesAllTextChannelsAndResetsState(t *testing.T) {
	fx := newFixture(t)
	state := fx.registry.Get("g1")
	state.SetStarted(true)
	state.SetSetup(true)

	require.NoError(t, fx.svc.Wipe(context.Background(), fx.req, nil))

	require.ElementsMatch(t, []string{"ch-bot-commands", "ch-evan-clues", "ch-group-chat"}, fx.guild.Purged)
	require.False(t, state.Started())
	require.False(t, state.Setup())
	require.Equal(t, []string{fx.text.Text(locale.WipeDeletingMessages)}, fx.sentTexts())
	require.Equal(t, "ch-bot-commands", fx.guild.Sent[0].ChannelID)
}

func TestWipeSelectedChannels(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.svc.Wipe(context.Background(), fx.req, []string{"ch-group-chat"}))
	require.Equal(t, []string{"ch-group-chat"}, fx.guild.Purged)
}

func TestWipeResetsStateEvenWhenPurgeFails(t *testing.T) {
	fx := newFixture(t)
	boom := errors.New("missing access")
	fx.guild.FailPurge["ch-evan-clues"] = boom
	state := fx.registry.Get("g1")
	state.SetAutomatic(true)

	err := fx.svc.Wipe(context.Background(), fx.req, nil)
	require.ErrorIs(t, err, guild.ErrPurgeFailed)
	require.ErrorIs(t, err, boom)
	require.False(t, state.Automatic())
	require.Len(t, fx.guild.Purged, 2)
}

func TestWipeRejectsChannelsOutsideTheGuild(t *testing.T) {
	fx := newFixture(t)
	fx.guild.AddForeignChannel("ch-in-another-guild", "g2")
	fx.guild.AddChannel("lobby", discordgo.ChannelTypeGuildVoice, "")

	err := fx.svc.Wipe(context.Background(), fx.req, []string{
		"ch-in-another-guild", "ch-lobby", "ch-missing", "ch-group-chat", "ch-group-chat",
	})
	require.ErrorIs(t, err, guild.ErrForeignChannel)
	require.ErrorContains(t, err, "ch-in-another-guild")
	require.ErrorContains(t, err, "ch-lobby")
	require.ErrorContains(t, err, "ch-missing")
	require.NotErrorIs(t, err, guild.ErrPurgeFailed)
	require.Equal(t, []string{"ch-group-chat"}, fx.guild.Purged)
}

func TestWipeAllSkipsOtherGuilds(t *testing.T) {
	fx := newFixture(t)
	fx.guild.AddForeignChannel("ch-in-another-guild", "g2")

	require.NoError(t, fx.svc.Wipe(context.Background(), fx.req, nil))
	require.NotContains(t, fx.guild.Purged, "ch-in-another-guild")
}

type failingListing struct {
	guild.Directory
	err error
}

func (d failingListing) TextChannels(context.Context, string) ([]*discordgo.Channel, error) {
	return nil, d.err
}

func TestWipeResetsStateWhenListingFails(t *testing.T) {
	fx := newFixture(t)
	hiccup := errors.New("gateway hiccup")
	services := fx.guild.Services()
	services.Directory = failingListing{Directory: fx.guild, err: hiccup}
	svc := NewService(services, fx.registry, nil, fx.text, Options{})

	state := fx.registry.Get("g1")
	state.SetStarted(true)
	state.SetShowTimer(true)

	err := svc.Wipe(context.Background(), fx.req, nil)
	require.ErrorIs(t, err, hiccup)
	require.False(t, state.Started())
	require.False(t, state.ShowTimer())
	require.Empty(t, fx.guild.Purged)
}

func TestResetPermissions(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.svc.ResetPermissions(context.Background(), fx.req))

	ow := fx.guild.Overwrite("ch-evan-clues", "role-evan")
	require.NotNil(t, ow)
	require.NotNil(t, fx.guild.Overwrite("ch-group-chat", "role-jack"))
	require.Nil(t, fx.guild.Overwrite("ch-bot-commands", "g1"))
}

func TestResetRolesClearsNicknames(t *testing.T) {
	fx := newFixture(t)
	fx.guild.AddMember("p1", false, "Jack", "Spectator")
	fx.guild.AddMember("p2", false, "Spectator")
	fx.guild.AddMember("bot", true, "Evan")

	require.NoError(t, fx.svc.ResetRoles(context.Background(), fx.req))

	require.Equal(t, []guildtest.RoleRemoval{{UserID: "p1", RoleID: "role-jack"}}, fx.guild.Removals)
	require.Equal(t, []string{"role-spectator"}, fx.guild.Member("p1").Roles)
	require.Equal(t, map[string]string{"p1": ""}, fx.guild.NickEdits)
	require.Equal(t, []string{"role-evan"}, fx.guild.Member("bot").Roles)
	require.Empty(t, fx.guild.Sent)
}

func TestResetRolesRemovesBeforeNickname(t *testing.T) {
	fx := newFixture(t)
	fx.guild.AddMember("p1", false, "Jack", "Evan")

	require.NoError(t, fx.svc.ResetRoles(context.Background(), fx.req))
	require.Equal(t, []string{"remove:p1:role-jack", "remove:p1:role-evan", "nick:p1"}, fx.guild.Events)
}

func TestResetRolesOwnerGetsNoticeOnce(t *testing.T) {
	fx := newFixture(t)
	fx.guild.AddMember("owner", false, "Jack")

	require.NoError(t, fx.svc.ResetRoles(context.Background(), fx.req))

	require.Equal(t, []guildtest.RoleRemoval{{UserID: "owner", RoleID: "role-jack"}}, fx.guild.Removals)
	require.Empty(t, fx.guild.NickEdits)
	require.Equal(t, "nick-owner", fx.guild.Member("owner").Nick)
	require.Equal(t, []string{fx.text.Text(locale.ResetRolesNoteAboutOwner)}, fx.sentTexts())
}

func TestResetRolesOwnerWithoutCharacterRole(t *testing.T) {
	fx := newFixture(t)
	fx.guild.AddMember("owner", false, "Spectator")

	require.NoError(t, fx.svc.ResetRoles(context.Background(), fx.req))
	require.Empty(t, fx.guild.Sent)
}

func TestResetRolesContinuesAfterFailure(t *testing.T) {
	fx := newFixture(t)
	boom := errors.New("hierarchy")
	fx.guild.AddMember("p1", false, "Jack")
	fx.guild.AddMember("p2", false, "Evan")
	fx.guild.FailRole["p1"] = boom

	err := fx.svc.ResetRoles(context.Background(), fx.req)
	require.ErrorIs(t, err, guild.ErrRoleEditFailed)
	require.ErrorIs(t, err, boom)
	require.Equal(t, []guildtest.RoleRemoval{{UserID: "p2", RoleID: "role-evan"}}, fx.guild.Removals)
	require.Equal(t, map[string]string{"p2": ""}, fx.guild.NickEdits)
}

func TestFullReset(t *testing.T) {
	fx := newFixture(t)
	fx.guild.AddMember("owner", false, "Evan")
	fx.guild.AddMember("p1", false, "Jack")
	state := fx.registry.Get("g1")
	state.SetShowTimer(true)

	require.NoError(t, fx.svc.FullReset(context.Background(), fx.req))

	require.Len(t, fx.guild.Purged, 3)
	require.False(t, state.ShowTimer())
	require.NotNil(t, fx.guild.Overwrite("ch-evan-clues", "g1"))
	require.Len(t, fx.guild.Removals, 2)
	require.Equal(t, fx.text.Text(locale.ResetResettingServer), fx.sentTexts()[0])
	require.ElementsMatch(t, []string{
		fx.text.Text(locale.ResetResettingServer),
		fx.text.Text(locale.WipeDeletingMessages),
		fx.text.Text(locale.ResetRolesNoteAboutOwner),
	}, fx.sentTexts())
}

func TestFullResetJoinsBranchErrors(t *testing.T) {
	fx := newFixture(t)
	purgeErr := errors.New("purge down")
	permErr := errors.New("perm down")
	fx.guild.FailPurge["ch-group-chat"] = purgeErr
	fx.guild.FailPermission["ch-evan-clues"] = permErr
	fx.guild.AddMember("p1", false, "Jack")

	err := fx.svc.FullReset(context.Background(), fx.req)
	require.ErrorIs(t, err, guild.ErrPurgeFailed)
	require.ErrorIs(t, err, guild.ErrPermissionEditFailed)
	require.ErrorIs(t, err, purgeErr)
	require.ErrorIs(t, err, permErr)

	// the role branch still ran to completion
	require.Len(t, fx.guild.Removals, 1)
}

func TestShowAll(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.svc.ShowAll(context.Background(), fx.req))
}
