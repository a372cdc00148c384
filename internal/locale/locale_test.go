package locale

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestLoadEmbedded(t *testing.T) {
	table, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "en", table.Tag.String())
	require.Equal(t, "Spectator", table.Roles.Spectator)

	for _, key := range []string{
		WipeDeletingMessages, WipeDone, ResetResettingServer, ResetPermsResetting,
		ResetRolesNoteAboutOwner, ShowAllShowing, CommandAdminOnly, CommandFailed,
		CommandUnknown, HelpText,
	} {
		require.True(t, table.Has(key), key)
	}
}

func TestEmbeddedChannels(t *testing.T) {
	table, err := Load("en")
	require.NoError(t, err)

	require.Len(t, table.Channels.Clues, 5)
	require.Equal(t, "evan-clues", table.Channels.Clues["evan"])
	require.Equal(t, "group-chat", table.Channels.Texts[GroupChatKey])
	// group chat plus one channel per pair of characters
	require.Len(t, table.Channels.Texts, 11)
	require.Equal(t, "voicemails", table.Channels.Voicemails)
}

func TestText(t *testing.T) {
	table, err := Load("en")
	require.NoError(t, err)

	require.Equal(t, "Wiped messages from 3 channels.", table.Text(WipeDone, 3))
	require.Contains(t, table.Text(HelpText, "!"), "`!reset_roles`")
	require.Contains(t, table.Text(CommandUnknown, "!"), "`!help`")
}

func TestLoadFromFSErrors(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/fr.yaml": {Data: []byte("locale: fr\nmessages: {}\n")},
		"locales/es.yaml": {Data: []byte("messages: [unclosed\n")},
		"locales/it.yaml": {Data: []byte("locale: it\nmessages:\n  hello: \"ciao %s\"\n")},
	}

	_, err := LoadFromFS(fsys, "de")
	require.ErrorContains(t, err, "read locale")

	_, err = LoadFromFS(fsys, "fr")
	require.ErrorContains(t, err, "no messages")

	_, err = LoadFromFS(fsys, "es")
	require.ErrorContains(t, err, "parse locale locales/es.yaml")

	_, err = LoadFromFS(fsys, "not a tag!")
	require.ErrorContains(t, err, "parse locale")

	table, err := LoadFromFS(fsys, "it")
	require.NoError(t, err)
	require.Equal(t, "ciao Evan", table.Text("hello", "Evan"))
	require.Equal(t, []string{"hello"}, table.Keys())
}
