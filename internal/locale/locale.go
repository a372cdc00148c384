// Package locale loads the bot's localized string tables.
package locale

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "en"

// Message keys.
const (
	WipeDeletingMessages     = "wipe.deleting_messages"
	WipeDone                 = "wipe.done"
	ResetResettingServer     = "reset.resetting_server"
	ResetPermsResetting      = "reset_perms.resetting"
	ResetRolesNoteAboutOwner = "reset_roles.note_about_owner"
	ShowAllShowing           = "show_all.showing"
	CommandAdminOnly         = "command.admin_only"
	CommandFailed            = "command.failed"
	CommandUnknown           = "command.unknown"
	HelpText                 = "help.text"
)

// GroupChatKey is the texts entry every player may write to.
const GroupChatKey = "group-chat"

//go:embed locales/*.yaml
var embeddedFS embed.FS

// Channels holds the localized channel names.
type Channels struct {
	// Clues maps character id to that character's clue channel.
	Clues map[string]string `yaml:"clues"`
	// Texts holds the group chat and every private pair channel.
	Texts      map[string]string `yaml:"texts"`
	Voicemails string            `yaml:"voicemails"`
}

// Roles holds localized role names.
type Roles struct {
	Spectator string `yaml:"spectator"`
}

type file struct {
	Locale   string            `yaml:"locale"`
	Roles    Roles             `yaml:"roles"`
	Channels Channels          `yaml:"channels"`
	Messages map[string]string `yaml:"messages"`
}

// Table is one locale's strings.
type Table struct {
	Tag      language.Tag
	Roles    Roles
	Channels Channels

	keys    []string
	printer *message.Printer
}

// Load reads the embedded table for locale.
func Load(locale string) (*Table, error) {
	return LoadFromFS(embeddedFS, locale)
}

// LoadFromFS reads locales/<locale>.yaml from fsys.
func LoadFromFS(fsys fs.FS, locale string) (*Table, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}

	name := path.Join("locales", strings.ToLower(locale)+".yaml")
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read locale %s: %w", name, err)
	}
	var parsed file
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse locale %s: %w", name, err)
	}
	if len(parsed.Messages) == 0 {
		return nil, fmt.Errorf("locale %s has no messages", name)
	}

	builder := catalog.NewBuilder(catalog.Fallback(tag))
	keys := make([]string, 0, len(parsed.Messages))
	for key, msg := range parsed.Messages {
		if err := builder.SetString(tag, key, msg); err != nil {
			return nil, fmt.Errorf("register %s: %w", key, err)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return &Table{
		Tag:      tag,
		Roles:    parsed.Roles,
		Channels: parsed.Channels,
		keys:     keys,
		printer:  message.NewPrinter(tag, message.Catalog(builder)),
	}, nil
}

// Text formats the message registered under key.
func (t *Table) Text(key string, args ...any) string {
	return t.printer.Sprintf(key, args...)
}

// Has reports whether key is registered.
func (t *Table) Has(key string) bool {
	i := sort.SearchStrings(t.keys, key)
	return i < len(t.keys) && t.keys[i] == key
}

// Keys returns every registered message key, sorted.
func (t *Table) Keys() []string {
	return append([]string(nil), t.keys...)
}
