// Package channels classifies guild channels by name.
package channels

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"motive-discord-bot/internal/locale"
)

// DefaultSeparator splits player names inside a channel name.
const DefaultSeparator = "-"

// ErrOverlappingNames is returned when a channel name appears in more than
// one class.
var ErrOverlappingNames = errors.New("channel name configured in more than one class")

// Class is the category of a channel.
type Class int

const (
	Unmanaged Class = iota
	Clue
	Shared
	PrivatePair
)

func (c Class) String() string {
	switch c {
	case Unmanaged:
		return "unmanaged"
	case Clue:
		return "clue"
	case Shared:
		return "shared"
	case PrivatePair:
		return "private"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Config lists the managed channel names per class.
type Config struct {
	Clue          []string `yaml:"clue"`
	Shared        []string `yaml:"shared"`
	PrivatePair   []string `yaml:"private_pair"`
	Separator     string   `yaml:"separator"`
	SpectatorRole string   `yaml:"spectator_role"`
}

// FromLocale builds the config from a locale's channel table. The group chat
// and voicemail channels are shared; the remaining texts are private pairs.
func FromLocale(t *locale.Table) Config {
	cfg := Config{
		Separator:     DefaultSeparator,
		SpectatorRole: t.Roles.Spectator,
	}
	for _, name := range t.Channels.Clues {
		cfg.Clue = append(cfg.Clue, name)
	}
	groupChat := t.Channels.Texts[locale.GroupChatKey]
	cfg.Shared = append(cfg.Shared, groupChat, t.Channels.Voicemails)
	for _, name := range t.Channels.Texts {
		if name != groupChat {
			cfg.PrivatePair = append(cfg.PrivatePair, name)
		}
	}
	sort.Strings(cfg.Clue)
	sort.Strings(cfg.PrivatePair)
	return cfg
}

// LoadFile reads a yaml config from path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read channel config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse channel config %s: %w", path, err)
	}
	if cfg.Separator == "" {
		cfg.Separator = DefaultSeparator
	}
	return cfg, nil
}

// Validate checks that no name belongs to two classes.
func (c Config) Validate() error {
	owner := map[string]Class{}
	var errs []error
	for _, set := range []struct {
		class Class
		names []string
	}{{Clue, c.Clue}, {Shared, c.Shared}, {PrivatePair, c.PrivatePair}} {
		for _, name := range set.names {
			if prev, ok := owner[name]; ok && prev != set.class {
				errs = append(errs, fmt.Errorf("%w: %q is %s and %s", ErrOverlappingNames, name, prev, set.class))
				continue
			}
			owner[name] = set.class
		}
	}
	if c.Separator == "" {
		errs = append(errs, errors.New("channel separator is empty"))
	}
	return errors.Join(errs...)
}

// Classifier maps channel names to classes.
type Classifier struct {
	classes   map[string]Class
	separator string
}

// NewClassifier validates cfg and builds a classifier from it.
func NewClassifier(cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Classifier{
		classes:   map[string]Class{},
		separator: cfg.Separator,
	}
	for _, name := range cfg.Clue {
		c.classes[name] = Clue
	}
	for _, name := range cfg.Shared {
		c.classes[name] = Shared
	}
	for _, name := range cfg.PrivatePair {
		c.classes[name] = PrivatePair
	}
	return c, nil
}

// Classify returns the class of a channel name. Unknown names are Unmanaged.
func (c *Classifier) Classify(name string) Class {
	return c.classes[name]
}

// Owner returns the title-cased player name a clue channel belongs to:
// "evan-clues" gives "Evan".
func (c *Classifier) Owner(name string) string {
	first, _, _ := strings.Cut(name, c.separator)
	return title(first)
}

// Pair returns the two title-cased player names of a private channel.
func (c *Classifier) Pair(name string) (string, string, bool) {
	parts := strings.Split(name, c.separator)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return title(parts[0]), title(parts[1]), true
}

// title is built per call; a cases.Caser must not be shared between goroutines.
func title(s string) string {
	return cases.Title(language.Und).String(s)
}

// Entry is one configured channel name and its class.
type Entry struct {
	Name  string
	Class Class
}

// Entries returns every configured name sorted by class, then name.
func (c *Classifier) Entries() []Entry {
	out := make([]Entry, 0, len(c.classes))
	for name, class := range c.classes {
		out = append(out, Entry{Name: name, Class: class})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return out[i].Class < out[j].Class
		}
		return out[i].Name < out[j].Name
	})
	return out
}
