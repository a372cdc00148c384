// Package bot dispatches chat commands to the admin operations.
package bot

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"motive-discord-bot/internal/admin"
	"motive-discord-bot/internal/game"
	"motive-discord-bot/internal/guild"
	"motive-discord-bot/internal/locale"
	"motive-discord-bot/internal/logging"
)

// Admin is the set of operations the commands trigger.
type Admin interface {
	Wipe(ctx context.Context, req admin.Request, channelIDs []string) error
	ResetPermissions(ctx context.Context, req admin.Request) error
	ResetRoles(ctx context.Context, req admin.Request) error
	FullReset(ctx context.Context, req admin.Request) error
	ShowAll(ctx context.Context, req admin.Request) error
}

// AdminChecker decides who may run admin commands.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID, channelID string) (bool, error)
}

// Bot routes prefixed messages to commands and tracks guild sessions.
type Bot struct {
	ctx      context.Context
	admin    Admin
	checker  AdminChecker
	messages guild.MessagingService
	registry *game.Registry
	text     *locale.Table
	prefix   string
	logger   *slog.Logger
}

// Config wires a Bot.
type Config struct {
	Admin    Admin
	Checker  AdminChecker
	Messages guild.MessagingService
	Registry *game.Registry
	Text     *locale.Table
	Prefix   string
	Logger   *slog.Logger
}

// New creates a Bot. ctx bounds every command it runs.
func New(ctx context.Context, cfg Config) *Bot {
	return &Bot{
		ctx:      ctx,
		admin:    cfg.Admin,
		checker:  cfg.Checker,
		messages: cfg.Messages,
		registry: cfg.Registry,
		text:     cfg.Text,
		prefix:   cfg.Prefix,
		logger:   logging.Component(cfg.Logger, "bot"),
	}
}

// Register adds the bot's handlers to a session.
func (b *Bot) Register(s *discordgo.Session) {
	s.AddHandler(b.onMessageCreate)
	s.AddHandler(b.onGuildCreate)
	s.AddHandler(b.onGuildDelete)
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	b.Handle(b.ctx, m.Message)
}

func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	b.registry.Get(g.ID)
	b.logger.Info("joined guild", "guild_id", g.ID, "guild", g.Name)
}

func (b *Bot) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	// An outage also sends GuildDelete, flagged unavailable; keep state then.
	if g.Unavailable {
		return
	}
	b.registry.Evict(g.ID)
	b.logger.Info("left guild", "guild_id", g.ID)
}

// Handle runs the command in m, if any.
func (b *Bot) Handle(ctx context.Context, m *discordgo.Message) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	content := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(content, b.prefix) {
		return
	}
	args := strings.Fields(strings.TrimPrefix(content, b.prefix))
	if len(args) == 0 {
		return
	}
	cmd := strings.ToLower(args[0])

	if cmd == "help" {
		b.reply(ctx, m.ChannelID, b.text.Text(locale.HelpText, b.prefix))
		return
	}

	run, ok := b.command(cmd, args[1:])
	if !ok {
		b.reply(ctx, m.ChannelID, b.text.Text(locale.CommandUnknown, b.prefix))
		return
	}

	allowed, err := b.checker.IsAdmin(ctx, m.Author.ID, m.ChannelID)
	if err != nil {
		b.logger.Warn("admin check failed", "user_id", m.Author.ID, "error", err)
	}
	if !allowed {
		b.reply(ctx, m.ChannelID, b.text.Text(locale.CommandAdminOnly))
		return
	}

	req := admin.Request{GuildID: m.GuildID, ChannelID: m.ChannelID, UserID: m.Author.ID}
	if err := run(ctx, req); err != nil {
		b.reply(ctx, m.ChannelID, b.text.Text(locale.CommandFailed, cmd, err))
	}
}

func (b *Bot) command(name string, args []string) (func(context.Context, admin.Request) error, bool) {
	switch name {
	case admin.OpWipe:
		ids := channelMentions(args)
		return func(ctx context.Context, req admin.Request) error {
			if err := b.admin.Wipe(ctx, req, ids); err != nil {
				return err
			}
			// A full wipe also clears the requester channel; only confirm targeted ones.
			if len(ids) > 0 {
				b.reply(ctx, req.ChannelID, b.text.Text(locale.WipeDone, len(ids)))
			}
			return nil
		}, true
	case admin.OpResetPermissions:
		return func(ctx context.Context, req admin.Request) error {
			b.reply(ctx, req.ChannelID, b.text.Text(locale.ResetPermsResetting))
			return b.admin.ResetPermissions(ctx, req)
		}, true
	case admin.OpResetRoles:
		return b.admin.ResetRoles, true
	case admin.OpFullReset:
		return b.admin.FullReset, true
	case admin.OpShowAll:
		return func(ctx context.Context, req admin.Request) error {
			b.reply(ctx, req.ChannelID, b.text.Text(locale.ShowAllShowing))
			return b.admin.ShowAll(ctx, req)
		}, true
	}
	return nil, false
}

func (b *Bot) reply(ctx context.Context, channelID, text string) {
	if err := b.messages.SendText(ctx, channelID, text); err != nil {
		b.logger.Warn("failed to reply", "channel_id", channelID, "error", err)
	}
}

// channelMentions extracts distinct channel ids from <#id> arguments.
func channelMentions(args []string) []string {
	var ids []string
	for _, a := range args {
		if !strings.HasPrefix(a, "<#") || !strings.HasSuffix(a, ">") {
			continue
		}
		if id := a[2 : len(a)-1]; id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}
