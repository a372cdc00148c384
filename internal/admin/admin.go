// Package admin implements the bulk reset operations server admins run
// between games.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"motive-discord-bot/internal/game"
	"motive-discord-bot/internal/gamedata"
	"motive-discord-bot/internal/guild"
	"motive-discord-bot/internal/locale"
	"motive-discord-bot/internal/logging"
	"motive-discord-bot/internal/metrics"
	"motive-discord-bot/internal/permissions"
	"motive-discord-bot/internal/tasks"
)

// Operation names, used in logs and metrics.
const (
	OpWipe             = "wipe"
	OpResetPermissions = "reset_perms"
	OpResetRoles       = "reset_roles"
	OpFullReset        = "reset"
	OpShowAll          = "show_all"
)

// Request identifies who asked for an operation and where to answer.
type Request struct {
	GuildID   string
	ChannelID string
	UserID    string
}

// Options tunes a Service.
type Options struct {
	MaxInFlight int
	CallTimeout time.Duration
	Logger      *slog.Logger
	Recorder    metrics.Recorder
}

// Service runs admin operations against one platform connection.
type Service struct {
	services   guild.Services
	registry   *game.Registry
	reconciler *permissions.Reconciler
	text       *locale.Table

	limit    int
	timeout  time.Duration
	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewService wires a Service.
func NewService(services guild.Services, registry *game.Registry, reconciler *permissions.Reconciler, text *locale.Table, opts Options) *Service {
	return &Service{
		services:   services,
		registry:   registry,
		reconciler: reconciler,
		text:       text,
		limit:      opts.MaxInFlight,
		timeout:    opts.CallTimeout,
		logger:     logging.Component(opts.Logger, "admin"),
		recorder:   metrics.OrNop(opts.Recorder),
	}
}

// Wipe resets the guild's game state and deletes every message in the given
// channels, or in every text channel when channelIDs is empty. The state is
// reset first, so a failed listing or purge never leaves stale game data.
// Given ids that are not text channels of the guild are skipped and
// reported as ErrForeignChannel.
func (s *Service) Wipe(ctx context.Context, req Request, channelIDs []string) error {
	return s.run(ctx, OpWipe, req, func(ctx context.Context, log *slog.Logger) error {
		s.notify(ctx, log, req.ChannelID, s.text.Text(locale.WipeDeletingMessages))

		s.registry.Get(req.GuildID).Reset()
		log.Info("game state reset")

		targets, rejected := s.wipeTargets(ctx, req.GuildID, channelIDs)
		if rejected != nil {
			if len(channelIDs) == 0 {
				return rejected
			}
			log.Warn("skipping channels", "error", rejected)
		}

		// Purges page through whole histories, so no per-call timeout.
		g := tasks.NewGroup(ctx, s.limit, 0)
		for _, id := range targets {
			g.Go(func(ctx context.Context) error {
				err := s.services.Messaging.PurgeAll(ctx, id)
				s.recorder.RecordPurge(err)
				if err != nil {
					return fmt.Errorf("%w: channel %s: %w", guild.ErrPurgeFailed, id, err)
				}
				return nil
			})
		}

		log.Info("purging channels", "channels", len(targets))

		return errors.Join(rejected, g.Wait())
	})
}

// wipeTargets resolves the channels to purge: every text channel of the
// guild when ids is empty, otherwise those of ids that are text channels of
// the guild. Rejected ids are returned as joined ErrForeignChannel errors.
func (s *Service) wipeTargets(ctx context.Context, guildID string, ids []string) ([]string, error) {
	dir := s.services.Directory
	if len(ids) == 0 {
		var chans []*discordgo.Channel
		err := s.call(ctx, func(ctx context.Context) (err error) {
			chans, err = dir.TextChannels(ctx, guildID)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list channels: %w", err)
		}
		targets := make([]string, 0, len(chans))
		for _, ch := range chans {
			targets = append(targets, ch.ID)
		}
		return targets, nil
	}

	var (
		targets []string
		errs    []error
		seen    = map[string]bool{}
	)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		var ch *discordgo.Channel
		err := s.call(ctx, func(ctx context.Context) (err error) {
			ch, err = dir.Channel(ctx, id)
			return err
		})
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%w: channel %s: %w", guild.ErrForeignChannel, id, err))
		case ch.GuildID != guildID || !guild.IsTextChannel(ch):
			errs = append(errs, fmt.Errorf("%w: channel %s", guild.ErrForeignChannel, id))
		default:
			targets = append(targets, id)
		}
	}
	return targets, errors.Join(errs...)
}

// ResetPermissions restores the default overwrites on every managed channel.
func (s *Service) ResetPermissions(ctx context.Context, req Request) error {
	return s.run(ctx, OpResetPermissions, req, func(ctx context.Context, _ *slog.Logger) error {
		return s.reconciler.Reset(ctx, req.GuildID)
	})
}

// ShowAll makes every categorised text channel mirror its category.
func (s *Service) ShowAll(ctx context.Context, req Request) error {
	return s.run(ctx, OpShowAll, req, func(ctx context.Context, _ *slog.Logger) error {
		return s.reconciler.MirrorCategories(ctx, req.GuildID)
	})
}

// ResetRoles strips character roles from every human member and clears the
// nicknames of those who had one. The owner's nickname cannot be edited by
// a bot, so the requester is told once instead.
func (s *Service) ResetRoles(ctx context.Context, req Request) error {
	return s.run(ctx, OpResetRoles, req, func(ctx context.Context, log *slog.Logger) error {
		dir := s.services.Directory
		g, err := dir.Guild(ctx, req.GuildID)
		if err != nil {
			return fmt.Errorf("load guild: %w", err)
		}
		roles, err := dir.Roles(ctx, req.GuildID)
		if err != nil {
			return fmt.Errorf("list roles: %w", err)
		}
		members, err := dir.Members(ctx, req.GuildID)
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}

		character := map[string]bool{}
		for _, r := range roles {
			if gamedata.IsCharacter(r.Name) {
				character[r.ID] = true
			}
		}

		var errs []error
		ownerNoticeSent := false
		for _, m := range members {
			if m.User == nil || m.User.Bot {
				continue
			}
			held := make([]string, 0, len(m.Roles))
			for _, id := range m.Roles {
				if character[id] {
					held = append(held, id)
				}
			}

			removed := false
			for _, roleID := range held {
				err := s.call(ctx, func(ctx context.Context) error {
					return s.services.Membership.RemoveRole(ctx, req.GuildID, m.User.ID, roleID)
				})
				s.recorder.RecordRoleRemoval(err)
				if err != nil {
					errs = append(errs, fmt.Errorf("%w: remove role %s from %s: %w", guild.ErrRoleEditFailed, roleID, m.User.ID, err))
					continue
				}
				removed = true
			}
			if !removed {
				continue
			}

			if m.User.ID == g.OwnerID {
				if !ownerNoticeSent {
					s.notify(ctx, log, req.ChannelID, s.text.Text(locale.ResetRolesNoteAboutOwner))
					ownerNoticeSent = true
				}
				continue
			}
			err := s.call(ctx, func(ctx context.Context) error {
				return s.services.Membership.SetNickname(ctx, req.GuildID, m.User.ID, "")
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: clear nickname of %s: %w", guild.ErrRoleEditFailed, m.User.ID, err))
			}
		}
		return errors.Join(errs...)
	})
}

// FullReset runs Wipe, ResetPermissions and ResetRoles concurrently and
// waits for all three. Nothing is rolled back; every branch error is
// returned.
func (s *Service) FullReset(ctx context.Context, req Request) error {
	return s.run(ctx, OpFullReset, req, func(ctx context.Context, log *slog.Logger) error {
		s.notify(ctx, log, req.ChannelID, s.text.Text(locale.ResetResettingServer))

		branches := []func(context.Context) error{
			func(ctx context.Context) error { return s.Wipe(ctx, req, nil) },
			func(ctx context.Context) error { return s.ResetPermissions(ctx, req) },
			func(ctx context.Context) error { return s.ResetRoles(ctx, req) },
		}
		errs := make([]error, len(branches))
		g := tasks.NewGroup(ctx, 0, 0)
		for i, branch := range branches {
			g.Go(func(ctx context.Context) error {
				errs[i] = branch(ctx)
				return nil
			})
		}
		_ = g.Wait()
		return errors.Join(errs...)
	})
}

func (s *Service) run(ctx context.Context, op string, req Request, fn func(context.Context, *slog.Logger) error) error {
	log := s.logger.With(
		"op", op,
		"run_id", uuid.NewString(),
		"guild_id", req.GuildID,
	)
	if g, err := s.services.Directory.Guild(ctx, req.GuildID); err == nil {
		log = log.With("guild", g.Name)
	}

	log.Info("admin operation started", "user_id", req.UserID)
	start := time.Now()
	err := fn(ctx, log)
	elapsed := time.Since(start)
	s.recorder.RecordOperation(op, elapsed, err)

	if err != nil {
		log.Warn("admin operation finished with errors", "elapsed", elapsed, "error", err)
		return err
	}
	log.Info("admin operation finished", "elapsed", elapsed)
	return nil
}

// call runs one platform call under the per-call timeout.
func (s *Service) call(ctx context.Context, fn func(context.Context) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return fn(ctx)
}

// notify sends an acknowledgment. Failures are logged; the operation goes on.
func (s *Service) notify(ctx context.Context, log *slog.Logger, channelID, text string) {
	if channelID == "" {
		return
	}
	err := s.call(ctx, func(ctx context.Context) error {
		return s.services.Messaging.SendText(ctx, channelID, text)
	})
	if err != nil {
		log.Warn("failed to send notice", "channel_id", channelID, "error", err)
	}
}
