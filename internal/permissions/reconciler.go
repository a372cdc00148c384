package permissions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"motive-discord-bot/internal/channels"
	"motive-discord-bot/internal/guild"
	"motive-discord-bot/internal/logging"
	"motive-discord-bot/internal/metrics"
	"motive-discord-bot/internal/tasks"
)

// Options tunes a Reconciler.
type Options struct {
	MaxInFlight int
	CallTimeout time.Duration
	Logger      *slog.Logger
	Recorder    metrics.Recorder
}

// Reconciler plans and applies channel permission overwrites.
type Reconciler struct {
	planner       *Planner
	dir           guild.Directory
	perms         guild.PermissionService
	spectatorRole string

	limit    int
	timeout  time.Duration
	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewReconciler builds a reconciler for the channel scheme in cfg.
func NewReconciler(cfg channels.Config, dir guild.Directory, perms guild.PermissionService, opts Options) (*Reconciler, error) {
	classifier, err := channels.NewClassifier(cfg)
	if err != nil {
		return nil, err
	}
	return &Reconciler{
		planner:       NewPlanner(classifier),
		dir:           dir,
		perms:         perms,
		spectatorRole: cfg.SpectatorRole,
		limit:         opts.MaxInFlight,
		timeout:       opts.CallTimeout,
		logger:        logging.Component(opts.Logger, "permissions"),
		recorder:      metrics.OrNop(opts.Recorder),
	}, nil
}

// PlanGuild computes the plan for every text channel of the guild.
func (r *Reconciler) PlanGuild(ctx context.Context, guildID string) ([]Plan, error) {
	roles, err := r.dir.Roles(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	chans, err := r.dir.TextChannels(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	roster := NewRoster(guildID, roles, r.spectatorRole)
	plans := make([]Plan, 0, len(chans))
	for _, ch := range chans {
		plan := r.planner.Plan(ch, roster)
		for _, name := range plan.Missing {
			r.logger.Debug("skipping missing role",
				"channel", ch.Name, "role", name, "reason", guild.ErrRoleNotFound)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// Reset converges every text channel of the guild. All edits run
// concurrently; failures are joined and edits already made stay in place.
func (r *Reconciler) Reset(ctx context.Context, guildID string) error {
	plans, err := r.PlanGuild(ctx, guildID)
	if err != nil {
		return err
	}
	var edits []Edit
	for _, p := range plans {
		edits = append(edits, p.Edits...)
	}
	r.logger.Info("resetting permissions", "guild_id", guildID, "channels", len(plans), "edits", len(edits))
	return r.Apply(ctx, edits)
}

// Apply issues every edit as an independent task.
func (r *Reconciler) Apply(ctx context.Context, edits []Edit) error {
	g := tasks.NewGroup(ctx, r.limit, r.timeout)
	for _, e := range edits {
		g.Go(func(ctx context.Context) error {
			err := r.perms.SetChannelPermission(ctx, e.ChannelID, e.RoleID, e.Permission)
			r.recorder.RecordPermissionEdit(e.Class.String(), err)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", guild.ErrPermissionEditFailed, e, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// MirrorCategories copies each text channel's category overwrites onto it.
// Channels without a category are left alone.
func (r *Reconciler) MirrorCategories(ctx context.Context, guildID string) error {
	chans, err := r.dir.TextChannels(ctx, guildID)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}

	parents := map[string]*discordgo.Channel{}
	g := tasks.NewGroup(ctx, r.limit, r.timeout)
	for _, ch := range chans {
		if ch.ParentID == "" {
			continue
		}
		parent, ok := parents[ch.ParentID]
		if !ok {
			var loadErr error
			parent, loadErr = r.dir.Channel(ctx, ch.ParentID)
			if loadErr != nil {
				g.Go(func(context.Context) error {
					return fmt.Errorf("%w: #%s: load category: %w", guild.ErrPermissionEditFailed, ch.Name, loadErr)
				})
				continue
			}
			parents[ch.ParentID] = parent
		}
		g.Go(func(ctx context.Context) error {
			err := r.perms.CopyPermissions(ctx, parent, ch)
			r.recorder.RecordPermissionEdit("mirror", err)
			if err != nil {
				return fmt.Errorf("%w: #%s from #%s: %w", guild.ErrPermissionEditFailed, ch.Name, parent.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
