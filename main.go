package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"motive-discord-bot/internal/admin"
	"motive-discord-bot/internal/bot"
	"motive-discord-bot/internal/channels"
	"motive-discord-bot/internal/config"
	"motive-discord-bot/internal/discord"
	"motive-discord-bot/internal/game"
	"motive-discord-bot/internal/locale"
	"motive-discord-bot/internal/logging"
	"motive-discord-bot/internal/metrics"
	"motive-discord-bot/internal/permissions"
)

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "motive-bot",
		Short:         "Discord admin bot for Motive murder-mystery servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
	}
	root.AddCommand(newServeCommand(), newChannelsCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and handle commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	text, err := locale.Load(cfg.Locale)
	if err != nil {
		return err
	}
	scheme, err := channelScheme(cfg, text)
	if err != nil {
		return err
	}

	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	dg.Identify.Intents = intents

	recorder, err := metrics.NewPrometheus("", prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	client := discord.NewClient(dg)
	registry := game.NewRegistry()
	reconciler, err := permissions.NewReconciler(scheme, client, client, permissions.Options{
		MaxInFlight: cfg.MaxInFlight,
		CallTimeout: cfg.CallTimeout,
		Logger:      logger,
		Recorder:    recorder,
	})
	if err != nil {
		return err
	}
	service := admin.NewService(client.Services(), registry, reconciler, text, admin.Options{
		MaxInFlight: cfg.MaxInFlight,
		CallTimeout: cfg.CallTimeout,
		Logger:      logger,
		Recorder:    recorder,
	})
	b := bot.New(ctx, bot.Config{
		Admin:    service,
		Checker:  client,
		Messages: client,
		Registry: registry,
		Text:     text,
		Prefix:   cfg.Prefix,
		Logger:   logger,
	})
	b.Register(dg)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer dg.Close()

	logger.Info("bot is running", "prefix", cfg.Prefix, "locale", text.Tag.String())
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func newChannelsCommand() *cobra.Command {
	var localeName, file string
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Print how channel names are classified",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := locale.Load(localeName)
			if err != nil {
				return err
			}
			scheme, err := channelScheme(config.Config{ChannelsFile: file}, text)
			if err != nil {
				return err
			}
			classifier, err := channels.NewClassifier(scheme)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range classifier.Entries() {
				fmt.Fprintf(out, "%-10s %s\n", e.Class, e.Name)
			}
			fmt.Fprintf(out, "spectator role: %s\n", scheme.SpectatorRole)
			return nil
		},
	}
	cmd.Flags().StringVar(&localeName, "locale", locale.DefaultLocale, "message and channel locale")
	cmd.Flags().StringVar(&file, "file", "", "channel scheme YAML file, overrides the locale's names")
	return cmd
}

// channelScheme loads the file named in cfg, or derives the scheme from the
// locale when none is set.
func channelScheme(cfg config.Config, text *locale.Table) (channels.Config, error) {
	if cfg.ChannelsFile == "" {
		return channels.FromLocale(text), nil
	}
	scheme, err := channels.LoadFile(cfg.ChannelsFile)
	if err != nil {
		return channels.Config{}, err
	}
	if scheme.SpectatorRole == "" {
		scheme.SpectatorRole = text.Roles.Spectator
	}
	return scheme, nil
}
