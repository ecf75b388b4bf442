package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/sydlexius/trackyear/internal/analyzer"
	"github.com/sydlexius/trackyear/internal/config"
	"github.com/sydlexius/trackyear/internal/database"
	"github.com/sydlexius/trackyear/internal/logging"
	"github.com/sydlexius/trackyear/internal/maintenance"
	"github.com/sydlexius/trackyear/internal/notice"
	"github.com/sydlexius/trackyear/internal/provider"
	"github.com/sydlexius/trackyear/internal/provider/lastfm"
	"github.com/sydlexius/trackyear/internal/provider/musicbrainz"
	"github.com/sydlexius/trackyear/internal/provider/spotify"
	"github.com/sydlexius/trackyear/internal/review"
	"github.com/sydlexius/trackyear/internal/stats"
	"github.com/sydlexius/trackyear/internal/store"
)

func newRootCommand() *cobra.Command {
	var configFlag, envFlag string
	cc := &commandContext{configFlag: &configFlag, envFlag: &envFlag}

	rootCmd := &cobra.Command{
		Use:           "trackyear",
		Short:         "Reconcile playlist release years across music catalogs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&envFlag, "env-file", ".env", "Dotenv file with credentials")

	rootCmd.AddCommand(newAnalyzeCommand(cc))
	rootCmd.AddCommand(newServeCommand(cc))
	rootCmd.AddCommand(newRunsCommand(cc))
	rootCmd.AddCommand(newApproveCommand(cc))
	rootCmd.AddCommand(newExportCommand(cc))
	rootCmd.AddCommand(newStatsCommand(cc))
	rootCmd.AddCommand(newDBCommand(cc))

	return rootCmd
}

// commandContext loads configuration once per invocation.
type commandContext struct {
	configFlag *string
	envFlag    *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = c.loadConfig()
	})
	return c.config, c.configErr
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	var envFiles []string
	if env := strings.TrimSpace(*c.envFlag); env != "" {
		envFiles = append(envFiles, env)
	}
	cfg, err := config.Load(strings.TrimSpace(*c.configFlag), envFiles...)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// app holds the services shared by every command.
type app struct {
	cfg    *config.Config
	logs   *logging.Manager
	logger *slog.Logger
	db     *sql.DB
	runs   *review.Service
	stats  *stats.Service
	maint  *maintenance.Service
}

func (c *commandContext) open(ctx context.Context) (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logs, logger := logging.NewManager(cfg.Logging)
	slog.SetDefault(logger)

	db, err := database.Open(ctx, cfg.Database.Path)
	if err != nil {
		_ = logs.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		_ = logs.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Debug("database ready", slog.String("path", cfg.Database.Path))

	docs := store.New(db, logger)
	m := cfg.Maintenance
	return &app{
		cfg:    cfg,
		logs:   logs,
		logger: logger,
		db:     db,
		runs:   review.NewService(docs, logger),
		stats:  stats.NewService(docs, logger),
		maint:  maintenance.NewService(db, docs, cfg.Database.Path, m.BackupDir, m.BackupRetention, logger),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("closing database", slog.String("error", err.Error()))
	}
	_ = a.logs.Close()
}

// newRunner wires the catalog and every enabled year source.
func (a *app) newRunner(ctx context.Context) (*review.Runner, error) {
	cfg := a.cfg
	if !cfg.HasSpotifyCredentials() {
		a.logger.Warn("spotify credentials missing, set SPOTIFY_ID and SPOTIFY_SECRET")
	}
	limiter := provider.NewRateLimiterMap(map[provider.ProviderName]time.Duration{
		provider.NameSpotify:     cfg.Spotify.Interval,
		provider.NameMusicBrainz: cfg.MusicBrainz.Interval,
		provider.NameLastFM:      cfg.LastFM.Interval,
	})

	client, err := spotify.NewClient(ctx, spotify.Credentials{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		TokenURL:     cfg.Spotify.TokenURL,
		BaseURL:      cfg.Spotify.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	catalog := spotify.New(client, limiter, a.logger)

	reg := provider.NewRegistry()
	reg.Register(catalog)
	if cfg.MusicBrainz.Enabled {
		mb := musicbrainz.NewWithBaseURL(limiter, a.logger, cfg.MusicBrainz.BaseURL)
		mb.SetUserAgent(cfg.MusicBrainz.UserAgent)
		reg.Register(mb)
	}
	if cfg.LastFM.APIKey != "" {
		reg.Register(lastfm.NewWithBaseURL(limiter, cfg.LastFM.APIKey, a.logger, cfg.LastFM.BaseURL))
	} else {
		a.logger.Info("last.fm disabled, no API key configured")
	}

	an := analyzer.New(catalog, reg, a.logger)
	an.SetAbortThreshold(cfg.Analysis.AbortThreshold)
	return review.NewRunner(catalog, an, a.runs, a.stats, a.logger), nil
}

// explain turns err into a message for the terminal in the configured
// language, keeping the technical detail for the log.
func (a *app) explain(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Debug("command failed", slog.String("error", err.Error()))
	return fmt.Errorf("%s", notice.Message(err, a.cfg.Analysis.Language))
}
