package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sydlexius/trackyear/internal/api"
	"github.com/sydlexius/trackyear/internal/version"
)

func newServeCommand(cc *commandContext) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the review API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := cc.open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			runner, err := a.newRunner(ctx)
			if err != nil {
				return a.explain(err)
			}
			if port == 0 {
				port = a.cfg.Server.Port
			}

			a.logger.Info("starting trackyear",
				slog.String("version", version.Version),
				slog.String("commit", version.Commit),
			)

			router := api.NewRouter(ctx, api.RouterDeps{
				Runner:   runner,
				Runs:     a.runs,
				Stats:    a.stats,
				Logger:   a.logger,
				BasePath: a.cfg.Server.BasePath,
				Language: a.cfg.Analysis.Language,
			})

			// WriteTimeout stays unset: analysis streams run as long as the
			// playlist takes.
			addr := fmt.Sprintf(":%d", port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           router.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       15 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			go watchReload(ctx, cc, a)
			if every := a.cfg.Maintenance.Interval; every > 0 {
				go a.maint.StartScheduler(ctx, every)
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", a.cfg.Server.BasePath))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("serving http: %w", err)
				}
				return nil
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides the configuration)")
	return cmd
}

// watchReload re-reads the configuration on SIGHUP and applies the logging
// section. Other settings need a restart.
func watchReload(ctx context.Context, cc *commandContext, a *app) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := cc.loadConfig()
			if err != nil {
				a.logger.Error("reloading config", slog.String("error", err.Error()))
				continue
			}
			a.logs.Reconfigure(cfg.Logging)
			a.logger.Info("reloaded logging config", slog.String("config", cfg.Logging.String()))
		}
	}
}
