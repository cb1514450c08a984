package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"deepcheck/internal/httpapi"
	"deepcheck/internal/logging"
	"deepcheck/internal/staging"
	"deepcheck/internal/verdictcache"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(commandCtx(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			rt, err := newRuntime(signalCtx, cfg, logger, ctx.overrides)
			if err != nil {
				return err
			}
			defer rt.Close()

			// Media older than one request budget was orphaned by a previous process.
			swept := staging.Sweep(signalCtx, cfg.Paths.StagingDir, cfg.RequestTimeout(), logging.NewComponentLogger(logger, "staging"))
			if len(swept.Removed) > 0 {
				logger.Info("reclaimed orphaned staged media",
					logging.Int("removed", len(swept.Removed)),
					logging.Int64("bytes", swept.Freed))
			}

			if interval := time.Duration(cfg.Cache.SweepInterval) * time.Second; interval > 0 {
				go verdictcache.RunSweeper(signalCtx, rt.store, interval, logger)
			}

			server, err := httpapi.NewServer(cfg.Server, rt.pipeline, logger)
			if err != nil {
				return err
			}
			if err := server.Serve(signalCtx); err != nil {
				return err
			}
			logger.Info("deepcheck server stopped", logging.String(logging.FieldEventType, "shutdown"))
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind (host:port)")
	return cmd
}
