package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"deepcheck/internal/logging"
	"deepcheck/internal/verdictcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the verdict cache",
	}
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCacheSweepCommand(ctx))
	return cacheCmd
}

func openCacheStore(cmd *cobra.Command, ctx *commandContext) (verdictcache.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return verdictcache.Open(commandCtx(cmd), cfg.Cache, logging.NewComponentLogger(logger, "cli"))
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCacheStore(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Purge(commandCtx(cmd))
			if err != nil {
				return fmt.Errorf("clear %s cache: %w", store.Name(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached verdict(s) from %s backend\n", n, store.Name())
			return nil
		},
	}
}

func newCacheSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired verdicts from backends without native expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCacheStore(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			sweeper, ok := verdictcache.SweeperFor(store)
			if !ok {
				return errors.New(store.Name() + " backend expires entries on its own")
			}
			n, err := sweeper.Sweep(commandCtx(cmd))
			if err != nil {
				return fmt.Errorf("sweep %s cache: %w", store.Name(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Swept %d expired verdict(s) from %s backend\n", n, store.Name())
			return nil
		},
	}
}
