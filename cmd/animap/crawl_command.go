package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"animap/internal/crawl"
	"animap/internal/store"
)

func newCrawlCommand(ctx *commandContext) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Resolve every listed AniList id and keep airing entries fresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			resolver, err := buildResolver(cfg, logger)
			if err != nil {
				return err
			}

			return ctx.withStore(func(st *store.Store) error {
				crawler, err := crawl.New(crawl.OptionsFromConfig(cfg), resolver, st, newHTTPClient(cfg, "ids", 0), logger)
				if err != nil {
					return err
				}
				if !once {
					return crawler.Run(signalCtx)
				}
				stats, err := crawler.RunOnce(signalCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Crawl complete: %d listed, %d already stored, %d resolved, %d failed\n",
					stats.Listed, stats.Skipped, stats.Resolved, stats.Failed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single sync and refresh pass, then exit")
	return cmd
}
