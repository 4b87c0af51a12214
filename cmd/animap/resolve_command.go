package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"animap/internal/store"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var save bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <anilist-id>",
		Short: "Resolve one AniList entry across the configured catalogs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubjectID(args[0])
			if err != nil {
				return err
			}
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

			entity, err := resolver.Resolve(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("resolve %d: %w", id, err)
			}
			if save {
				if err := ctx.withStore(func(st *store.Store) error {
					return st.Save(cmd.Context(), entity)
				}); err != nil {
					return fmt.Errorf("save %d: %w", id, err)
				}
			}

			if wantJSON(cmd, asJSON) {
				return writeJSON(cmd, entity)
			}
			out := cmd.OutOrStdout()
			printEntity(out, entity)
			if save {
				fmt.Fprintf(out, "Saved to %s\n", cfg.DatabasePath())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Persist the resolved entity")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the merged entity as JSON")
	return cmd
}

func parseSubjectID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid AniList id %q", raw)
	}
	return id, nil
}
