package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"animap/internal/store"
)

var summaryHeaders = []string{"ID", "Title", "Status", "Active", "Links", "Resolved"}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <anilist-id>",
		Short: "Display a stored entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubjectID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				entity, err := st.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if entity == nil {
					return notStored(id)
				}
				if wantJSON(cmd, asJSON) {
					return writeJSON(cmd, entity)
				}
				printEntity(cmd.OutOrStdout(), entity)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored entity as JSON")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var activeOnly bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				summaries, err := st.List(cmd.Context(), activeOnly)
				if err != nil {
					return err
				}
				if wantJSON(cmd, asJSON) {
					return writeJSON(cmd, summaries)
				}
				out := cmd.OutOrStdout()
				if len(summaries) == 0 {
					fmt.Fprintln(out, "No entities stored")
					return nil
				}
				fmt.Fprintln(out, renderTable(summaryHeaders, summaryRows(summaries),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only entities whose AniList status may still change")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print summaries as JSON")
	return cmd
}

func newLinksCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "links <anilist-id>",
		Short: "List the catalog ids a stored entity resolved to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSubjectID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				exists, err := st.Has(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !exists {
					return notStored(id)
				}
				links, err := st.Links(cmd.Context(), id)
				if err != nil {
					return err
				}
				if wantJSON(cmd, asJSON) {
					return writeJSON(cmd, links)
				}
				out := cmd.OutOrStdout()
				if len(links) == 0 {
					fmt.Fprintf(out, "Entity %d has no catalog matches\n", id)
					return nil
				}
				fmt.Fprintln(out, renderTable(linkHeaders, linkRows(links), linkAligns))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print links as JSON")
	return cmd
}

func notStored(id int64) error {
	return fmt.Errorf("entity %d is not stored; run `animap resolve %d --save` first", id, id)
}
