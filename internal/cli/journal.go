package cli

import (
	"errors"

	"sova-grid/internal/store"

	"github.com/spf13/cobra"
)

func newJournalCmd(app *App) *cobra.Command {
	var limit int
	var prune int

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recently sent commands and whether the server accepted them",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := store.JournalPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			j, err := store.OpenJournal(cmd.Context(), path)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer j.Close()

			if cmd.Flags().Changed("prune") {
				if prune < 0 {
					return writeErr(cmd, errors.New("journal: --prune must be >= 0"))
				}
				n, err := j.Prune(cmd.Context(), prune)
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"pruned": n, "kept": prune}})
			}

			entries, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			failed := 0
			for _, e := range entries {
				if e.Status == store.StatusError {
					failed++
				}
			}
			return writeOut(cmd, app, map[string]any{
				"data": entries,
				"meta": map[string]any{"count": len(entries), "failed": failed, "path": path},
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Number of entries (newest first)")
	cmd.Flags().IntVar(&prune, "prune", 0, "Delete all but the newest N entries")
	return cmd
}
