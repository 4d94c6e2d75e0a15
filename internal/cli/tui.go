package cli

import (
	"github.com/spf13/cobra"

	"sova-grid/internal/store"
	"sova-grid/internal/tui"
)

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive grid editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}
}

func runTUI(cmd *cobra.Command, app *App) error {
	l, err := app.connect(cmd.Context(), connectOptions{copyText: tui.CopyToClipboard})
	if err != nil {
		return writeErr(cmd, err)
	}
	defer l.Close()

	opts := tui.Options{Server: l.server, Peer: l.peer, Logger: app.logger()}
	if cfg, err := store.LoadConfig(); err == nil && cfg.TUI != nil {
		opts.Profile = cfg.TUI.Profile
		opts.Glyphs = cfg.TUI.Glyphs
	}
	return tui.Run(l.sess, opts)
}
