package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"sova-grid/internal/format"
	"sova-grid/internal/protocol"
	"sova-grid/internal/store"

	"github.com/spf13/cobra"
)

const defaultServer = "127.0.0.1:7300"

type App struct {
	Server     string
	Peer       string
	Timing     string
	PrettyJSON bool
	Format     string

	log     *slog.Logger
	logFile io.Closer
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "sovagrid",
		Short:        "Timeline grid editor for a live-coding performance server",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Open the grid editor against a running server
  sovagrid --server 192.168.1.20:7300

  # Try it locally
  sovagrid sim --addr 127.0.0.1:7300 &
  sovagrid

  # Scriptable edits
  sovagrid scene show --format grid
  sovagrid frame move --line 0 --frame 0 --to-line 1 --to 0
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive grid.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		app.log, app.logFile = openLog(os.Getenv("SOVAGRID_LOG"))
		return nil
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.logFile != nil {
			_ = app.logFile.Close()
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Server, "server", envOr("SOVAGRID_SERVER", ""), "Performance server address (host:port or ws:// URL)")
	cmd.PersistentFlags().StringVar(&app.Peer, "peer", envOr("SOVAGRID_PEER", ""), "Name announced to other collaborators")
	cmd.PersistentFlags().StringVar(&app.Timing, "timing", envOr("SOVAGRID_TIMING", ""), "When the server applies edits (immediate|boundary)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("SOVAGRID_FORMAT", "json"), "Output format (json|edn|grid)")

	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newSceneCmd(app))
	cmd.AddCommand(newFrameCmd(app))
	cmd.AddCommand(newLineCmd(app))
	cmd.AddCommand(newJournalCmd(app))
	cmd.AddCommand(newSimCmd(app))
	cmd.AddCommand(newMonitorCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

// settings resolves server, peer and timing: flag/env first, then the config file, then defaults.
func (app *App) settings() (server, peer string, timing protocol.Timing, err error) {
	cfg, cfgErr := store.LoadConfig()
	if cfgErr != nil {
		app.logger().Warn("config unreadable; using defaults", "err", cfgErr)
		cfg = &store.Config{}
	}

	server = firstNonEmpty(app.Server, cfg.Server, defaultServer)
	peer = firstNonEmpty(app.Peer, cfg.PeerName)
	if peer == "" {
		if h, err := os.Hostname(); err == nil {
			peer = h
		} else {
			peer = "sovagrid"
		}
	}
	timing, err = protocol.ParseTiming(firstNonEmpty(app.Timing, cfg.Timing))
	return server, peer, timing, err
}

func (app *App) logger() *slog.Logger {
	if app.log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return app.log
}

// openLog returns a debug logger writing to path, or a discarding one when path is empty.
// The TUI owns the terminal, so logs never go to stderr.
func openLog(path string) (*slog.Logger, io.Closer) {
	path = strings.TrimSpace(path)
	if path == "" {
		return slog.New(slog.DiscardHandler), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return slog.New(slog.DiscardHandler), nil
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})), f
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
