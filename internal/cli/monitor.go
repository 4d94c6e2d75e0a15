package cli

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"time"

	"sova-grid/internal/monitor"

	"github.com/spf13/cobra"
)

func newMonitorCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Serve a live, read-only view of the grid in the browser",
		Long: strings.TrimSpace(`
Connect to the performance server as an observer and serve a web page whose grid updates
live (server-sent events), plus the built-in guide under /docs.
`),
		Example: strings.TrimSpace(`
sovagrid --server 192.168.1.20:7300 monitor --addr 127.0.0.1:7310
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := app.connect(cmd.Context(), connectOptions{})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer l.Close()

			srv, err := monitor.NewServer(monitor.Config{
				Source: l.sess,
				Server: l.server,
				Logger: app.logger(),
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", strings.TrimSpace(addr))
			if err != nil {
				return writeErr(cmd, err)
			}
			url := "http://" + ln.Addr().String() + "/"

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      ln.Addr().String(),
					"url":       url,
					"server":    l.server,
					"peer":      l.peer,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": []string{"open " + url},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "sovagrid monitor running at %s (server=%s)\n", url, l.server)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return serve(ctx, ln, srv.Handler(), nil)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7310", "Bind address (host:port or :port)")
	return cmd
}
