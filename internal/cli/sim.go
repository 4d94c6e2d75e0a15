package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"sova-grid/internal/model"
	"sova-grid/internal/sim"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newSimCmd(app *App) *cobra.Command {
	var addr string
	var scenePath string
	var bpm float64
	var play bool
	var scripts bool

	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run a local stand-in performance server",
		Long: strings.TrimSpace(`
Run a local server that speaks the same websocket protocol as the performance server.

It keeps the scene in memory, compiles nothing (a script containing "!error" fails to
compile), and advances playheads so progress shows up in connected editors.
`),
		Example: strings.TrimSpace(`
# Demo scene on the default port
sovagrid sim

# Start from a saved scene, ship scripts with every snapshot
sovagrid scene show > scene.json
sovagrid sim --scene scene.json --scripts
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := sim.DemoScene()
			if scenePath != "" {
				loaded, err := readScene(scenePath)
				if err != nil {
					return writeErr(cmd, err)
				}
				sc = loaded
			}

			srv := sim.New(sim.Options{Scene: sc, IncludeScripts: scripts, Logger: app.logger()})

			ln, err := net.Listen("tcp", strings.TrimSpace(addr))
			if err != nil {
				return writeErr(cmd, err)
			}
			actual := ln.Addr().String()

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actual,
					"url":       "ws://" + actual + "/ws",
					"lines":     sc.LineCount(),
					"playing":   play,
					"bpm":       bpm,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": []string{"sovagrid --server " + actual},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "sovagrid sim listening on %s\n", actual)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return serve(ctx, ln, srv.Handler(), func(ctx context.Context) error {
				if !play {
					return nil
				}
				return srv.Play(ctx, bpm, 50*time.Millisecond)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultServer, "Bind address (host:port or :port)")
	cmd.Flags().StringVar(&scenePath, "scene", "", "Start from a scene JSON file (raw scene or `scene show` output)")
	cmd.Flags().Float64Var(&bpm, "bpm", 120, "Playback tempo")
	cmd.Flags().BoolVar(&play, "play", true, "Advance playheads")
	cmd.Flags().BoolVar(&scripts, "scripts", false, "Include script bodies in scene snapshots")
	return cmd
}

// serve runs h on ln next to an optional background task until ctx ends, then shuts the
// HTTP server down.
func serve(ctx context.Context, ln net.Listener, h http.Handler, task func(context.Context) error) error {
	hs := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return hs.Shutdown(sctx)
	})
	if task != nil {
		g.Go(func() error { return task(gctx) })
	}
	return g.Wait()
}

// readScene accepts a bare scene or the {"data":{"scene":...}} output of `scene show`.
func readScene(path string) (model.Scene, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Scene{}, err
	}
	var wrapped struct {
		Data struct {
			Scene *model.Scene `json:"scene"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &wrapped); err == nil && wrapped.Data.Scene != nil {
		return *wrapped.Data.Scene, nil
	}
	var sc model.Scene
	if err := json.Unmarshal(b, &sc); err != nil {
		return model.Scene{}, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Lines == nil {
		return model.Scene{}, fmt.Errorf("%s: no lines", path)
	}
	return sc, nil
}
