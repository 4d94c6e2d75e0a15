package cli

import (
	"sova-grid/internal/format"
	"sova-grid/internal/model"

	"github.com/spf13/cobra"
)

// sceneEnvelope is the {"data": ...} output of commands that end with a scene; --format grid
// prints the scene as a table instead.
type sceneEnvelope struct {
	Data  any      `json:"data"`
	Hints []string `json:"_hints,omitempty"`

	scene   model.Scene
	playing map[int]int
}

func (e sceneEnvelope) GridText() string {
	return format.SceneGrid(e.scene, e.playing)
}

func newSceneCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scene",
		Short: "Inspect the scene",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current scene (json|edn|grid)",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := app.connect(cmd.Context(), connectOptions{})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer l.Close()

			snap := l.sess.Store().Snapshot()
			playing := l.sess.Store().Playheads()
			return writeOut(cmd, app, sceneEnvelope{
				Data: map[string]any{
					"server":   l.server,
					"revision": snap.Revision,
					"lines":    snap.Scene.LineCount(),
					"scene":    snap.Scene,
				},
				scene:   snap.Scene,
				playing: playing,
			})
		},
	}

	cmd.AddCommand(show)
	return cmd
}

// result builds the output of an edit: what happened plus the scene it led to.
func (l *live) result(data map[string]any) sceneEnvelope {
	sc := l.sess.Store().Scene()
	data["scene"] = sc
	var hints []string
	if st := l.sess.State().Status; st != "" {
		hints = append(hints, st)
	}
	return sceneEnvelope{Data: data, Hints: hints, scene: sc}
}
