package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"sova-grid/internal/grid"
	"sova-grid/internal/model"

	"github.com/spf13/cobra"
)

func newFrameCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Edit frames",
	}
	cmd.AddCommand(newFrameMoveCmd(app))
	cmd.AddCommand(newFramePasteCmd(app))
	cmd.AddCommand(newFrameResizeCmd(app))
	cmd.AddCommand(newFrameRenameCmd(app))
	cmd.AddCommand(newFrameRepsCmd(app))
	cmd.AddCommand(newFrameScriptCmd(app))
	cmd.AddCommand(newFrameEnableCmd(app, true))
	cmd.AddCommand(newFrameEnableCmd(app, false))
	cmd.AddCommand(newFrameDeleteCmd(app))
	return cmd
}

func posFlags(cmd *cobra.Command, p *model.Pos) {
	cmd.Flags().IntVar(&p.Line, "line", 0, "Line index")
	cmd.Flags().IntVar(&p.Frame, "frame", 0, "Frame index within the line")
}

// withFrame connects, checks that p exists and runs fn.
func withFrame(cmd *cobra.Command, app *App, p model.Pos, fn func(l *live) (map[string]any, error)) error {
	l, err := app.connect(cmd.Context(), connectOptions{})
	if err != nil {
		return writeErr(cmd, err)
	}
	defer l.Close()

	if !l.sess.Store().Scene().Has(p) {
		return writeErr(cmd, errNotFound("frame", p.String()))
	}
	rev := l.sess.Store().Revision()
	data, err := fn(l)
	if err != nil {
		return writeErr(cmd, err)
	}
	settle(l.sess.Store(), rev)
	return writeOut(cmd, app, l.result(data))
}

func newFrameMoveCmd(app *App) *cobra.Command {
	var src model.Pos
	var dst grid.DropZone

	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move a frame to an insertion slot (insert copy, then remove original)",
		Example: strings.TrimSpace(`
# Move the first frame of line 0 to the end of line 0 (3 frames)
sovagrid frame move --line 0 --frame 0 --to-line 0 --to 3
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFrame(cmd, app, src, func(l *live) (map[string]any, error) {
				if dst.Line < 0 || dst.Line >= l.sess.Store().Scene().LineCount() {
					return nil, errNotFound("line", fmt.Sprint(dst.Line))
				}
				final, err := l.sess.MoveFrame(cmd.Context(), src, dst)
				if err != nil {
					return nil, err
				}
				return map[string]any{"from": src, "to": final, "moved": !grid.IsNoOp(src, dst)}, nil
			})
		},
	}
	posFlags(cmd, &src)
	cmd.Flags().IntVar(&dst.Line, "to-line", 0, "Destination line")
	cmd.Flags().IntVar(&dst.Insert, "to", 0, "Destination insertion slot (0..frame count)")
	return cmd
}

func newFramePasteCmd(app *App) *cobra.Command {
	var src model.Pos
	var dst grid.DropZone

	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Copy a frame and paste it at an insertion slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFrame(cmd, app, src, func(l *live) (map[string]any, error) {
				l.sess.SelectCell(src.Cell())
				if err := l.sess.CopyFrame(cmd.Context()); err != nil {
					return nil, err
				}
				at, err := l.sess.PasteFrame(cmd.Context(), dst.Line, dst.Insert)
				if err != nil {
					return nil, err
				}
				return map[string]any{"from": src, "to": at}, nil
			})
		},
	}
	posFlags(cmd, &src)
	cmd.Flags().IntVar(&dst.Line, "to-line", 0, "Destination line")
	cmd.Flags().IntVar(&dst.Insert, "to", 0, "Destination insertion slot (clamped to the line)")
	return cmd
}

func newFrameResizeCmd(app *App) *cobra.Command {
	var p model.Pos
	var duration float64

	cmd := &cobra.Command{
		Use:   "resize",
		Short: "Set a frame's duration in beats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFrame(cmd, app, p, func(l *live) (map[string]any, error) {
				if err := l.sess.ResizeFrame(cmd.Context(), p, duration); err != nil {
					return nil, err
				}
				return map[string]any{"pos": p, "duration": model.ClampDuration(duration)}, nil
			})
		},
	}
	posFlags(cmd, &p)
	cmd.Flags().Float64Var(&duration, "duration", 1, "Duration in beats")
	return cmd
}

func newFrameRenameCmd(app *App) *cobra.Command {
	var p model.Pos
	var name string

	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename a frame (empty name clears it)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFrame(cmd, app, p, func(l *live) (map[string]any, error) {
				if err := l.sess.RenameFrame(cmd.Context(), p, name); err != nil {
					return nil, err
				}
				return map[string]any{"pos": p, "name": model.NormalizeName(name)}, nil
			})
		},
	}
	posFlags(cmd, &p)
	cmd.Flags().StringVar(&name, "name", "", "New name")
	return cmd
}

func newFrameRepsCmd(app *App) *cobra.Command {
	var p model.Pos
	var n int

	cmd := &cobra.Command{
		Use:   "reps",
		Short: "Set how many times a frame repeats (1-16)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFrame(cmd, app, p, func(l *live) (map[string]any, error) {
				if err := l.sess.SetRepetitions(cmd.Context(), p, n); err != nil {
					return nil, err
				}
				return map[string]any{"pos": p, "repetitions": n}, nil
			})
		},
	}
	posFlags(cmd, &p)
	cmd.Flags().IntVar(&n, "count", 1, "Repetitions (1-16)")
	return cmd
}

func newFrameScriptCmd(app *App) *cobra.Command {
	var p model.Pos
	var file, content, lang string

	cmd := &cobra.Command{
		Use:   "script",
		Short: "Replace a frame's script (--content, or --file; '-' reads stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := content
			switch {
			case file == "-":
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return writeErr(cmd, err)
				}
				body = string(b)
			case file != "":
				b, err := os.ReadFile(file)
				if err != nil {
					return writeErr(cmd, err)
				}
				body = string(b)
			case !cmd.Flags().Changed("content"):
				return writeErr(cmd, errors.New("frame script: pass --content or --file"))
			}
			return withFrame(cmd, app, p, func(l *live) (map[string]any, error) {
				if err := l.sess.SetScript(cmd.Context(), p, model.Script{Lang: lang, Content: body}); err != nil {
					return nil, err
				}
				return map[string]any{"pos": p, "bytes": len(body)}, nil
			})
		},
	}
	posFlags(cmd, &p)
	cmd.Flags().StringVar(&file, "file", "", "Read the script from a file ('-' for stdin)")
	cmd.Flags().StringVar(&content, "content", "", "Script text")
	cmd.Flags().StringVar(&lang, "lang", "", "Script language (default: bali)")
	return cmd
}

func newFrameEnableCmd(app *App, enabled bool) *cobra.Command {
	var line int
	var frames []int

	use, short := "enable", "Enable frames of one line"
	if !enabled {
		use, short = "disable", "Disable frames of one line"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(frames) == 0 {
				return writeErr(cmd, errors.New(use+": pass --frames"))
			}
			return withFrame(cmd, app, model.Pos{Line: line, Frame: frames[0]}, func(l *live) (map[string]any, error) {
				if err := l.sess.SetEnabled(cmd.Context(), line, frames, enabled); err != nil {
					return nil, err
				}
				return map[string]any{"line": line, "frames": frames, "enabled": enabled}, nil
			})
		},
	}
	cmd.Flags().IntVar(&line, "line", 0, "Line index")
	cmd.Flags().IntSliceVar(&frames, "frames", nil, "Frame indices (comma separated)")
	return cmd
}

func newFrameDeleteCmd(app *App) *cobra.Command {
	var p model.Pos
	var count int

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete frames starting at --frame",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				count = 1
			}
			return withFrame(cmd, app, p, func(l *live) (map[string]any, error) {
				l.sess.SelectCell(p.Cell())
				l.sess.ExtendSelection(model.Cell{Row: p.Frame + count - 1, Col: p.Line})
				n, err := l.sess.DeleteSelection(cmd.Context())
				if err != nil {
					return nil, err
				}
				return map[string]any{"line": p.Line, "deleted": n}, nil
			})
		},
	}
	posFlags(cmd, &p)
	cmd.Flags().IntVar(&count, "count", 1, "Number of consecutive frames")
	return cmd
}
