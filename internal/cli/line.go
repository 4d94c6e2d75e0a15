package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLineCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "line",
		Short: "Insert, remove or reorder lines (sent as a whole-scene replace)",
	}
	cmd.AddCommand(newLineInsertCmd(app))
	cmd.AddCommand(newLineRemoveCmd(app))
	cmd.AddCommand(newLineMoveCmd(app))
	return cmd
}

// withScene connects and runs fn against the live session.
func withScene(cmd *cobra.Command, app *App, fn func(l *live) (map[string]any, error)) error {
	l, err := app.connect(cmd.Context(), connectOptions{})
	if err != nil {
		return writeErr(cmd, err)
	}
	defer l.Close()

	rev := l.sess.Store().Revision()
	data, err := fn(l)
	if err != nil {
		return writeErr(cmd, err)
	}
	settle(l.sess.Store(), rev)
	return writeOut(cmd, app, l.result(data))
}

func newLineInsertCmd(app *App) *cobra.Command {
	var at int

	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Insert an empty line (default: at the end)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScene(cmd, app, func(l *live) (map[string]any, error) {
				idx := at
				if !cmd.Flags().Changed("at") {
					idx = l.sess.Store().Scene().LineCount()
				}
				got, err := l.sess.InsertLine(cmd.Context(), idx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"inserted": got}, nil
			})
		},
	}
	cmd.Flags().IntVar(&at, "at", 0, "Index of the new line")
	return cmd
}

func newLineRemoveCmd(app *App) *cobra.Command {
	var at int

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a line and its frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScene(cmd, app, func(l *live) (map[string]any, error) {
				if at < 0 || at >= l.sess.Store().Scene().LineCount() {
					return nil, errNotFound("line", fmt.Sprint(at))
				}
				if err := l.sess.RemoveLine(cmd.Context(), at); err != nil {
					return nil, err
				}
				return map[string]any{"removed": at}, nil
			})
		},
	}
	cmd.Flags().IntVar(&at, "at", 0, "Line index")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func newLineMoveCmd(app *App) *cobra.Command {
	var from, to int

	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move a line to another index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScene(cmd, app, func(l *live) (map[string]any, error) {
				n := l.sess.Store().Scene().LineCount()
				for _, i := range []int{from, to} {
					if i < 0 || i >= n {
						return nil, errNotFound("line", fmt.Sprint(i))
					}
				}
				if err := l.sess.MoveLine(cmd.Context(), from, to); err != nil {
					return nil, err
				}
				return map[string]any{"from": from, "to": to}, nil
			})
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "Current line index")
	cmd.Flags().IntVar(&to, "to", 0, "New line index")
	return cmd
}
