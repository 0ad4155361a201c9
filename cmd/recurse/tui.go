package main

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/recurse/internal/state"
	"github.com/ShayCichocki/recurse/internal/tui"
)

func newTUICmd(env *cliEnv) *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse the task tree interactively",
		Long: `Open a read-only terminal browser over the task tree. The view follows
changes made by other recurse commands while it is open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := env.openStore()
			if err != nil {
				return err
			}
			defer env.close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var changes <-chan struct{}
			if !noWatch && stateDirExists(env.cfg.State.Dir) {
				w, err := state.Watch(ctx, env.cfg.State.Dir, env.cfg.TUI.RefreshRate)
				if err != nil {
					return err
				}
				changes = w.Changes()
			}

			p := tea.NewProgram(tui.NewApp(store, changes), tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload on changes")
	return cmd
}
