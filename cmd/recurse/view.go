package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/recurse/internal/render"
	"github.com/ShayCichocki/recurse/internal/state"
)

// viewDebounce collapses the burst of writes one save produces.
const viewDebounce = 300 * time.Millisecond

func newViewCmd(env *cliEnv) *cobra.Command {
	var (
		output string
		watch  bool
		open   bool
	)

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Write a standalone HTML view of the tree",
		Long: `Render the registry and failure log into a single HTML page with an
interactive tree and a per-node detail pane.

With --watch the page is regenerated whenever the registry or failure log
changes, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := env.openStore()
			if err != nil {
				return err
			}
			defer env.close()

			if output == "" {
				output = env.cfg.ViewerPath()
			}
			out := cmd.OutOrStdout()

			if err := writeViewer(cmd.Context(), store, output); err != nil {
				return err
			}
			printStatus(out, "✓", fmt.Sprintf("Wrote %s", output), color.FgGreen)

			if open {
				openBrowser(output)
			}
			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, err := state.Watch(ctx, env.cfg.State.Dir, viewDebounce)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Watching for changes... (Press Ctrl+C to exit)")
			for {
				select {
				case _, ok := <-w.Changes():
					if !ok {
						fmt.Fprintln(out, "Stopped watching.")
						return nil
					}
					if err := writeViewer(ctx, store, output); err != nil {
						printStatus(out, "✗", err.Error(), color.FgRed)
						continue
					}
					printStatus(out, "✓", fmt.Sprintf("Regenerated %s at %s", output, time.Now().Format("15:04:05")), color.FgGreen)
				case err := <-w.Errors():
					printStatus(out, "⚠", fmt.Sprintf("watch error: %v", err), color.FgYellow)
				}
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default from config: viewer.output, inside the state dir)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Regenerate on every change")
	cmd.Flags().BoolVar(&open, "open", false, "Open the page in the default browser")
	return cmd
}

// writeViewer renders both documents to path through a temp file so a
// browser reload never sees a half-written page.
func writeViewer(ctx context.Context, store state.Store, path string) error {
	reg, err := store.LoadRegistry(ctx)
	if err != nil {
		return err
	}
	failures, err := store.LoadFailures(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create viewer directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".viewer-*.html")
	if err != nil {
		return fmt.Errorf("create viewer file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := render.RenderHTML(tmp, render.NewViewerData(reg, failures, time.Now())); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close viewer file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace viewer file: %w", err)
	}
	return nil
}

// openBrowser opens the given file in the default browser.
func openBrowser(path string) {
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", path)
	case "darwin":
		cmd = exec.Command("open", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	_ = cmd.Start()
}
