package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/recurse/internal/config"
	"github.com/ShayCichocki/recurse/internal/orchestrator"
	"github.com/ShayCichocki/recurse/internal/render"
	"github.com/ShayCichocki/recurse/internal/state"
)

// cliEnv holds what every command needs: resolved config and, once opened,
// the store and debug logger.
type cliEnv struct {
	cfg    *config.Config
	store  state.Store
	logger *orchestrator.DebugLogger
}

// openStore opens the configured backend with the markdown projection and
// debug logging attached.
func (e *cliEnv) openStore() (state.Store, error) {
	if e.store != nil {
		return e.store, nil
	}

	e.logger = orchestrator.NopLogger()
	if e.cfg.Log.Debug {
		e.logger = orchestrator.NewDebugLoggerForStateDir(e.cfg.State.Dir)
	}

	opts := []state.Option{
		state.WithDebugLog(e.logger.Log),
		state.WithLockTimeout(e.cfg.State.LockTimeout),
	}
	if e.cfg.State.Markdown {
		opts = append(opts, state.WithProjector(render.NewMarkdownProjector(e.cfg.State.Dir)))
	}

	switch e.cfg.State.Backend {
	case config.BackendSQLite:
		db, err := state.OpenProject(e.cfg.State.Dir, opts...)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		e.store = db
	default:
		e.store = state.NewFileStore(e.cfg.State.Dir, opts...)
	}
	return e.store, nil
}

func (e *cliEnv) service() (*orchestrator.Service, error) {
	store, err := e.openStore()
	if err != nil {
		return nil, err
	}
	return orchestrator.NewService(store, orchestrator.WithLogger(e.logger)), nil
}

func (e *cliEnv) close() error {
	var errs []error
	if e.store != nil {
		errs = append(errs, e.store.Close())
		e.store = nil
	}
	if e.logger != nil {
		errs = append(errs, e.logger.Close())
		e.logger = nil
	}
	return errors.Join(errs...)
}

// runFunc is a command body that receives an opened service.
type runFunc func(ctx context.Context, out io.Writer, args []string, svc *orchestrator.Service) error

// withService opens the store for the duration of one command.
func withService(env *cliEnv, fn runFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		svc, err := env.service()
		if err != nil {
			return err
		}
		defer env.close()
		return fn(cmd.Context(), cmd.OutOrStdout(), args, svc)
	}
}

// printStatus prints a status line with color
func printStatus(w io.Writer, symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}

// notInitialized prints the hint shown when no registry exists.
func notInitialized(w io.Writer) {
	printStatus(w, "⚠", "No task registry found. Run 'recurse init \"<goal>\"' to start.", color.FgYellow)
}

// stateDirExists reports whether the state directory is present.
func stateDirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
