package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/recurse/internal/config"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	config  string
	dir     string
	backend string
	debug   bool
}

// newRootCmd builds the command tree. Each call returns independent flag
// state so tests can run commands side by side.
func newRootCmd() *cobra.Command {
	var flags globalFlags
	env := &cliEnv{}

	rootCmd := &cobra.Command{
		Use:   "recurse",
		Short: "Hierarchical task orchestrator",
		Long: `recurse drives a large goal to completion by recursive decomposition.

A goal becomes the root of a task tree. Nodes are split into 2-5 sub-goals
until each is small enough to implement directly, then executed and verified.
Passing leaves promote their parents; failing leaves are retried with hints or
escalated to a human once the retry budget is spent.

All state lives in a state directory (.agent/recursive-refactor by default):
  task_registry.json   the node tree
  failure_report.json  append-only log of failed attempts
  task_registry.md     human-readable rendering, rewritten on every save`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.config)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dir") {
				cfg.State.Dir = flags.dir
			}
			if cmd.Flags().Changed("backend") {
				cfg.State.Backend = flags.backend
			}
			if cmd.Flags().Changed("debug") {
				cfg.Log.Debug = flags.debug
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			env.cfg = cfg
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.config, "config", "", "Config file to use instead of the user and project files")
	pf.StringVar(&flags.dir, "dir", "", "State directory (default from config: state.dir)")
	pf.StringVar(&flags.backend, "backend", "", "Store backend: json or sqlite (default from config: state.backend)")
	pf.BoolVar(&flags.debug, "debug", false, "Write a debug log to <dir>/logs/orchestrator-debug.log")

	rootCmd.AddCommand(
		newInitCmd(env),
		newStatusCmd(env),
		newResumeCmd(env),
		newDecomposeCmd(env),
		newFastCmd(env),
		newUpdateCmd(env),
		newNextCmd(env),
		newTreeCmd(env),
		newSetTestsCmd(env),
		newGetTestsCmd(env),
		newTestResultCmd(env),
		newLogFailureCmd(env),
		newGetFailuresCmd(env),
		newGetContextCmd(env),
		newViewCmd(env),
		newTUICmd(env),
		newConfigCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig reads the layered configuration, or only path when one is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// Execute runs the root command
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}
