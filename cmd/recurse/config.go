package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/recurse/internal/config"
)

func newConfigCmd() *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "config [key] [value]",
		Short: "Manage configuration",
		Long: `View or modify recurse configuration.

Without arguments, displays the effective configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/recurse/config.yaml
Project-specific overrides can be placed in .recurse.yaml (use --project).
Environment variables override both, e.g. RECURSE_STATE_BACKEND=sqlite.`,
		Args: cobra.MaximumNArgs(2),
		// Config must stay usable when the current config is invalid.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch len(args) {
			case 0:
				values, err := config.Effective()
				if err != nil {
					return err
				}
				for _, key := range config.Keys() {
					fmt.Fprintf(out, "%s: %v\n", key, values[key])
				}
				return nil
			case 1:
				value, err := config.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, value)
				return nil
			default:
				path := config.GetUserConfigPath()
				if project {
					path = config.ProjectFile
					if existing := config.GetProjectConfigPath(); existing != "" {
						path = existing
					}
				}
				if err := config.Set(path, args[0], args[1]); err != nil {
					return err
				}
				printStatus(out, "✓", fmt.Sprintf("Set %s = %s in %s", args[0], args[1], path), color.FgGreen)
				return nil
			}
		},
	}
	cmd.Flags().BoolVar(&project, "project", false, "Write to the project .recurse.yaml instead of the user config")
	return cmd
}
