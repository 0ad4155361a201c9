package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/recurse/internal/orchestrator"
)

func newInitCmd(env *cliEnv) *cobra.Command {
	var (
		force      bool
		maxDepth   int
		maxRetries int
	)

	cmd := &cobra.Command{
		Use:   "init <goal>",
		Short: "Start a new task tree for a goal",
		Long: `Create a fresh task registry whose root node is the given goal, and an
empty failure log.

Fails if a registry already exists unless --force is given.

Examples:
  recurse init "Migrate the billing service to the new API"
  recurse init --max-depth 3 --max-retries 2 "Rewrite the parser"
  recurse init --force "Start over"`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing registry")
	cmd.Flags().IntVar(&maxDepth, "max-depth", -1, "Maximum decomposition depth (default from config: defaults.max_depth)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", -1, "Failed attempts before escalation (default from config: defaults.max_retries)")

	cmd.RunE = withService(env, func(ctx context.Context, out io.Writer, args []string, svc *orchestrator.Service) error {
		if !cmd.Flags().Changed("max-depth") {
			maxDepth = env.cfg.Defaults.MaxDepth
		}
		if !cmd.Flags().Changed("max-retries") {
			maxRetries = env.cfg.Defaults.MaxRetries
		}
		goal := strings.Join(args, " ")

		reg, err := svc.Init(ctx, goal, maxDepth, maxRetries, force)
		if errors.Is(err, orchestrator.ErrAlreadyInitialized) {
			return fmt.Errorf("%w in %s (use --force to start over)", err, env.cfg.State.Dir)
		}
		if err != nil {
			return err
		}

		printStatus(out, "✓", fmt.Sprintf("Initialized task registry in %s", env.cfg.State.Dir), color.FgGreen)
		fmt.Fprintf(out, "  Goal:        %s\n", reg.Meta.Goal)
		fmt.Fprintf(out, "  Max depth:   %d\n", reg.Meta.MaxDepth)
		fmt.Fprintf(out, "  Max retries: %d\n", reg.Meta.MaxRetries)
		fmt.Fprintf(out, "\nNext: decompose the root with 'recurse decompose ROOT \"<goal 1>\" \"<goal 2>\" ...'\n")
		fmt.Fprintf(out, "or implement it directly with 'recurse fast ROOT'.\n")
		return nil
	})
	return cmd
}
