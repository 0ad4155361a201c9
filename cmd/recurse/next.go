package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/recurse/internal/orchestrator"
	"github.com/ShayCichocki/recurse/internal/render"
)

func newNextCmd(env *cliEnv) *cobra.Command {
	var peek bool

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Move to the next actionable node",
		Long: `Find the first actionable node (pending, executing, fast-track, testing or
failed) in depth-first order and make it current. Passed and escalated
subtrees are skipped.

With --peek the current pointer is not moved.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&peek, "peek", false, "Only report the next node")

	cmd.RunE = withService(env, func(ctx context.Context, out io.Writer, args []string, svc *orchestrator.Service) error {
		if peek {
			n, err := svc.FindNext(ctx)
			if err != nil {
				return err
			}
			if n == nil {
				fmt.Fprintln(out, "No actionable node.")
				return nil
			}
			fmt.Fprintf(out, "%s %s: %s\n", render.RenderStatus(n.Status), n.ID, n.Goal)
			return nil
		}

		result, err := svc.Next(ctx)
		if err != nil {
			return err
		}
		switch result.Outcome {
		case orchestrator.OutcomeComplete:
			printStatus(out, "✓", "All done: the root goal has passed.", color.FgGreen)
			return nil
		case orchestrator.OutcomeStuck:
			printStatus(out, "⚠", "No actionable node: the remaining work is escalated and needs a human.", color.FgYellow)
			return nil
		}
		printStatus(out, "▶", fmt.Sprintf("Current: %s", result.Node.ID), color.FgCyan)
		return printCurrentStatus(ctx, out, svc)
	})
	return cmd
}
