package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/recurse/internal/orchestrator"
	"github.com/ShayCichocki/recurse/internal/render"
	"github.com/ShayCichocki/recurse/pkg/models"
)

func newStatusCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current node and what to do with it",
		Long: `Display the current node: its status, the role to play, retry budget,
last error and hint, the test ledger and the recommended next commands.`,
		Args: cobra.NoArgs,
		RunE: withService(env, func(ctx context.Context, out io.Writer, args []string, svc *orchestrator.Service) error {
			return printCurrentStatus(ctx, out, svc)
		}),
	}
}

func newResumeCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Show overall progress and the current node",
		Long: `Summarize progress across the whole tree, then show the current node as
'status' does. Prints a hint instead of failing when nothing is initialized.`,
		Args: cobra.NoArgs,
		RunE: withService(env, func(ctx context.Context, out io.Writer, args []string, svc *orchestrator.Service) error {
			p, err := svc.Progress(ctx)
			if errors.Is(err, orchestrator.ErrNotInitialized) {
				notInitialized(out)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "%s %s\n", render.HeaderStyle.Render("Goal:"), p.Goal)
			fmt.Fprintf(out, "Progress: %d/%d nodes passed\n", p.Passed, p.Total)
			for _, status := range models.AllStatuses {
				if status == models.StatusPassed || status == models.StatusDecomposed {
					continue
				}
				if n := p.ByStatus[status]; n > 0 {
					fmt.Fprintf(out, "  %s %d\n", render.RenderStatus(status), n)
				}
			}
			fmt.Fprintln(out)
			return printCurrentStatus(ctx, out, svc)
		}),
	}
}

func printCurrentStatus(ctx context.Context, out io.Writer, svc *orchestrator.Service) error {
	report, err := svc.Status(ctx)
	if err != nil {
		return err
	}
	n := report.Node

	fmt.Fprintln(out, render.MutedStyle.Render(render.Separator))
	fmt.Fprintf(out, "Current: %s\n", render.CurrentStyle.Render(n.ID))
	fmt.Fprintf(out, "Goal:    %s\n", n.Goal)
	fmt.Fprintf(out, "Status:  %s\n", render.RenderStatus(n.Status))
	if report.Role != orchestrator.RoleNone {
		fmt.Fprintf(out, "Role:    %s\n", report.Role)
	}
	fmt.Fprintf(out, "Depth:   %d/%d\n", n.Depth, report.Meta.MaxDepth)
	fmt.Fprintf(out, "Retries: %d/%d (%d left)\n", n.RetryCount, report.Meta.MaxRetries, report.RetriesLeft)
	if n.IsLeaf {
		fmt.Fprintln(out, "Leaf:    yes")
	}
	if n.Error != "" {
		fmt.Fprintf(out, "Error:   %s\n", color.RedString(n.Error))
	}
	if n.Hint != "" {
		fmt.Fprintf(out, "Hint:    %s\n", n.Hint)
	}
	if n.EscalationReason != "" {
		fmt.Fprintf(out, "Escalated: %s\n", n.EscalationReason)
	}
	if len(n.TestCriteria) > 0 {
		sum := orchestrator.Summarize(n.TestCriteria)
		fmt.Fprintf(out, "Tests:   %d passed, %d failed, %d pending\n", sum.Passed, sum.Failed, sum.Pending)
		for i, tc := range n.TestCriteria {
			fmt.Fprintf(out, "  %d. %s %s\n", i+1, render.CriterionMark(tc), tc.Name)
		}
	}
	fmt.Fprintln(out, render.MutedStyle.Render(render.Separator))
	fmt.Fprintln(out, report.Guidance)
	return nil
}
