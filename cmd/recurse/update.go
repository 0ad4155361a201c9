package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/recurse/internal/orchestrator"
	"github.com/ShayCichocki/recurse/internal/render"
	"github.com/ShayCichocki/recurse/pkg/models"
)

func newUpdateCmd(env *cliEnv) *cobra.Command {
	var (
		req    orchestrator.UpdateRequest
		status string
	)

	cmd := &cobra.Command{
		Use:   "update <node-id> --status <status>",
		Short: "Move a node to a new status",
		Long: `Apply a status transition to a node.

Allowed targets: pending, executing, testing, passed, failed, escalated.
An --error bumps the node's retry count. Passing a node promotes every
ancestor whose children have all passed. --advance moves the current
pointer to the next actionable node after a pass or fail.

--force bypasses the transition table for nodes without children.

Examples:
  recurse update NODE-1 --status executing --leaf
  recurse update NODE-1 --status failed --error "nil map write in Merge"
  recurse update NODE-1 --status pending --hint "initialise the map first"
  recurse update NODE-1 --status passed --advance
  recurse update NODE-1 --status escalated --reason "needs a schema decision"`,
		Args: cobra.ExactArgs(1),
	}
	flags := cmd.Flags()
	flags.StringVar(&status, "status", "", "Target status")
	flags.StringVar(&req.Error, "error", "", "Error message (increments the retry count)")
	flags.StringVar(&req.Hint, "hint", "", "Hint for the next attempt")
	flags.StringVar(&req.Reason, "reason", "", "Escalation reason")
	flags.BoolVar(&req.Leaf, "leaf", false, "Mark the node as a leaf")
	flags.BoolVar(&req.Advance, "advance", false, "Move to the next actionable node after passed or failed")
	flags.BoolVar(&req.Force, "force", false, "Bypass the transition table")
	_ = cmd.MarkFlagRequired("status")

	cmd.RunE = withService(env, func(ctx context.Context, out io.Writer, args []string, svc *orchestrator.Service) error {
		req.Status = models.Status(strings.ToLower(status))
		result, err := svc.UpdateStatus(ctx, args[0], req)
		if err != nil {
			return err
		}

		n := result.Node
		printStatus(out, "✓", fmt.Sprintf("%s: %s → %s", n.ID, result.From, render.RenderStatus(n.Status)), color.FgGreen)
		if req.Error != "" {
			if nc, err := svc.QueryContext(ctx, n.ID); err == nil {
				fmt.Fprintf(out, "  Retry %d/%d\n", n.RetryCount, nc.MaxRetries)
			}
		}
		for _, id := range result.Promoted {
			printStatus(out, render.IconPassed, fmt.Sprintf("%s passed (all children passed)", id), color.FgGreen)
		}
		if result.Advanced {
			fmt.Fprintf(out, "Current: %s\n", render.CurrentStyle.Render(result.Current))
		} else if req.Advance {
			fmt.Fprintln(out, "No actionable node left.")
		}
		if n.Status == models.StatusFailed {
			nc, err := svc.QueryContext(ctx, n.ID)
			if err == nil && nc.Action == orchestrator.ActionEscalate {
				printStatus(out, "⚠", fmt.Sprintf("Retry limit reached: escalate with 'recurse update %s --status escalated --reason \"...\"'", n.ID), color.FgYellow)
			}
		}
		return nil
	})
	return cmd
}
