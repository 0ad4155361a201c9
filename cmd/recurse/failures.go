package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/recurse/internal/orchestrator"
	"github.com/ShayCichocki/recurse/internal/render"
	"github.com/ShayCichocki/recurse/pkg/models"
)

func newLogFailureCmd(env *cliEnv) *cobra.Command {
	var in orchestrator.FailureInput

	cmd := &cobra.Command{
		Use:   "log-failure <node-id>",
		Short: "Record a failed attempt in the failure log",
		Long: `Append an entry to the failure log so later attempts can avoid the same
approach. Missing fields are recorded as N/A; --error defaults to the node's
last recorded error. The attempt number is the node's retry count.

Example:
  recurse log-failure NODE-1 --approach "regex tokenizer" --reason "grammar is recursive"`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&in.Approach, "approach", "", "What was tried")
	cmd.Flags().StringVar(&in.Error, "error", "", "What went wrong")
	cmd.Flags().StringVar(&in.Reason, "reason", "", "Why it went wrong")

	cmd.RunE = withService(env, func(ctx context.Context, out io.Writer, args []string, svc *orchestrator.Service) error {
		f, err := svc.LogFailure(ctx, args[0], in)
		if err != nil {
			return err
		}
		printStatus(out, "✓", fmt.Sprintf("Logged failure for %s (attempt %d)", f.NodeID, f.Attempt), color.FgGreen)
		return nil
	})
	return cmd
}

func newGetFailuresCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "get-failures [node-id]",
		Short: "List logged failures",
		Long:  `List the failure log, for one node or for the whole tree.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: withService(env, func(ctx context.Context, out io.Writer, args []string, svc *orchestrator.Service) error {
			nodeID := ""
			if len(args) == 1 {
				nodeID = args[0]
			}
			failures, err := svc.QueryFailures(ctx, nodeID)
			if err != nil {
				return err
			}
			if len(failures) == 0 {
				fmt.Fprintln(out, "No failures logged.")
				return nil
			}
			printFailures(out, failures)
			return nil
		}),
	}
}

func printFailures(out io.Writer, failures []models.Failure) {
	for _, f := range failures {
		fmt.Fprintf(out, "%s %s attempt %d  %s\n",
			color.RedString(render.IconFailed), f.NodeID, f.Attempt,
			render.MutedStyle.Render(f.Timestamp.Format("2006-01-02 15:04:05")))
		fmt.Fprintf(out, "    approach: %s\n", f.Approach)
		fmt.Fprintf(out, "    error:    %s\n", f.Error)
		fmt.Fprintf(out, "    reason:   %s\n", f.Reason)
	}
}

// Output formats of get-context.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func newGetContextCmd(env *cliEnv) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "get-context <node-id>",
		Short: "Show a node with its failure history and test ledger",
		Long: `Print everything recorded about a node in one place: the node itself, its
failed attempts and its test criteria. Use --format json or yaml to feed it
to another tool.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json or yaml")

	cmd.RunE = withService(env, func(ctx context.Context, out io.Writer, args []string, svc *orchestrator.Service) error {
		nc, err := svc.QueryContext(ctx, args[0])
		if err != nil {
			return err
		}

		switch format {
		case formatJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(nc)
		case formatYAML:
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(nc); err != nil {
				return fmt.Errorf("encode yaml: %w", err)
			}
			return enc.Close()
		case formatText:
			printContext(out, nc)
			return nil
		default:
			return fmt.Errorf("unknown format %q (want %s, %s or %s)", format, formatText, formatJSON, formatYAML)
		}
	})
	return cmd
}

func printContext(out io.Writer, nc orchestrator.NodeContext) {
	n := nc.Node
	fmt.Fprintf(out, "%s %s\n", render.HeaderStyle.Render(n.ID), n.Goal)
	fmt.Fprintf(out, "Status:  %s\n", render.RenderStatus(n.Status))
	fmt.Fprintf(out, "Retries: %d/%d, %d left (%s)\n", n.RetryCount, nc.MaxRetries, nc.RetriesLeft, nc.Action)
	if n.Error != "" {
		fmt.Fprintf(out, "Error:   %s\n", n.Error)
	}
	if n.Hint != "" {
		fmt.Fprintf(out, "Hint:    %s\n", n.Hint)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, render.HeaderStyle.Render("Tests"))
	if len(nc.TestCriteria) == 0 {
		fmt.Fprintln(out, "  none")
	}
	for i, tc := range nc.TestCriteria {
		fmt.Fprintf(out, "  %d. %s %s\n", i+1, render.CriterionMark(tc), tc.Name)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, render.HeaderStyle.Render("Failures"))
	if len(nc.Failures) == 0 {
		fmt.Fprintln(out, "  none")
	}
	printFailures(out, nc.Failures)
}
