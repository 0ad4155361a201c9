package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/recurse/internal/orchestrator"
	"github.com/ShayCichocki/recurse/internal/render"
)

func newSetTestsCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "set-tests <node-id> <name>...",
		Short: "Define the test criteria of a node",
		Long: `Replace the node's test criteria with the given names, all unrecorded.

Example:
  recurse set-tests NODE-1-2 "empty input returns nil" "nested lists round-trip"`,
		Args: cobra.MinimumNArgs(2),
		RunE: withService(env, func(ctx context.Context, out io.Writer, args []string, svc *orchestrator.Service) error {
			node, err := svc.SetTests(ctx, args[0], args[1:])
			if err != nil {
				return err
			}
			printStatus(out, "✓", fmt.Sprintf("Set %d test criteria on %s", len(node.TestCriteria), node.ID), color.FgGreen)
			return nil
		}),
	}
}

func newGetTestsCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "get-tests <node-id>",
		Short: "List the test criteria of a node",
		Args:  cobra.ExactArgs(1),
		RunE: withService(env, func(ctx context.Context, out io.Writer, args []string, svc *orchestrator.Service) error {
			criteria, err := svc.GetTests(ctx, args[0])
			if err != nil {
				return err
			}
			if len(criteria) == 0 {
				fmt.Fprintf(out, "No test criteria on %s.\n", args[0])
				return nil
			}
			for i, tc := range criteria {
				line := fmt.Sprintf("%d. %s %s", i+1, render.CriterionMark(tc), tc.Name)
				if tc.Reason != "" {
					line += render.MutedStyle.Render(" (" + tc.Reason + ")")
				}
				fmt.Fprintln(out, line)
			}
			sum := orchestrator.Summarize(criteria)
			fmt.Fprintf(out, "%d/%d passed, %d failed, %d pending\n", sum.Passed, sum.Total, sum.Failed, sum.Pending)
			return nil
		}),
	}
}

func newTestResultCmd(env *cliEnv) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "test-result <node-id> <index> <pass|fail> [reason]",
		Short: "Record the outcome of one test criterion",
		Long: `Record whether a criterion passed. The index is 1-based, as printed by
get-tests. The reason may be given as a trailing argument or with --reason.

Example:
  recurse test-result NODE-1-2 2 fail --reason "off by one on the last element"`,
		Args: cobra.RangeArgs(3, 4),
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why the criterion failed")

	cmd.RunE = withService(env, func(ctx context.Context, out io.Writer, args []string, svc *orchestrator.Service) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", orchestrator.ErrInvalidIndex, args[1])
		}
		passed, err := parseOutcome(args[2])
		if err != nil {
			return err
		}
		if len(args) == 4 {
			if reason != "" {
				return fmt.Errorf("reason given twice: %q and --reason %q", args[3], reason)
			}
			reason = args[3]
		}

		tc, err := svc.RecordTestResult(ctx, args[0], index, passed, reason)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %d. %s\n", render.CriterionMark(tc), index, tc.Name)
		return nil
	})
	return cmd
}

func parseOutcome(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "pass", "passed", "true", "ok":
		return true, nil
	case "fail", "failed", "false":
		return false, nil
	default:
		return false, fmt.Errorf("outcome must be pass or fail, got %q", s)
	}
}
