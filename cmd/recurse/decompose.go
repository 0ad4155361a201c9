package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/recurse/internal/orchestrator"
)

func newDecomposeCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "decompose <node-id> <goal>...",
		Short: "Split a node into 2-5 sub-goals",
		Long: `Split a pending or failed node into one child per goal. Children are named
<node-id>-1, <node-id>-2, ... (NODE-1, NODE-2, ... under ROOT) and the first
child becomes the current node.

At least 2 goals are required. Goals beyond the fifth are dropped with a
warning. A node already at the maximum depth is not split: it is marked as a
leaf and moved to executing instead.

Examples:
  recurse decompose ROOT "Parse input" "Transform AST" "Emit output"
  recurse decompose NODE-2 "Handle empty files" "Handle unicode"`,
		Args: cobra.MinimumNArgs(1),
		RunE: withService(env, func(ctx context.Context, out io.Writer, args []string, svc *orchestrator.Service) error {
			nodeID, goals := args[0], args[1:]

			result, err := svc.Decompose(ctx, nodeID, goals)
			if err != nil {
				return err
			}

			if result.Redirected() {
				printStatus(out, "⚠", fmt.Sprintf("%s is at the maximum depth: marked as leaf and moved to executing", nodeID), color.FgYellow)
				fmt.Fprintf(out, "Implement it directly, then run 'recurse update %s --status testing'.\n", nodeID)
				return nil
			}

			printStatus(out, "✓", fmt.Sprintf("Decomposed %s into %d children", nodeID, len(result.Children)), color.FgGreen)
			for i, id := range result.Children {
				fmt.Fprintf(out, "  %s: %s\n", id, goals[i])
			}
			if len(result.Dropped) > 0 {
				printStatus(out, "⚠", fmt.Sprintf("Dropped %d goal(s) beyond the limit of %d: %s",
					len(result.Dropped), orchestrator.MaxChildren, strings.Join(result.Dropped, "; ")), color.FgYellow)
			}
			fmt.Fprintf(out, "Current: %s\n", result.Current)
			return nil
		}),
	}
}

func newFastCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "fast <node-id>",
		Short: "Implement and verify a node in one step",
		Long: `Move a pending or failed node to fast-track: it is a leaf small enough to
implement and verify at once, skipping further decomposition.`,
		Args: cobra.ExactArgs(1),
		RunE: withService(env, func(ctx context.Context, out io.Writer, args []string, svc *orchestrator.Service) error {
			node, err := svc.EnterFastTrack(ctx, args[0])
			if err != nil {
				return err
			}
			printStatus(out, "✓", fmt.Sprintf("%s is on the fast track", node.ID), color.FgGreen)
			fmt.Fprintf(out, "Implement and verify it, then run 'recurse update %s --status passed --advance'.\n", node.ID)
			return nil
		}),
	}
}
