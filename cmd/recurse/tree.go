package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/recurse/internal/orchestrator"
	"github.com/ShayCichocki/recurse/internal/render"
)

func newTreeCmd(env *cliEnv) *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the task tree",
		Long: `Print every node depth-first with its status icon. [L] marks leaves and
◀ the current node.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print the markdown rendering instead")

	cmd.RunE = withService(env, func(ctx context.Context, out io.Writer, args []string, svc *orchestrator.Service) error {
		reg, err := svc.Registry(ctx)
		if err != nil {
			return err
		}
		if markdown {
			fmt.Fprint(out, render.RenderMarkdown(reg))
			return nil
		}
		fmt.Fprint(out, render.RenderTree(reg))
		return nil
	})
	return cmd
}
