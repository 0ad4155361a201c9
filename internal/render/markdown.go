package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ShayCichocki/recurse/internal/orchestrator"
	"github.com/ShayCichocki/recurse/internal/state"
	"github.com/ShayCichocki/recurse/pkg/models"
)

const markdownGoalWidth = 40

// RenderMarkdown renders the registry as a markdown document: a summary of
// the current node, the tree and per-node details in creation order.
func RenderMarkdown(reg *models.Registry) string {
	var b strings.Builder
	w := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	w("# Task Registry")
	w("")
	w("**Goal**: %s", reg.Meta.Goal)
	w("**Created**: %s", reg.CreatedAt.Format("2006-01-02"))
	w("**Updated**: %s", reg.UpdatedAt.Format("2006-01-02"))
	w("")
	w("---")
	w("")
	w("## Current")
	w("")
	w("- **Node**: `%s`", reg.CurrentNode)
	if cur, ok := reg.Current(); ok {
		w("- **Status**: %s %s", StatusIcon(cur.Status), cur.Status)
		if role := orchestrator.RoleFor(cur.Status); role != orchestrator.RoleNone {
			w("- **Role**: %s", role)
		}
	}
	w("")
	w("---")
	w("")
	w("## Tree")
	w("")
	walk(reg, models.RootID, 0, func(n *models.Node, depth int) {
		prefix := strings.Repeat(TreeIndent, depth)
		if depth > 0 {
			prefix += TreeBranch
		}
		var markers []string
		if n.IsLeaf {
			markers = append(markers, "[LEAF]")
		}
		if n.ID == reg.CurrentNode {
			markers = append(markers, "◀ CURRENT")
		}
		if n.RetryCount > 0 {
			markers = append(markers, fmt.Sprintf("(retry %d)", n.RetryCount))
		}
		line := fmt.Sprintf("%s%s **%s**: %s", prefix, StatusIcon(n.Status), n.ID, Truncate(n.Goal, markdownGoalWidth))
		if len(markers) > 0 {
			line += " " + strings.Join(markers, " ")
		}
		w("%s", line)
	})
	w("")
	w("---")
	w("")
	w("## Nodes")
	w("")
	for _, n := range reg.Nodes.All() {
		w("### %s", n.ID)
		w("- **Goal**: %s", n.Goal)
		w("- **Status**: %s %s", StatusIcon(n.Status), n.Status)
		w("- **Depth**: %d", n.Depth)
		if n.IsLeaf {
			w("- **Leaf**: yes")
		}
		if n.Parent != nil {
			w("- **Parent**: %s", n.ParentID())
		}
		if len(n.Children) > 0 {
			w("- **Children**: %s", strings.Join(n.Children, ", "))
		}
		if n.RetryCount > 0 {
			w("- **Retries**: %d", n.RetryCount)
		}
		if n.Error != "" {
			w("- **Error**: %s", Truncate(n.Error, 80))
		}
		if n.Hint != "" {
			w("- **Hint**: %s", n.Hint)
		}
		if n.EscalationReason != "" {
			w("- **Escalation**: %s", n.EscalationReason)
		}
		if len(n.TestCriteria) > 0 {
			w("- **Tests**:")
			for i, tc := range n.TestCriteria {
				w("  %d. %s %s", i+1, CriterionMark(tc), tc.Name)
			}
		}
		w("")
	}
	return b.String()
}

// walk visits nodes in pre-order from id, following children order.
func walk(reg *models.Registry, id string, depth int, fn func(n *models.Node, depth int)) {
	n, ok := reg.Node(id)
	if !ok {
		return
	}
	fn(n, depth)
	for _, child := range n.Children {
		walk(reg, child, depth+1, fn)
	}
}

// MarkdownProjector rewrites a markdown file after every registry save.
type MarkdownProjector struct {
	Path string
}

// NewMarkdownProjector writes task_registry.md inside stateDir.
func NewMarkdownProjector(stateDir string) *MarkdownProjector {
	return &MarkdownProjector{Path: filepath.Join(stateDir, state.MarkdownFile)}
}

// Project writes the rendering.
func (p *MarkdownProjector) Project(reg *models.Registry) error {
	if err := os.WriteFile(p.Path, []byte(RenderMarkdown(reg)), 0o644); err != nil {
		return fmt.Errorf("write markdown projection: %w", err)
	}
	return nil
}
