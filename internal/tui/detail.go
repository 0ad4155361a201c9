package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/recurse/internal/orchestrator"
	"github.com/ShayCichocki/recurse/internal/render"
	"github.com/ShayCichocki/recurse/pkg/models"
)

var (
	detailLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	detailValue = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	detailTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	detailError = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// renderDetail renders everything known about one node.
func renderDetail(n *models.Node, reg *models.Registry, failures *models.FailureLog, width int) string {
	if n == nil || reg == nil {
		return render.MutedStyle.Render("No node selected")
	}
	wrap := lipgloss.NewStyle().Width(max(width, 20))

	var b strings.Builder
	row := func(label, value string) {
		b.WriteString(detailLabel.Render(label))
		b.WriteString(detailValue.Render(value))
		b.WriteString("\n")
	}

	b.WriteString(detailTitle.Render(n.ID))
	b.WriteString("\n")
	b.WriteString(wrap.Render(n.Goal))
	b.WriteString("\n\n")

	row("Status", render.RenderStatus(n.Status))
	if parent := n.ParentID(); parent != "" {
		row("Parent", parent)
	}
	row("Depth", fmt.Sprintf("%d/%d", n.Depth, reg.Meta.MaxDepth))
	row("Retries", fmt.Sprintf("%d/%d (%d left)", n.RetryCount, reg.Meta.MaxRetries, orchestrator.RetriesLeft(n, reg.Meta)))
	if n.IsLeaf {
		row("Leaf", "yes")
	}
	if role := orchestrator.RoleFor(n.Status); role != orchestrator.RoleNone {
		row("Role", string(role))
	}
	if len(n.Children) > 0 {
		row("Children", strings.Join(n.Children, ", "))
	}
	if n.Error != "" {
		b.WriteString(detailLabel.Render("Error"))
		b.WriteString(detailError.Render(n.Error))
		b.WriteString("\n")
	}
	if n.Hint != "" {
		row("Hint", n.Hint)
	}
	if n.EscalationReason != "" {
		row("Escalated", n.EscalationReason)
	}

	if len(n.TestCriteria) > 0 {
		b.WriteString("\n")
		b.WriteString(render.HeaderStyle.Render("Tests"))
		b.WriteString("\n")
		for i, tc := range n.TestCriteria {
			line := fmt.Sprintf("  %d. %s %s", i+1, render.CriterionMark(tc), tc.Name)
			if tc.Reason != "" {
				line += render.MutedStyle.Render(" (" + tc.Reason + ")")
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if failures != nil {
		if history := failures.ForNode(n.ID); len(history) > 0 {
			b.WriteString("\n")
			b.WriteString(render.HeaderStyle.Render("Failures"))
			b.WriteString("\n")
			for _, f := range history {
				b.WriteString(wrap.Render(fmt.Sprintf("  #%d %s: %s", f.Attempt, f.Approach, f.Error)))
				b.WriteString("\n")
				if f.Reason != "" && f.Reason != orchestrator.NotApplicable {
					b.WriteString(render.MutedStyle.Render("     " + f.Reason))
					b.WriteString("\n")
				}
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(render.HeaderStyle.Render("Guidance"))
	b.WriteString("\n")
	b.WriteString(wrap.Render(orchestrator.Guidance(n, reg.Meta)))
	return b.String()
}
