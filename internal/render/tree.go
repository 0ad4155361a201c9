package render

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/recurse/pkg/models"
)

// TreeGoalWidth is the goal length shown per line in the terminal tree.
const TreeGoalWidth = 35

// RenderTree renders the registry as an indented, colored tree. Each line
// shows the status icon, the id, [L] for leaves and ◀ for the current node.
func RenderTree(reg *models.Registry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", HeaderStyle.Render("Tree:"), Truncate(reg.Meta.Goal, 40))
	b.WriteString(MutedStyle.Render(Separator) + "\n")
	walk(reg, models.RootID, 0, func(n *models.Node, depth int) {
		b.WriteString(TreeLine(n, depth, n.ID == reg.CurrentNode))
		b.WriteString("\n")
	})
	b.WriteString(MutedStyle.Render(Separator) + "\n")
	return b.String()
}

// TreeLine renders one node at the given depth.
func TreeLine(n *models.Node, depth int, current bool) string {
	prefix := strings.Repeat(TreeIndent, depth)
	if depth > 0 {
		prefix += TreeBranch
	}
	id := n.ID
	if n.IsLeaf {
		id += " [L]"
	}
	if current {
		id += " ◀"
	}
	idStyled := id
	if current {
		idStyled = CurrentStyle.Render(id)
	}
	return fmt.Sprintf("%s%s %s: %s",
		MutedStyle.Render(prefix),
		StatusStyle(n.Status).Render(StatusIcon(n.Status)),
		idStyled,
		Truncate(n.Goal, TreeGoalWidth),
	)
}
