package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/recurse/internal/render"
	"github.com/ShayCichocki/recurse/pkg/models"
)

// TreePanel displays a scrollable node tree with status indicators.
// Decomposed nodes can be collapsed to hide their subtree.
type TreePanel struct {
	reg          *models.Registry
	keys         KeyMap
	selected     int
	scrollOffset int
	width        int
	height       int
	focused      bool
	collapsed    map[string]bool

	// Rendered lines for navigation
	visibleItems []visibleItem

	titleStyle    lipgloss.Style
	selectedStyle lipgloss.Style
	normalStyle   lipgloss.Style
	sectionStyle  lipgloss.Style
	childStyle    lipgloss.Style
}

// visibleItem is one selectable line.
type visibleItem struct {
	nodeID      string
	depth       int
	hasChildren bool
}

// NewTreePanel creates an empty panel.
func NewTreePanel(keys KeyMap) *TreePanel {
	return &TreePanel{
		keys:      keys,
		focused:   true,
		collapsed: make(map[string]bool),

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),

		selectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("15")).
			Bold(true),

		normalStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		sectionStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),

		childStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
	}
}

// SetRegistry replaces the displayed registry, keeping the selection on the
// same node id when it still exists.
func (p *TreePanel) SetRegistry(reg *models.Registry) {
	prev := p.SelectedID()
	first := p.reg == nil
	p.reg = reg
	p.buildVisibleItems()

	switch {
	case first:
		p.SelectCurrent()
	case prev != "" && p.selectID(prev):
	default:
		if p.selected >= len(p.visibleItems) {
			p.selected = len(p.visibleItems) - 1
		}
		if p.selected < 0 {
			p.selected = 0
		}
	}
}

// SetSize updates the panel dimensions.
func (p *TreePanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.ensureVisible()
}

// SetFocused sets whether this panel has keyboard focus.
func (p *TreePanel) SetFocused(focused bool) {
	p.focused = focused
}

// buildVisibleItems walks the tree in pre-order, skipping collapsed subtrees.
func (p *TreePanel) buildVisibleItems() {
	p.visibleItems = p.visibleItems[:0]
	if p.reg == nil {
		return
	}
	var visit func(id string, depth int)
	visit = func(id string, depth int) {
		n, ok := p.reg.Node(id)
		if !ok {
			return
		}
		p.visibleItems = append(p.visibleItems, visibleItem{
			nodeID:      id,
			depth:       depth,
			hasChildren: len(n.Children) > 0,
		})
		if p.collapsed[id] {
			return
		}
		for _, child := range n.Children {
			visit(child, depth+1)
		}
	}
	visit(models.RootID, 0)
}

// Update handles navigation keys.
func (p *TreePanel) Update(msg tea.Msg) (*TreePanel, tea.Cmd) {
	if !p.focused {
		return p, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch {
	case key.Matches(keyMsg, p.keys.Up):
		if p.selected > 0 {
			p.selected--
		}
	case key.Matches(keyMsg, p.keys.Down):
		if p.selected < len(p.visibleItems)-1 {
			p.selected++
		}
	case key.Matches(keyMsg, p.keys.Top):
		p.selected = 0
	case key.Matches(keyMsg, p.keys.Bottom):
		p.selected = max(len(p.visibleItems)-1, 0)
	case key.Matches(keyMsg, p.keys.Toggle):
		if p.selected >= 0 && p.selected < len(p.visibleItems) {
			item := p.visibleItems[p.selected]
			if item.hasChildren {
				p.collapsed[item.nodeID] = !p.collapsed[item.nodeID]
				p.buildVisibleItems()
			}
		}
	case key.Matches(keyMsg, p.keys.Current):
		p.SelectCurrent()
	}
	p.ensureVisible()
	return p, nil
}

// SelectCurrent moves the selection to the registry's current node,
// expanding collapsed ancestors.
func (p *TreePanel) SelectCurrent() {
	if p.reg == nil {
		return
	}
	for id := p.reg.CurrentNode; ; {
		n, ok := p.reg.Node(id)
		if !ok || n.Parent == nil {
			break
		}
		id = n.ParentID()
		delete(p.collapsed, id)
	}
	p.buildVisibleItems()
	p.selectID(p.reg.CurrentNode)
	p.ensureVisible()
}

func (p *TreePanel) selectID(id string) bool {
	for i, item := range p.visibleItems {
		if item.nodeID == id {
			p.selected = i
			return true
		}
	}
	return false
}

// rows is the number of tree lines that fit in the panel.
func (p *TreePanel) rows() int {
	// title, section header and borders
	return max(p.height-4, 1)
}

// ensureVisible adjusts scroll offset to keep selected item visible.
func (p *TreePanel) ensureVisible() {
	visibleRows := p.rows()
	if p.selected < p.scrollOffset {
		p.scrollOffset = p.selected
	} else if p.selected >= p.scrollOffset+visibleRows {
		p.scrollOffset = p.selected - visibleRows + 1
	}
}

// View renders the tree panel.
func (p *TreePanel) View() string {
	var b strings.Builder

	title := "Tree"
	if p.focused {
		title = "[Tree]"
	}
	b.WriteString(p.titleStyle.Render(title))
	b.WriteString("\n")

	if p.reg == nil || len(p.visibleItems) == 0 {
		b.WriteString(p.normalStyle.Render("  No registry"))
	} else {
		passed := p.reg.CountByStatus(models.StatusPassed)
		b.WriteString(p.sectionStyle.Render(fmt.Sprintf(" %d/%d passed", passed, p.reg.Nodes.Len())))
		b.WriteString("\n")

		end := min(p.scrollOffset+p.rows(), len(p.visibleItems))
		for i := p.scrollOffset; i < end; i++ {
			b.WriteString(p.renderLine(p.visibleItems[i], i == p.selected))
			if i < end-1 {
				b.WriteString("\n")
			}
		}
	}

	borderColor := lipgloss.Color("240")
	if p.focused {
		borderColor = lipgloss.Color("63")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Width(max(p.width-2, 0)).
		Height(max(p.height-2, 0)).
		Render(b.String())
}

func (p *TreePanel) renderLine(item visibleItem, selected bool) string {
	n, ok := p.reg.Node(item.nodeID)
	if !ok {
		return ""
	}

	fold := " "
	if item.hasChildren {
		fold = "▼"
		if p.collapsed[item.nodeID] {
			fold = "▶"
		}
	}

	id := n.ID
	if n.IsLeaf {
		id += " [L]"
	}
	if n.ID == p.reg.CurrentNode {
		id += " ◀"
	}

	// indent, fold, icon, id and padding
	maxGoal := max(p.width-len(id)-item.depth*2-10, 10)
	line := fmt.Sprintf(" %s%s %s %s %s",
		strings.Repeat(render.TreeIndent, item.depth),
		p.childStyle.Render(fold),
		render.StatusStyle(n.Status).Render(render.StatusIcon(n.Status)),
		id,
		p.childStyle.Render(render.Truncate(n.Goal, maxGoal)),
	)

	if selected {
		return p.selectedStyle.Render(line)
	}
	return p.normalStyle.Render(line)
}

// SelectedID returns the selected node id, or "" if none.
func (p *TreePanel) SelectedID() string {
	if p.selected < 0 || p.selected >= len(p.visibleItems) {
		return ""
	}
	return p.visibleItems[p.selected].nodeID
}

// SelectedNode returns the selected node, or nil if none.
func (p *TreePanel) SelectedNode() *models.Node {
	if p.reg == nil {
		return nil
	}
	n, ok := p.reg.Node(p.SelectedID())
	if !ok {
		return nil
	}
	return n
}

// VisibleCount returns the number of lines currently shown.
func (p *TreePanel) VisibleCount() int {
	return len(p.visibleItems)
}
