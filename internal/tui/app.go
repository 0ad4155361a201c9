package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/recurse/internal/render"
	"github.com/ShayCichocki/recurse/internal/state"
	"github.com/ShayCichocki/recurse/pkg/models"
)

// Source is the read side of a store.
type Source interface {
	LoadRegistry(ctx context.Context) (*models.Registry, error)
	LoadFailures(ctx context.Context) (*models.FailureLog, error)
}

// snapshotMsg carries a fresh read of both documents.
type snapshotMsg struct {
	reg      *models.Registry
	failures *models.FailureLog
	err      error
}

// changedMsg is sent when the watcher reports a change on disk.
type changedMsg struct{}

// watchClosedMsg is sent once the change channel is closed.
type watchClosedMsg struct{}

// App is the bubbletea model of the registry browser.
type App struct {
	source  Source
	changes <-chan struct{}

	keys   KeyMap
	help   help.Model
	tree   *TreePanel
	detail viewport.Model
	// detailFocused routes navigation keys to the detail pane.
	detailFocused bool

	reg      *models.Registry
	failures *models.FailureLog
	err      error
	watching bool

	width  int
	height int
}

// NewApp creates the browser. changes may be nil to disable live reload.
func NewApp(source Source, changes <-chan struct{}) *App {
	keys := DefaultKeyMap()
	return &App{
		source:   source,
		changes:  changes,
		keys:     keys,
		help:     help.New(),
		tree:     NewTreePanel(keys),
		detail:   viewport.New(0, 0),
		watching: changes != nil,
	}
}

// Init loads the registry and starts listening for changes.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.load(),
		a.waitForChange(),
		tea.SetWindowTitle("recurse"),
	)
}

func (a *App) load() tea.Cmd {
	source := a.source
	return func() tea.Msg {
		ctx := context.Background()
		reg, err := source.LoadRegistry(ctx)
		if err != nil {
			return snapshotMsg{err: err}
		}
		failures, err := source.LoadFailures(ctx)
		if err != nil {
			return snapshotMsg{err: err}
		}
		return snapshotMsg{reg: reg, failures: failures}
	}
}

func (a *App) waitForChange() tea.Cmd {
	if a.changes == nil {
		return nil
	}
	changes := a.changes
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return watchClosedMsg{}
		}
		return changedMsg{}
	}
}

// Update handles messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.Help):
			a.help.ShowAll = !a.help.ShowAll
			a.layout()
			return a, nil
		case key.Matches(msg, a.keys.Reload):
			return a, a.load()
		case key.Matches(msg, a.keys.PageUp):
			a.detail.HalfViewUp()
			return a, nil
		case key.Matches(msg, a.keys.PageDown):
			a.detail.HalfViewDown()
			return a, nil
		case key.Matches(msg, a.keys.Focus):
			a.detailFocused = !a.detailFocused
			a.tree.SetFocused(!a.detailFocused)
			return a, nil
		}
		if a.detailFocused {
			a.scrollDetail(msg)
			return a, nil
		}
		before := a.tree.SelectedID()
		a.tree, _ = a.tree.Update(msg)
		if a.tree.SelectedID() != before {
			a.refreshDetail(true)
		}

	case snapshotMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		a.reg = msg.reg
		a.failures = msg.failures
		a.tree.SetRegistry(msg.reg)
		a.refreshDetail(false)

	case changedMsg:
		return a, tea.Batch(a.load(), a.waitForChange())

	case watchClosedMsg:
		a.watching = false
	}
	return a, nil
}

// layout splits the screen: tree on the left, detail on the right and the
// help line at the bottom.
func (a *App) layout() {
	helpHeight := lipgloss.Height(a.help.View(a.keys))
	bodyHeight := max(a.height-helpHeight-1, 3)
	treeWidth := a.width * 2 / 5

	a.tree.SetSize(treeWidth, bodyHeight)
	a.detail.Width = max(a.width-treeWidth-4, 10)
	a.detail.Height = max(bodyHeight-2, 1)
	a.refreshDetail(false)
}

// scrollDetail applies navigation keys to the detail pane.
func (a *App) scrollDetail(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, a.keys.Up):
		a.detail.LineUp(1)
	case key.Matches(msg, a.keys.Down):
		a.detail.LineDown(1)
	case key.Matches(msg, a.keys.Top):
		a.detail.GotoTop()
	case key.Matches(msg, a.keys.Bottom):
		a.detail.GotoBottom()
	}
}

func (a *App) refreshDetail(reset bool) {
	a.detail.SetContent(renderDetail(a.tree.SelectedNode(), a.reg, a.failures, a.detail.Width))
	if reset {
		a.detail.GotoTop()
	}
}

// View renders the browser.
func (a *App) View() string {
	if a.reg == nil {
		switch {
		case errors.Is(a.err, state.ErrNotInitialized):
			return render.MutedStyle.Render("No registry found. Run 'recurse init <goal>' first.") + "\n"
		case a.err != nil:
			return render.StatusStyle(models.StatusFailed).Render(fmt.Sprintf("Error: %v", a.err)) + "\n"
		default:
			return render.MutedStyle.Render("Loading...") + "\n"
		}
	}

	detailBorder := lipgloss.Color("240")
	if a.detailFocused {
		detailBorder = lipgloss.Color("63")
	}
	detailBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(detailBorder).
		Render(a.detail.View())

	status := render.HeaderStyle.Render(render.Truncate(a.reg.Meta.Goal, max(a.width-20, 10)))
	if a.err != nil {
		status += "  " + render.StatusStyle(models.StatusFailed).Render(a.err.Error())
	} else if a.watching {
		status += "  " + render.MutedStyle.Render("(live)")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		status,
		lipgloss.JoinHorizontal(lipgloss.Top, a.tree.View(), detailBox),
		a.help.View(a.keys),
	)
}
