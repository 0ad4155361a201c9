// Package tui provides the read-only terminal browser for a task registry.
//
// The left panel shows the node tree in depth-first order with status icons,
// the right panel shows the selected node: goal, status, role guidance, test
// ledger and logged failures. The view reloads whenever the registry or the
// failure log changes on disk.
//
// Usage:
//
//	watcher, _ := state.Watch(ctx, dir, cfg.TUI.RefreshRate)
//	app := tui.NewApp(store, watcher.Changes())
//	_, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
//
// Nothing in this package writes to the store. Users quit with 'q' or Ctrl+C.
package tui
