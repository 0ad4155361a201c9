// Package orchestrator drives recursive problem decomposition over a
// persistent task tree.
//
// The orchestrator package provides:
//   - Decomposition: splitting a node into 2 to 5 ordered children
//   - Resolution: a pre-order depth-first walk that finds the next actionable node
//   - Completion cascade: promoting a decomposed parent once all children pass
//   - Retry bookkeeping: per-node error counters and an escalation signal
//   - Test ledgers: named pass/fail checks recorded against a node
//
// Every Service operation loads the registry, mutates a private copy and
// saves it only when the operation succeeds, so a rejected operation leaves
// the persisted documents untouched. The caller performs the actual work
// and reports back through status transitions.
//
// Example usage:
//
//	store := state.NewFileStore(".agent/recursive-refactor")
//	svc := orchestrator.NewService(store)
//	if _, err := svc.Init(ctx, "Build X", 5, 3, false); err != nil {
//		return err
//	}
//	res, err := svc.Decompose(ctx, models.RootID, []string{"API", "UI"})
package orchestrator
