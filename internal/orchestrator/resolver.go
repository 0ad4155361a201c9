package orchestrator

import "github.com/ShayCichocki/recurse/pkg/models"

// FindNext returns the first actionable node in pre-order from the root,
// visiting children in their recorded order. It returns nil when no node is
// actionable.
func FindNext(reg *models.Registry) *models.Node {
	return findFrom(reg, models.RootID)
}

func findFrom(reg *models.Registry, id string) *models.Node {
	node, ok := reg.Node(id)
	if !ok {
		return nil
	}
	if node.Status.Actionable() {
		return node
	}
	if node.Status != models.StatusDecomposed {
		return nil
	}
	for _, child := range node.Children {
		if found := findFrom(reg, child); found != nil {
			return found
		}
	}
	return nil
}

// Outcome classifies the tree when nothing is actionable.
type Outcome string

const (
	// OutcomeActionable means a node was found.
	OutcomeActionable Outcome = "actionable"
	// OutcomeComplete means the root has passed.
	OutcomeComplete Outcome = "complete"
	// OutcomeStuck means nothing is actionable but the root has not passed.
	OutcomeStuck Outcome = "stuck"
)

func classify(reg *models.Registry, next *models.Node) Outcome {
	if next != nil {
		return OutcomeActionable
	}
	if root, ok := reg.Root(); ok && root.Status == models.StatusPassed {
		return OutcomeComplete
	}
	return OutcomeStuck
}
