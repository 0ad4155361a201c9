package orchestrator

import "github.com/ShayCichocki/recurse/pkg/models"

// cascade promotes decomposed ancestors of id whose children have all
// passed. It stops at the root or at the first ancestor that is not
// satisfied, and returns the promoted ids bottom-up.
func cascade(reg *models.Registry, id string) []string {
	var promoted []string
	for {
		node, ok := reg.Node(id)
		if !ok || node.Parent == nil {
			return promoted
		}
		parent, ok := reg.Node(node.ParentID())
		if !ok || parent.Status != models.StatusDecomposed || !allPassed(reg, parent.Children) {
			return promoted
		}
		parent.Status = models.StatusPassed
		promoted = append(promoted, parent.ID)
		debugLog("[cascade] %s promoted to passed", parent.ID)
		id = parent.ID
	}
}

func allPassed(reg *models.Registry, ids []string) bool {
	for _, id := range ids {
		child, ok := reg.Node(id)
		if !ok || child.Status != models.StatusPassed {
			return false
		}
	}
	return true
}
