package orchestrator

import (
	"fmt"

	"github.com/ShayCichocki/recurse/pkg/models"
)

// Child count bounds for a single decomposition.
const (
	MinChildren = 2
	MaxChildren = 5
)

// DecomposeResult reports what a decompose request did.
type DecomposeResult struct {
	// NodeID is the node that was decomposed or redirected.
	NodeID string
	// Children holds the created child IDs in order. Empty on redirect.
	Children []string
	// Dropped lists goals beyond MaxChildren that were not turned into nodes.
	Dropped []string
	// Redirect is ErrDepthCeilingReached when the node was at the depth
	// ceiling and was converted to an executing leaf instead.
	Redirect error
	// Current is the registry's current node after the operation.
	Current string
}

// Redirected reports whether the request hit the depth ceiling.
func (r DecomposeResult) Redirected() bool {
	return r.Redirect != nil
}

// ChildID returns the identifier of the index-th (1-based) child of parentID.
func ChildID(parentID string, index int) string {
	if parentID == models.RootID {
		return fmt.Sprintf("NODE-%d", index)
	}
	return fmt.Sprintf("%s-%d", parentID, index)
}

// decompose splits nodeID into one pending child per goal. Checks run in a
// fixed order: existence, status, depth ceiling, goal count.
func decompose(reg *models.Registry, nodeID string, goals []string) (DecomposeResult, error) {
	node, ok := reg.Node(nodeID)
	if !ok {
		return DecomposeResult{}, nodeNotFound(nodeID)
	}
	if !canRestructure(node.Status) {
		return DecomposeResult{}, &TransitionError{NodeID: nodeID, Op: "decompose", From: node.Status}
	}

	if node.Depth >= reg.Meta.MaxDepth {
		node.IsLeaf = true
		node.Status = models.StatusExecuting
		debugLog("[decompose] %s at depth %d >= max %d, redirected to executing", nodeID, node.Depth, reg.Meta.MaxDepth)
		return DecomposeResult{
			NodeID:   nodeID,
			Redirect: ErrDepthCeilingReached,
			Current:  reg.CurrentNode,
		}, nil
	}

	if len(goals) < MinChildren {
		return DecomposeResult{}, fmt.Errorf("%w: need at least %d goals, got %d", ErrInvalidGoalCount, MinChildren, len(goals))
	}

	var dropped []string
	if len(goals) > MaxChildren {
		dropped = append([]string{}, goals[MaxChildren:]...)
		goals = goals[:MaxChildren]
		debugLog("[decompose] %s: dropped %d goals beyond %d", nodeID, len(dropped), MaxChildren)
	}

	parentID := node.ID
	children := make([]string, 0, len(goals))
	for i, goal := range goals {
		id := ChildID(parentID, i+1)
		reg.Nodes.Add(models.NewNode(id, goal, &parentID, node.Depth+1))
		children = append(children, id)
	}

	node.Children = children
	node.Status = models.StatusDecomposed
	node.IsLeaf = false
	reg.CurrentNode = children[0]

	return DecomposeResult{
		NodeID:   nodeID,
		Children: append([]string{}, children...),
		Dropped:  dropped,
		Current:  reg.CurrentNode,
	}, nil
}

// enterFastTrack commits a node to combined implementation and verification.
func enterFastTrack(reg *models.Registry, nodeID string) (*models.Node, error) {
	node, ok := reg.Node(nodeID)
	if !ok {
		return nil, nodeNotFound(nodeID)
	}
	if !canRestructure(node.Status) {
		return nil, &TransitionError{NodeID: nodeID, Op: "fast-track", From: node.Status}
	}
	node.IsLeaf = true
	node.FastTrack = true
	node.Status = models.StatusFastTrack
	return node, nil
}
