package orchestrator

import "github.com/ShayCichocki/recurse/pkg/models"

// EscalationAction is the policy's recommendation for a node.
type EscalationAction string

const (
	// ActionNone means the node is not failed; no recommendation applies.
	ActionNone EscalationAction = "none"
	// ActionRetry means another attempt is within the retry budget.
	ActionRetry EscalationAction = "retry"
	// ActionEscalate means the retry budget is spent and a human should decide.
	ActionEscalate EscalationAction = "escalate"
)

// Recommend applies the retry policy to a node. The recommendation is
// advisory: nothing in the engine escalates automatically.
func Recommend(node *models.Node, meta models.Meta) EscalationAction {
	if node.Status != models.StatusFailed {
		return ActionNone
	}
	if node.RetryCount >= meta.MaxRetries {
		return ActionEscalate
	}
	return ActionRetry
}

// RetriesLeft returns how many error-bearing attempts remain before the
// policy recommends escalation. It never goes below zero.
func RetriesLeft(node *models.Node, meta models.Meta) int {
	if left := meta.MaxRetries - node.RetryCount; left > 0 {
		return left
	}
	return 0
}
