package models

// Status represents the lifecycle state of a node.
type Status string

const (
	// StatusPending indicates the node is awaiting a plan.
	StatusPending Status = "pending"
	// StatusDecomposed indicates the node was split into children and is
	// never executed directly again.
	StatusDecomposed Status = "decomposed"
	// StatusExecuting indicates direct implementation is in progress.
	StatusExecuting Status = "executing"
	// StatusFastTrack indicates implementation and verification happen as one step.
	StatusFastTrack Status = "fast-track"
	// StatusTesting indicates the node executed and is being verified.
	StatusTesting Status = "testing"
	// StatusPassed is terminal success.
	StatusPassed Status = "passed"
	// StatusFailed indicates an execution or verification attempt did not succeed.
	StatusFailed Status = "failed"
	// StatusEscalated is terminal until a human decides how to proceed.
	StatusEscalated Status = "escalated"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusDecomposed,
	StatusExecuting,
	StatusFastTrack,
	StatusTesting,
	StatusPassed,
	StatusFailed,
	StatusEscalated,
}

// Valid returns true if the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDecomposed, StatusExecuting, StatusFastTrack,
		StatusTesting, StatusPassed, StatusFailed, StatusEscalated:
		return true
	default:
		return false
	}
}

// Actionable reports whether the DFS resolver stops at a node in this status.
func (s Status) Actionable() bool {
	switch s {
	case StatusPending, StatusExecuting, StatusFastTrack, StatusTesting, StatusFailed:
		return true
	default:
		return false
	}
}

// TestCriterion is one named check in a node's test ledger.
type TestCriterion struct {
	// Name describes the check.
	Name string `json:"name" yaml:"name"`
	// Passed is nil until a result is recorded.
	Passed *bool `json:"passed" yaml:"passed"`
	// Reason optionally explains the result.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Node is one unit of work in the task tree.
type Node struct {
	// ID is assigned at creation and never reused.
	ID string `json:"id" yaml:"id"`
	// Goal describes what the node must accomplish.
	Goal string `json:"goal" yaml:"goal"`
	// Parent is the owning node's ID, nil for the root.
	Parent *string `json:"parent" yaml:"parent"`
	// Children lists child IDs in DFS visitation order.
	Children []string `json:"children" yaml:"children"`
	// Depth is the distance from the root.
	Depth int `json:"depth" yaml:"depth"`
	// Status is the current lifecycle state.
	Status Status `json:"status" yaml:"status"`
	// IsLeaf marks a node committed to direct execution.
	IsLeaf bool `json:"is_leaf" yaml:"is_leaf"`
	// RetryCount counts error-bearing transitions.
	RetryCount int `json:"retry_count" yaml:"retry_count"`
	// TestCriteria is the node's test ledger.
	TestCriteria []TestCriterion `json:"test_criteria" yaml:"test_criteria"`
	// Error is the last recorded error message.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
	// Hint is guidance for the next attempt.
	Hint string `json:"hint,omitempty" yaml:"hint,omitempty"`
	// EscalationReason explains why the node was escalated.
	EscalationReason string `json:"escalation_reason,omitempty" yaml:"escalation_reason,omitempty"`
	// FastTrack marks nodes entered through the fast-track path.
	FastTrack bool `json:"fast_track,omitempty" yaml:"fast_track,omitempty"`
}

// NewNode returns a pending node with empty children and ledger.
func NewNode(id, goal string, parent *string, depth int) *Node {
	return &Node{
		ID:           id,
		Goal:         goal,
		Parent:       parent,
		Children:     []string{},
		Depth:        depth,
		Status:       StatusPending,
		TestCriteria: []TestCriterion{},
	}
}

// ParentID returns the parent ID or an empty string for the root.
func (n *Node) ParentID() string {
	if n.Parent == nil {
		return ""
	}
	return *n.Parent
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	if n.Parent != nil {
		p := *n.Parent
		c.Parent = &p
	}
	c.Children = append([]string{}, n.Children...)
	c.TestCriteria = make([]TestCriterion, len(n.TestCriteria))
	for i, tc := range n.TestCriteria {
		c.TestCriteria[i] = tc
		if tc.Passed != nil {
			v := *tc.Passed
			c.TestCriteria[i].Passed = &v
		}
	}
	return &c
}
