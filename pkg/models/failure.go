package models

import "time"

// Failure records one failed attempt at a node. Entries are append-only.
type Failure struct {
	NodeID    string    `json:"node_id" yaml:"node_id"`
	Attempt   int       `json:"attempt" yaml:"attempt"`
	Approach  string    `json:"approach" yaml:"approach"`
	Error     string    `json:"error" yaml:"error"`
	Reason    string    `json:"reason" yaml:"reason"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// FailureLog is the flat failure history across all nodes.
type FailureLog struct {
	Failures []Failure `json:"failures" yaml:"failures"`
}

// NewFailureLog returns an empty log.
func NewFailureLog() *FailureLog {
	return &FailureLog{Failures: []Failure{}}
}

// ForNode returns the entries for one node in logging order.
// An empty nodeID returns every entry.
func (l *FailureLog) ForNode(nodeID string) []Failure {
	if nodeID == "" {
		return append([]Failure{}, l.Failures...)
	}
	var out []Failure
	for _, f := range l.Failures {
		if f.NodeID == nodeID {
			out = append(out, f)
		}
	}
	return out
}
