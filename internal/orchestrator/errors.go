package orchestrator

import (
	"errors"
	"fmt"

	"github.com/ShayCichocki/recurse/pkg/models"
)

var (
	// ErrNotInitialized is returned when an operation runs before init.
	ErrNotInitialized = errors.New("not initialized: run init first")
	// ErrAlreadyInitialized is returned by init when a registry exists and force is not set.
	ErrAlreadyInitialized = errors.New("already initialized: use --force to start over")
	// ErrNodeNotFound is returned when an operation names an unknown node.
	ErrNodeNotFound = errors.New("node not found")
	// ErrIllegalTransition is returned when a node's status does not permit the operation.
	ErrIllegalTransition = errors.New("illegal transition")
	// ErrInvalidGoalCount is returned when decompose gets fewer than MinChildren goals.
	ErrInvalidGoalCount = errors.New("invalid goal count")
	// ErrInvalidIndex is returned when a test result index is out of range.
	ErrInvalidIndex = errors.New("invalid test index")
	// ErrDepthCeilingReached marks a decompose request that was redirected to
	// direct execution. It is reported in DecomposeResult, not returned.
	ErrDepthCeilingReached = errors.New("depth ceiling reached")
	// ErrInvalidStatus is returned for a status outside the update vocabulary.
	ErrInvalidStatus = errors.New("invalid status")
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	NodeID string
	Op     string
	From   models.Status
	To     models.Status
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("%s: cannot %s node %s in status %s", ErrIllegalTransition, e.Op, e.NodeID, e.From)
	}
	return fmt.Sprintf("%s: node %s cannot move from %s to %s", ErrIllegalTransition, e.NodeID, e.From, e.To)
}

// Unwrap lets errors.Is match ErrIllegalTransition.
func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

func nodeNotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
}
