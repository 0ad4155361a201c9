package orchestrator

import (
	"fmt"

	"github.com/ShayCichocki/recurse/pkg/models"
)

// setTests replaces the node's criteria with unset entries, one per name.
func setTests(node *models.Node, names []string) {
	criteria := make([]models.TestCriterion, 0, len(names))
	for _, name := range names {
		criteria = append(criteria, models.TestCriterion{Name: name})
	}
	node.TestCriteria = criteria
}

// recordResult sets the outcome of the index-th (1-based) criterion. An
// empty reason keeps the previous one.
func recordResult(node *models.Node, index int, passed bool, reason string) (models.TestCriterion, error) {
	if index < 1 || index > len(node.TestCriteria) {
		return models.TestCriterion{}, fmt.Errorf("%w: %d (node %s has %d criteria)", ErrInvalidIndex, index, node.ID, len(node.TestCriteria))
	}
	tc := &node.TestCriteria[index-1]
	tc.Passed = &passed
	if reason != "" {
		tc.Reason = reason
	}
	return *tc, nil
}

// LedgerSummary counts criteria by outcome.
type LedgerSummary struct {
	Total   int
	Passed  int
	Failed  int
	Pending int
}

// Summarize counts the node's criteria.
func Summarize(criteria []models.TestCriterion) LedgerSummary {
	s := LedgerSummary{Total: len(criteria)}
	for _, tc := range criteria {
		switch {
		case tc.Passed == nil:
			s.Pending++
		case *tc.Passed:
			s.Passed++
		default:
			s.Failed++
		}
	}
	return s
}
