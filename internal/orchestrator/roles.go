package orchestrator

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/recurse/pkg/models"
)

// Role names the kind of work a caller does on a node in a given status.
type Role string

const (
	RolePlanner  Role = "Planner"
	RoleExecutor Role = "Executor"
	RoleTester   Role = "Tester"
	RoleAnalyzer Role = "Analyzer"
	RoleNone     Role = ""
)

// RoleFor returns the role associated with a status.
func RoleFor(s models.Status) Role {
	switch s {
	case models.StatusPending:
		return RolePlanner
	case models.StatusExecuting, models.StatusFastTrack:
		return RoleExecutor
	case models.StatusTesting:
		return RoleTester
	case models.StatusFailed:
		return RoleAnalyzer
	default:
		return RoleNone
	}
}

// Guidance returns the suggested next commands for a node.
func Guidance(node *models.Node, meta models.Meta) string {
	id := node.ID
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	switch node.Status {
	case models.StatusPending:
		line("PENDING: analyze the goal, define tests, then choose how to proceed")
		line("  1. Define success criteria:")
		line("     recurse set-tests %s \"builds\" \"API returns 200\" ...", id)
		line("  2. Choose an approach:")
		line("     simple:  recurse fast %s", id)
		line("     complex: recurse update %s --status executing --leaf", id)
		line("     split:   recurse decompose %s \"goal 1\" \"goal 2\" ...", id)
	case models.StatusFastTrack:
		line("FAST TRACK: implement and verify in one step")
		line("  passed: recurse update %s --status passed", id)
		line("  failed: recurse update %s --status failed --error \"<message>\"", id)
	case models.StatusExecuting:
		line("EXECUTING: implement the goal")
		line("  when done: recurse update %s --status testing", id)
	case models.StatusTesting:
		line("TESTING: run every criterion and record the results")
		line("  list:   recurse get-tests %s", id)
		line("  record: recurse test-result %s 1 pass", id)
		line("          recurse test-result %s 2 fail --reason \"<error>\"", id)
		line("  all passed: recurse update %s --status passed", id)
		line("  any failed: recurse update %s --status failed", id)
	case models.StatusFailed:
		line("FAILED: analyze before the next attempt (retry %d/%d)", node.RetryCount, meta.MaxRetries)
		line("  history: recurse get-failures %s", id)
		line("  record:  recurse log-failure %s --approach \"...\" --error \"...\" --reason \"...\"", id)
		if Recommend(node, meta) == ActionEscalate {
			line("  retry limit reached, escalation recommended:")
			line("     recurse update %s --status escalated --reason \"<why>\"", id)
		} else {
			line("  retry:     recurse update %s --status executing --hint \"<fix>\"", id)
			line("  split:     recurse decompose %s \"part 1\" \"part 2\" ...", id)
			line("  give up:   recurse update %s --status escalated --reason \"<why>\"", id)
		}
	case models.StatusPassed:
		line("PASSED: move on with recurse next")
		if canForce(node) {
			line("  reopen: recurse update %s --status failed --error \"<regression>\" --force", id)
		}
	case models.StatusEscalated:
		reason := node.EscalationReason
		if reason == "" {
			reason = "N/A"
		}
		line("ESCALATED: needs a human decision")
		line("  reason: %s", reason)
	case models.StatusDecomposed:
		line("DECOMPOSED: continue with the first child via recurse next")
	}
	return strings.TrimRight(b.String(), "\n")
}
