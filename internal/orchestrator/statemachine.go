package orchestrator

import "github.com/ShayCichocki/recurse/pkg/models"

// UpdateTargets are the statuses reachable through UpdateStatus. The
// structural statuses (decomposed, fast-track) have dedicated operations.
var UpdateTargets = []models.Status{
	models.StatusPending,
	models.StatusExecuting,
	models.StatusTesting,
	models.StatusPassed,
	models.StatusFailed,
	models.StatusEscalated,
}

// transitions lists the legal generic update moves per source status.
var transitions = func() map[models.Status]map[models.Status]bool {
	open := set(UpdateTargets...)
	return map[models.Status]map[models.Status]bool{
		models.StatusPending:    open,
		models.StatusExecuting:  open,
		models.StatusFastTrack:  open,
		models.StatusTesting:    open,
		models.StatusFailed:     open,
		models.StatusEscalated:  set(models.StatusPending, models.StatusExecuting, models.StatusPassed, models.StatusEscalated),
		models.StatusPassed:     set(models.StatusPassed),
		models.StatusDecomposed: {},
	}
}()

func set(statuses ...models.Status) map[models.Status]bool {
	m := make(map[models.Status]bool, len(statuses))
	for _, s := range statuses {
		m[s] = true
	}
	return m
}

// IsUpdateTarget reports whether s may be requested through UpdateStatus.
func IsUpdateTarget(s models.Status) bool {
	for _, t := range UpdateTargets {
		if t == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether a generic update may move a node from one
// status to another.
func CanTransition(from, to models.Status) bool {
	return transitions[from][to]
}

// canForce reports whether a forced update may move node. Nodes that own
// children (decomposed, or passed through the cascade) stay put.
func canForce(node *models.Node) bool {
	return node.Status != models.StatusDecomposed && len(node.Children) == 0
}

// canRestructure reports whether decompose or fast-track may start from s.
func canRestructure(s models.Status) bool {
	return s == models.StatusPending || s == models.StatusFailed
}
