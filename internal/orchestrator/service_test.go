package orchestrator

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/recurse/internal/state"
	"github.com/ShayCichocki/recurse/pkg/models"
)

var fixedNow = time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *state.MemoryStore) {
	t.Helper()
	store := state.NewMemoryStore(state.WithClock(func() time.Time { return fixedNow }))
	return NewService(store, WithClock(func() time.Time { return fixedNow })), store
}

func initService(t *testing.T, maxDepth, maxRetries int) (*Service, *state.MemoryStore) {
	t.Helper()
	svc, store := newTestService(t)
	_, err := svc.Init(context.Background(), "Build X", maxDepth, maxRetries, false)
	require.NoError(t, err)
	return svc, store
}

func loadRegistry(t *testing.T, svc *Service) *models.Registry {
	t.Helper()
	reg, err := svc.Registry(context.Background())
	require.NoError(t, err)
	return reg
}

func nodeOf(t *testing.T, svc *Service, id string) *models.Node {
	t.Helper()
	n, ok := loadRegistry(t, svc).Node(id)
	require.True(t, ok, "node %s missing", id)
	return n
}

// assertWellFormed checks the structural invariants of a registry.
func assertWellFormed(t *testing.T, reg *models.Registry) {
	t.Helper()
	_, ok := reg.Node(reg.CurrentNode)
	assert.True(t, ok, "current_node %q does not exist", reg.CurrentNode)

	for _, n := range reg.Nodes.All() {
		if n.ID == models.RootID {
			assert.Nil(t, n.Parent, "root must have no parent")
			assert.Equal(t, 0, n.Depth)
		} else {
			require.NotNil(t, n.Parent, "node %s has no parent", n.ID)
			p, ok := reg.Node(*n.Parent)
			require.True(t, ok, "parent of %s missing", n.ID)
			assert.Contains(t, p.Children, n.ID)
			assert.Equal(t, p.Depth+1, n.Depth, "depth of %s", n.ID)
		}
		if n.Status == models.StatusDecomposed {
			assert.NotEmpty(t, n.Children, "decomposed node %s has no children", n.ID)
		}
		if len(n.Children) > 0 {
			assert.Contains(t, []models.Status{models.StatusDecomposed, models.StatusPassed}, n.Status,
				"node %s has children but status %s", n.ID, n.Status)
			assert.False(t, n.IsLeaf, "node %s has children but is a leaf", n.ID)
		}
	}
}

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending root and empty failure log", func(t *testing.T) {
		svc, store := initService(t, 2, 2)
		reg := loadRegistry(t, svc)

		root, ok := reg.Root()
		require.True(t, ok)
		assert.Equal(t, models.StatusPending, root.Status)
		assert.Equal(t, 0, root.Depth)
		assert.Equal(t, models.RootID, reg.CurrentNode)
		assert.Equal(t, models.Meta{Goal: "Build X", MaxDepth: 2, MaxRetries: 2}, reg.Meta)

		log, err := store.LoadFailures(ctx)
		require.NoError(t, err)
		assert.Empty(t, log.Failures)
	})

	t.Run("refuses to reinitialize without force", func(t *testing.T) {
		svc, _ := initService(t, 2, 2)
		_, err := svc.Init(ctx, "Other", 3, 3, false)
		require.ErrorIs(t, err, ErrAlreadyInitialized)
		assert.Equal(t, "Build X", loadRegistry(t, svc).Meta.Goal)
	})

	t.Run("force replaces registry and failure log", func(t *testing.T) {
		svc, _ := initService(t, 2, 2)
		_, err := svc.Decompose(ctx, models.RootID, []string{"A", "B"})
		require.NoError(t, err)
		_, err = svc.LogFailure(ctx, "NODE-1", FailureInput{Approach: "x"})
		require.NoError(t, err)

		_, err = svc.Init(ctx, "Other", 3, 3, true)
		require.NoError(t, err)

		reg := loadRegistry(t, svc)
		assert.Equal(t, "Other", reg.Meta.Goal)
		assert.Equal(t, 1, reg.Nodes.Len())
		failures, err := svc.QueryFailures(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, failures)
	})

	t.Run("rejects negative limits", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Init(ctx, "Build X", -1, 3, false)
		require.Error(t, err)
	})
}

func TestOperationsBeforeInit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Decompose(ctx, models.RootID, []string{"A", "B"})
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.UpdateStatus(ctx, models.RootID, UpdateRequest{Status: models.StatusExecuting})
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.Next(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.Status(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.LogFailure(ctx, models.RootID, FailureInput{})
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.QueryContext(ctx, models.RootID)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.QueryFailures(ctx, "")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.QueryFailures(ctx, models.RootID)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestRoundTripOnlyChangesTimestampAndRevision(t *testing.T) {
	svc, store := initService(t, 3, 3)
	ctx := context.Background()
	_, err := svc.Decompose(ctx, models.RootID, []string{"A", "B", "C"})
	require.NoError(t, err)
	_, err = svc.SetTests(ctx, "NODE-2", []string{"builds", "lint"})
	require.NoError(t, err)

	before, err := store.LoadRegistry(ctx)
	require.NoError(t, err)
	reg, err := store.LoadRegistry(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SaveRegistry(ctx, reg))
	after, err := store.LoadRegistry(ctx)
	require.NoError(t, err)

	before.Revision, after.Revision = "", ""
	before.UpdatedAt, after.UpdatedAt = time.Time{}, time.Time{}
	assert.Equal(t, before, after)
}

func TestDecompose(t *testing.T) {
	ctx := context.Background()

	t.Run("creates ordered children of root", func(t *testing.T) {
		svc, _ := initService(t, 2, 2)
		res, err := svc.Decompose(ctx, models.RootID, []string{"A", "B"})
		require.NoError(t, err)
		assert.Equal(t, []string{"NODE-1", "NODE-2"}, res.Children)
		assert.Empty(t, res.Dropped)
		assert.False(t, res.Redirected())

		reg := loadRegistry(t, svc)
		root, _ := reg.Root()
		assert.Equal(t, models.StatusDecomposed, root.Status)
		assert.False(t, root.IsLeaf)
		assert.Equal(t, "NODE-1", reg.CurrentNode)
		for i, id := range res.Children {
			n, _ := reg.Node(id)
			assert.Equal(t, []string{"A", "B"}[i], n.Goal)
			assert.Equal(t, models.StatusPending, n.Status)
			assert.Equal(t, 1, n.Depth)
			assert.Equal(t, 0, n.RetryCount)
			assert.Empty(t, n.Children)
			assert.Empty(t, n.TestCriteria)
		}
		assertWellFormed(t, reg)
	})

	t.Run("nested children use parent id prefix", func(t *testing.T) {
		svc, _ := initService(t, 3, 2)
		_, err := svc.Decompose(ctx, models.RootID, []string{"A", "B"})
		require.NoError(t, err)
		res, err := svc.Decompose(ctx, "NODE-1", []string{"A1", "A2", "A3"})
		require.NoError(t, err)
		assert.Equal(t, []string{"NODE-1-1", "NODE-1-2", "NODE-1-3"}, res.Children)
		assert.Equal(t, 2, nodeOf(t, svc, "NODE-1-3").Depth)
		assertWellFormed(t, loadRegistry(t, svc))
	})

	t.Run("one goal fails without writing", func(t *testing.T) {
		svc, store := initService(t, 2, 2)
		before := store.RegistryBytes()

		_, err := svc.Decompose(ctx, models.RootID, []string{"A"})
		require.ErrorIs(t, err, ErrInvalidGoalCount)
		assert.True(t, bytes.Equal(before, store.RegistryBytes()))
	})

	t.Run("six goals keep the first five", func(t *testing.T) {
		svc, _ := initService(t, 2, 2)
		res, err := svc.Decompose(ctx, models.RootID, []string{"1", "2", "3", "4", "5", "6"})
		require.NoError(t, err)
		assert.Len(t, res.Children, MaxChildren)
		assert.Equal(t, []string{"6"}, res.Dropped)

		reg := loadRegistry(t, svc)
		assert.Equal(t, 6, reg.Nodes.Len())
		_, ok := reg.Nodes.Get("NODE-6")
		assert.False(t, ok)
	})

	t.Run("depth ceiling redirects to executing leaf", func(t *testing.T) {
		svc, _ := initService(t, 1, 2)
		_, err := svc.Decompose(ctx, models.RootID, []string{"A", "B"})
		require.NoError(t, err)

		res, err := svc.Decompose(ctx, "NODE-1", []string{"x", "y"})
		require.NoError(t, err)
		assert.True(t, res.Redirected())
		assert.ErrorIs(t, res.Redirect, ErrDepthCeilingReached)
		assert.Empty(t, res.Children)

		n := nodeOf(t, svc, "NODE-1")
		assert.Equal(t, models.StatusExecuting, n.Status)
		assert.True(t, n.IsLeaf)
		assert.Empty(t, n.Children)
	})

	t.Run("depth ceiling is checked before goal count", func(t *testing.T) {
		svc, _ := initService(t, 0, 2)
		res, err := svc.Decompose(ctx, models.RootID, []string{"only one"})
		require.NoError(t, err)
		assert.True(t, res.Redirected())
	})

	t.Run("rejects non pending or failed nodes", func(t *testing.T) {
		svc, store := initService(t, 2, 2)
		_, err := svc.UpdateStatus(ctx, models.RootID, UpdateRequest{Status: models.StatusExecuting})
		require.NoError(t, err)
		before := store.RegistryBytes()

		_, err = svc.Decompose(ctx, models.RootID, []string{"A", "B"})
		require.ErrorIs(t, err, ErrIllegalTransition)
		var te *TransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, models.StatusExecuting, te.From)
		assert.True(t, bytes.Equal(before, store.RegistryBytes()))
	})

	t.Run("failed node may be decomposed", func(t *testing.T) {
		svc, _ := initService(t, 2, 2)
		_, err := svc.UpdateStatus(ctx, models.RootID, UpdateRequest{Status: models.StatusFailed, Error: "too big"})
		require.NoError(t, err)
		_, err = svc.Decompose(ctx, models.RootID, []string{"A", "B"})
		require.NoError(t, err)
	})

	t.Run("unknown node", func(t *testing.T) {
		svc, _ := initService(t, 2, 2)
		_, err := svc.Decompose(ctx, "NODE-9", []string{"A", "B"})
		require.ErrorIs(t, err, ErrNodeNotFound)
	})
}

func TestEnterFastTrack(t *testing.T) {
	ctx := context.Background()
	svc, _ := initService(t, 2, 2)
	_, err := svc.Decompose(ctx, models.RootID, []string{"A", "B"})
	require.NoError(t, err)

	n, err := svc.EnterFastTrack(ctx, "NODE-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFastTrack, n.Status)
	assert.True(t, n.IsLeaf)
	assert.True(t, n.FastTrack)

	_, err = svc.EnterFastTrack(ctx, "NODE-1")
	require.ErrorIs(t, err, ErrIllegalTransition)
	_, err = svc.EnterFastTrack(ctx, models.RootID)
	require.ErrorIs(t, err, ErrIllegalTransition)
	_, err = svc.EnterFastTrack(ctx, "NODE-7")
	require.ErrorIs(t, err, ErrNodeNotFound)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("records side effects", func(t *testing.T) {
		svc, _ := initService(t, 2, 2)
		res, err := svc.UpdateStatus(ctx, models.RootID, UpdateRequest{
			Status: models.StatusFailed,
			Error:  "build broke",
			Hint:   "pin the version",
			Leaf:   true,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, res.From)
		assert.Equal(t, "build broke", res.Node.Error)
		assert.Equal(t, "pin the version", res.Node.Hint)
		assert.True(t, res.Node.IsLeaf)
		assert.Equal(t, 1, res.Node.RetryCount)

		res, err = svc.UpdateStatus(ctx, models.RootID, UpdateRequest{Status: models.StatusEscalated, Reason: "needs a human"})
		require.NoError(t, err)
		assert.Equal(t, "needs a human", res.Node.EscalationReason)
		assert.Equal(t, 1, res.Node.RetryCount)
		assert.Equal(t, "build broke", res.Node.Error)
	})

	t.Run("error bumps retry count on any target", func(t *testing.T) {
		svc, _ := initService(t, 2, 2)
		res, err := svc.UpdateStatus(ctx, models.RootID, UpdateRequest{Status: models.StatusExecuting, Error: "flaky"})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Node.RetryCount)
	})

	t.Run("rejects unknown and structural targets", func(t *testing.T) {
		svc, _ := initService(t, 2, 2)
		for _, s := range []models.Status{"done", models.StatusDecomposed, models.StatusFastTrack} {
			_, err := svc.UpdateStatus(ctx, models.RootID, UpdateRequest{Status: s})
			assert.ErrorIs(t, err, ErrInvalidStatus, "status %q", s)
		}
	})

	t.Run("passed is final unless forced", func(t *testing.T) {
		svc, store := initService(t, 2, 2)
		_, err := svc.UpdateStatus(ctx, models.RootID, UpdateRequest{Status: models.StatusPassed})
		require.NoError(t, err)
		before := store.RegistryBytes()

		_, err = svc.UpdateStatus(ctx, models.RootID, UpdateRequest{Status: models.StatusPending})
		require.ErrorIs(t, err, ErrIllegalTransition)
		assert.True(t, bytes.Equal(before, store.RegistryBytes()))

		res, err := svc.UpdateStatus(ctx, models.RootID, UpdateRequest{Status: models.StatusPending, Force: true})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, res.Node.Status)
	})

	t.Run("decomposed nodes cannot be moved even when forced", func(t *testing.T) {
		svc, _ := initService(t, 2, 2)
		_, err := svc.Decompose(ctx, models.RootID, []string{"A", "B"})
		require.NoError(t, err)

		_, err = svc.UpdateStatus(ctx, models.RootID, UpdateRequest{Status: models.StatusPassed, Force: true})
		require.ErrorIs(t, err, ErrIllegalTransition)
	})

	t.Run("cascade-passed parents cannot be forced back", func(t *testing.T) {
		svc, _ := initService(t, 2, 2)
		_, err := svc.Decompose(ctx, models.RootID, []string{"A", "B"})
		require.NoError(t, err)
		for _, id := range []string{"NODE-1", "NODE-2"} {
			_, err = svc.UpdateStatus(ctx, id, UpdateRequest{Status: models.StatusPassed})
			require.NoError(t, err)
		}
		_, err = svc.UpdateStatus(ctx, models.RootID, UpdateRequest{Status: models.StatusPending, Force: true})
		require.ErrorIs(t, err, ErrIllegalTransition)
	})

	t.Run("advance only applies to passed and failed", func(t *testing.T) {
		svc, _ := initService(t, 2, 2)
		_, err := svc.Decompose(ctx, models.RootID, []string{"A", "B"})
		require.NoError(t, err)

		res, err := svc.UpdateStatus(ctx, "NODE-1", UpdateRequest{Status: models.StatusTesting, Advance: true})
		require.NoError(t, err)
		assert.False(t, res.Advanced)
		assert.Equal(t, "NODE-1", res.Current)

		res, err = svc.UpdateStatus(ctx, "NODE-1", UpdateRequest{Status: models.StatusPassed, Advance: true})
		require.NoError(t, err)
		assert.True(t, res.Advanced)
		assert.Equal(t, "NODE-2", res.Current)
		assert.Equal(t, "NODE-2", loadRegistry(t, svc).CurrentNode)
	})

	t.Run("unknown node", func(t *testing.T) {
		svc, _ := initService(t, 2, 2)
		_, err := svc.UpdateStatus(ctx, "NODE-3", UpdateRequest{Status: models.StatusPassed})
		require.ErrorIs(t, err, ErrNodeNotFound)
	})
}

func TestRetryCountIsMonotonic(t *testing.T) {
	ctx := context.Background()
	svc, _ := initService(t, 2, 5)

	steps := []UpdateRequest{
		{Status: models.StatusExecuting},
		{Status: models.StatusFailed, Error: "e1"},
		{Status: models.StatusExecuting, Hint: "h"},
		{Status: models.StatusTesting},
		{Status: models.StatusFailed, Error: "e2"},
		{Status: models.StatusPending},
		{Status: models.StatusFailed},
		{Status: models.StatusEscalated, Error: "e3", Reason: "stop"},
		{Status: models.StatusPending},
	}
	wantErrors := 0
	last := 0
	for i, step := range steps {
		res, err := svc.UpdateStatus(ctx, models.RootID, step)
		require.NoError(t, err, "step %d", i)
		if step.Error != "" {
			wantErrors++
		}
		assert.GreaterOrEqual(t, res.Node.RetryCount, last, "step %d", i)
		assert.Equal(t, wantErrors, res.Node.RetryCount, "step %d", i)
		last = res.Node.RetryCount
	}
}

func TestScenario_BuildX(t *testing.T) {
	ctx := context.Background()
	svc, _ := initService(t, 2, 2)

	root := nodeOf(t, svc, models.RootID)
	assert.Equal(t, models.StatusPending, root.Status)

	res, err := svc.Decompose(ctx, models.RootID, []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"NODE-1", "NODE-2"}, res.Children)
	reg := loadRegistry(t, svc)
	assert.Equal(t, "NODE-1", reg.CurrentNode)
	assertWellFormed(t, reg)

	up, err := svc.UpdateStatus(ctx, "NODE-1", UpdateRequest{Status: models.StatusPassed})
	require.NoError(t, err)
	assert.Empty(t, up.Promoted)
	assert.Equal(t, models.StatusDecomposed, nodeOf(t, svc, models.RootID).Status)

	up, err = svc.UpdateStatus(ctx, "NODE-2", UpdateRequest{Status: models.StatusPassed})
	require.NoError(t, err)
	assert.Equal(t, []string{models.RootID}, up.Promoted)
	assert.Equal(t, models.StatusPassed, nodeOf(t, svc, models.RootID).Status)

	next, err := svc.FindNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)

	nr, err := svc.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeComplete, nr.Outcome)
	assert.Nil(t, nr.Node)
	assertWellFormed(t, loadRegistry(t, svc))
}

func TestScenario_FailedTwiceRecommendsEscalation(t *testing.T) {
	ctx := context.Background()
	svc, _ := initService(t, 2, 2)
	_, err := svc.Decompose(ctx, models.RootID, []string{"A", "B"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := svc.UpdateStatus(ctx, "NODE-1", UpdateRequest{Status: models.StatusFailed, Error: "build broke"})
		require.NoError(t, err)
	}

	n := nodeOf(t, svc, "NODE-1")
	assert.Equal(t, 2, n.RetryCount)
	assert.Equal(t, models.StatusFailed, n.Status)

	report, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "NODE-1", report.Node.ID)
	assert.Equal(t, ActionEscalate, report.Action)
	assert.Equal(t, RoleAnalyzer, report.Role)
	assert.Contains(t, report.Guidance, "escalation recommended")
}

func TestNext(t *testing.T) {
	ctx := context.Background()

	t.Run("persists the found node as current", func(t *testing.T) {
		svc, _ := initService(t, 2, 2)
		_, err := svc.Decompose(ctx, models.RootID, []string{"A", "B"})
		require.NoError(t, err)
		_, err = svc.UpdateStatus(ctx, "NODE-1", UpdateRequest{Status: models.StatusEscalated, Reason: "r"})
		require.NoError(t, err)

		nr, err := svc.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, OutcomeActionable, nr.Outcome)
		assert.Equal(t, "NODE-2", nr.Node.ID)
		assert.Equal(t, "NODE-2", loadRegistry(t, svc).CurrentNode)
	})

	t.Run("stuck when only escalated nodes remain", func(t *testing.T) {
		svc, store := initService(t, 2, 2)
		_, err := svc.UpdateStatus(ctx, models.RootID, UpdateRequest{Status: models.StatusEscalated})
		require.NoError(t, err)
		before := store.RegistryBytes()

		nr, err := svc.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, OutcomeStuck, nr.Outcome)
		assert.True(t, bytes.Equal(before, store.RegistryBytes()))
	})
}

func TestTestLedger(t *testing.T) {
	ctx := context.Background()
	svc, store := initService(t, 2, 2)

	_, err := svc.SetTests(ctx, models.RootID, []string{"builds", "API returns 200"})
	require.NoError(t, err)

	tc, err := svc.RecordTestResult(ctx, models.RootID, 2, false, "500 on /health")
	require.NoError(t, err)
	assert.Equal(t, "API returns 200", tc.Name)
	require.NotNil(t, tc.Passed)
	assert.False(t, *tc.Passed)

	tests, err := svc.GetTests(ctx, models.RootID)
	require.NoError(t, err)
	require.Len(t, tests, 2)
	assert.Nil(t, tests[0].Passed)
	assert.Equal(t, "500 on /health", tests[1].Reason)
	assert.Equal(t, LedgerSummary{Total: 2, Failed: 1, Pending: 1}, Summarize(tests))

	before := store.RegistryBytes()
	for _, idx := range []int{0, 3, -1} {
		_, err := svc.RecordTestResult(ctx, models.RootID, idx, true, "")
		assert.ErrorIs(t, err, ErrInvalidIndex, "index %d", idx)
	}
	assert.True(t, bytes.Equal(before, store.RegistryBytes()))

	assert.Equal(t, models.StatusPending, nodeOf(t, svc, models.RootID).Status, "ledger never changes status")

	_, err = svc.SetTests(ctx, models.RootID, []string{"only"})
	require.NoError(t, err)
	tests, err = svc.GetTests(ctx, models.RootID)
	require.NoError(t, err)
	assert.Equal(t, []models.TestCriterion{{Name: "only"}}, tests)
}

func TestFailureLog(t *testing.T) {
	ctx := context.Background()
	svc, _ := initService(t, 2, 3)
	_, err := svc.Decompose(ctx, models.RootID, []string{"A", "B"})
	require.NoError(t, err)

	f, err := svc.LogFailure(ctx, "NODE-1", FailureInput{})
	require.NoError(t, err)
	assert.Equal(t, models.Failure{
		NodeID: "NODE-1", Attempt: 0, Approach: NotApplicable, Error: NotApplicable,
		Reason: NotApplicable, Timestamp: fixedNow,
	}, f)

	_, err = svc.UpdateStatus(ctx, "NODE-1", UpdateRequest{Status: models.StatusFailed, Error: "timeout"})
	require.NoError(t, err)
	f, err = svc.LogFailure(ctx, "NODE-1", FailureInput{Approach: "retry with cache"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Attempt)
	assert.Equal(t, "timeout", f.Error)

	_, err = svc.LogFailure(ctx, "NODE-2", FailureInput{Error: "other", Reason: "why"})
	require.NoError(t, err)

	all, err := svc.QueryFailures(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	mine, err := svc.QueryFailures(ctx, "NODE-1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = svc.LogFailure(ctx, "NODE-9", FailureInput{})
	require.ErrorIs(t, err, ErrNodeNotFound)

	nc, err := svc.QueryContext(ctx, "NODE-1")
	require.NoError(t, err)
	assert.Equal(t, "NODE-1", nc.Node.ID)
	assert.Len(t, nc.Failures, 2)
	assert.Equal(t, 3, nc.MaxRetries)
	assert.Equal(t, 2, nc.RetriesLeft)
	assert.Equal(t, ActionRetry, nc.Action)
}

func TestProgress(t *testing.T) {
	ctx := context.Background()
	svc, _ := initService(t, 2, 2)
	_, err := svc.Decompose(ctx, models.RootID, []string{"A", "B", "C"})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, "NODE-2", UpdateRequest{Status: models.StatusPassed})
	require.NoError(t, err)

	p, err := svc.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Passed)
	assert.Equal(t, 4, p.Total)
	assert.Equal(t, 2, p.ByStatus[models.StatusPending])
	assert.Equal(t, "Build X", p.Goal)
}

func TestStaleWriterIsRejected(t *testing.T) {
	ctx := context.Background()
	svc, store := initService(t, 2, 2)

	stale, err := store.LoadRegistry(ctx)
	require.NoError(t, err)

	_, err = svc.Decompose(ctx, models.RootID, []string{"A", "B"})
	require.NoError(t, err)

	stale.CurrentNode = models.RootID
	require.ErrorIs(t, store.SaveRegistry(ctx, stale), state.ErrStaleRevision)
	assert.Equal(t, "NODE-1", loadRegistry(t, svc).CurrentNode)
}
