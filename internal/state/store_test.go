package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ShayCichocki/recurse/pkg/models"
)

var testNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

// StoreSuite runs the Store contract against one backend.
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
	ctx      context.Context
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		return NewFileStore(t.TempDir(), WithClock(func() time.Time { return testNow }))
	}})
}

func TestDBStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		db, err := OpenProject(t.TempDir(), WithClock(func() time.Time { return testNow }))
		if err != nil {
			t.Fatalf("open db: %v", err)
		}
		return db
	}})
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		return NewMemoryStore(WithClock(func() time.Time { return testNow }))
	}})
}

func (s *StoreSuite) newRegistry() *models.Registry {
	reg := models.NewRegistry("Build X", 5, 3, testNow.Add(-time.Hour))
	root, _ := reg.Root()
	parent := models.RootID
	for _, id := range []string{"NODE-1", "NODE-2"} {
		reg.Nodes.Add(models.NewNode(id, "goal "+id, &parent, 1))
		root.Children = append(root.Children, id)
	}
	root.Status = models.StatusDecomposed
	return reg
}

func (s *StoreSuite) TestLoadBeforeInit() {
	_, err := s.store.LoadRegistry(s.ctx)
	s.Require().ErrorIs(err, ErrNotInitialized)

	log, err := s.store.LoadFailures(s.ctx)
	s.Require().NoError(err)
	s.Empty(log.Failures)
}

func (s *StoreSuite) TestCreateAndLoad() {
	reg := s.newRegistry()
	s.Require().NoError(s.store.CreateRegistry(s.ctx, reg, false))
	s.NotEmpty(reg.Revision)
	s.True(reg.UpdatedAt.Equal(testNow))

	loaded, err := s.store.LoadRegistry(s.ctx)
	s.Require().NoError(err)
	s.Equal(reg.Revision, loaded.Revision)
	s.Equal([]string{"ROOT", "NODE-1", "NODE-2"}, loaded.Nodes.IDs())
	s.Equal("Build X", loaded.Meta.Goal)
	s.True(loaded.CreatedAt.Equal(testNow.Add(-time.Hour)))
	s.True(loaded.UpdatedAt.Equal(testNow))
}

func (s *StoreSuite) TestCreateRefusesExisting() {
	s.Require().NoError(s.store.CreateRegistry(s.ctx, s.newRegistry(), false))

	err := s.store.CreateRegistry(s.ctx, models.NewRegistry("Other", 5, 3, testNow), false)
	s.Require().ErrorIs(err, ErrRegistryExists)

	loaded, err := s.store.LoadRegistry(s.ctx)
	s.Require().NoError(err)
	s.Equal("Build X", loaded.Meta.Goal)

	s.Require().NoError(s.store.CreateRegistry(s.ctx, models.NewRegistry("Other", 5, 3, testNow), true))
	loaded, err = s.store.LoadRegistry(s.ctx)
	s.Require().NoError(err)
	s.Equal("Other", loaded.Meta.Goal)
	s.Equal(1, loaded.Nodes.Len())
}

func (s *StoreSuite) TestSaveRotatesRevision() {
	reg := s.newRegistry()
	s.Require().NoError(s.store.CreateRegistry(s.ctx, reg, false))

	loaded, err := s.store.LoadRegistry(s.ctx)
	s.Require().NoError(err)
	before := loaded.Revision

	node, _ := loaded.Node("NODE-1")
	node.Status = models.StatusExecuting
	s.Require().NoError(s.store.SaveRegistry(s.ctx, loaded))
	s.NotEqual(before, loaded.Revision)

	again, err := s.store.LoadRegistry(s.ctx)
	s.Require().NoError(err)
	n, _ := again.Node("NODE-1")
	s.Equal(models.StatusExecuting, n.Status)
	s.Equal(loaded.Revision, again.Revision)
}

func (s *StoreSuite) TestSaveDetectsStaleRevision() {
	s.Require().NoError(s.store.CreateRegistry(s.ctx, s.newRegistry(), false))

	first, err := s.store.LoadRegistry(s.ctx)
	s.Require().NoError(err)
	second, err := s.store.LoadRegistry(s.ctx)
	s.Require().NoError(err)

	first.CurrentNode = "NODE-1"
	s.Require().NoError(s.store.SaveRegistry(s.ctx, first))

	second.CurrentNode = "NODE-2"
	s.Require().ErrorIs(s.store.SaveRegistry(s.ctx, second), ErrStaleRevision)

	loaded, err := s.store.LoadRegistry(s.ctx)
	s.Require().NoError(err)
	s.Equal("NODE-1", loaded.CurrentNode)
}

func (s *StoreSuite) TestSaveBeforeInit() {
	err := s.store.SaveRegistry(s.ctx, s.newRegistry())
	s.Require().ErrorIs(err, ErrNotInitialized)
}

func (s *StoreSuite) TestFailuresRoundTrip() {
	log := models.NewFailureLog()
	log.Failures = append(log.Failures,
		models.Failure{NodeID: "NODE-1", Attempt: 1, Approach: "A", Error: "boom", Reason: "N/A", Timestamp: testNow},
		models.Failure{NodeID: "NODE-2", Attempt: 0, Approach: "N/A", Error: "N/A", Reason: "R", Timestamp: testNow.Add(time.Second)},
	)
	s.Require().NoError(s.store.SaveFailures(s.ctx, log))

	loaded, err := s.store.LoadFailures(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(loaded.Failures, 2)
	s.Equal("NODE-1", loaded.Failures[0].NodeID)
	s.Equal("boom", loaded.Failures[0].Error)
	s.True(loaded.Failures[1].Timestamp.Equal(testNow.Add(time.Second)))

	s.Require().NoError(s.store.SaveFailures(s.ctx, models.NewFailureLog()))
	loaded, err = s.store.LoadFailures(s.ctx)
	s.Require().NoError(err)
	s.Empty(loaded.Failures)
}

func TestProjectDBPath(t *testing.T) {
	got := ProjectDBPath("/my/project/.agent/recursive-refactor")
	want := filepath.Join("/my/project/.agent/recursive-refactor", "registry.db")
	if got != want {
		t.Errorf("ProjectDBPath() = %q, want %q", got, want)
	}
}
