package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/recurse/pkg/models"
)

func TestFileStore_WritesIndentedDocument(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, WithClock(func() time.Time { return testNow }))
	ctx := context.Background()

	reg := models.NewRegistry("Ünïcode <goal> & more", 5, 3, testNow)
	require.NoError(t, store.CreateRegistry(ctx, reg, false))

	data, err := os.ReadFile(filepath.Join(dir, RegistryFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"meta\": {")
	assert.Equal(t, 2, strings.Count(string(data), `"goal": "Ünïcode <goal> & more"`), "meta and ROOT goal are both written verbatim")
	assert.NotContains(t, string(data), `\u003c`)
	assert.NotContains(t, string(data), `\u0026`)
	assert.Contains(t, string(data), `"parent": null`)
}

func TestFileStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	ctx := context.Background()

	reg := models.NewRegistry("Build X", 5, 3, testNow)
	require.NoError(t, store.CreateRegistry(ctx, reg, false))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveRegistry(ctx, reg))
	}
	require.NoError(t, store.SaveFailures(ctx, models.NewFailureLog()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{RegistryFile, FailureFile, lockFileName}, names)
}

func TestFileStore_RunsProjectors(t *testing.T) {
	dir := t.TempDir()
	var seen []string
	store := NewFileStore(dir, WithProjector(ProjectorFunc(func(reg *models.Registry) error {
		seen = append(seen, reg.Revision)
		return nil
	})))
	ctx := context.Background()

	reg := models.NewRegistry("Build X", 5, 3, testNow)
	require.NoError(t, store.CreateRegistry(ctx, reg, false))
	require.NoError(t, store.SaveRegistry(ctx, reg))

	require.Len(t, seen, 2)
	assert.Equal(t, reg.Revision, seen[1])
}

func TestFileStore_ProjectorErrorDoesNotFailSave(t *testing.T) {
	dir := t.TempDir()
	var logged []string
	store := NewFileStore(dir,
		WithProjector(ProjectorFunc(func(*models.Registry) error { return errors.New("disk full") })),
		WithDebugLog(func(format string, args ...interface{}) { logged = append(logged, format) }),
	)

	reg := models.NewRegistry("Build X", 5, 3, testNow)
	require.NoError(t, store.CreateRegistry(context.Background(), reg, false))
	assert.Contains(t, logged, "[state] projection failed: %v")
}

func TestFileStore_RejectedSaveLeavesBytesUntouched(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	ctx := context.Background()

	reg := models.NewRegistry("Build X", 5, 3, testNow)
	require.NoError(t, store.CreateRegistry(ctx, reg, false))
	before, err := os.ReadFile(store.RegistryPath())
	require.NoError(t, err)

	stale := reg.Clone()
	stale.Revision = "not-the-current-revision"
	stale.CurrentNode = "NODE-9"
	require.ErrorIs(t, store.SaveRegistry(ctx, stale), ErrStaleRevision)

	after, err := os.ReadFile(store.RegistryPath())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFileStore_CorruptRegistry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RegistryFile), []byte("{not json"), 0o644))

	_, err := NewFileStore(dir).LoadRegistry(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotInitialized)
}
