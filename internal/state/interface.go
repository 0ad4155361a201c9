// Package state provides persistence for the task registry and failure log.
package state

import (
	"context"
	"io"

	"github.com/ShayCichocki/recurse/pkg/models"
)

// RegistryStore handles registry persistence. Every write is whole-document.
type RegistryStore interface {
	// LoadRegistry returns the persisted registry or ErrNotInitialized.
	LoadRegistry(ctx context.Context) (*models.Registry, error)
	// CreateRegistry writes a fresh registry. It returns ErrRegistryExists
	// when one is already persisted and overwrite is false.
	CreateRegistry(ctx context.Context, reg *models.Registry, overwrite bool) error
	// SaveRegistry refreshes UpdatedAt and rotates Revision before writing.
	// It returns ErrStaleRevision if the registry changed since it was loaded.
	SaveRegistry(ctx context.Context, reg *models.Registry) error
}

// FailureStore handles failure log persistence.
type FailureStore interface {
	// LoadFailures returns the log, or an empty log when none exists.
	LoadFailures(ctx context.Context) (*models.FailureLog, error)
	// SaveFailures writes the whole log.
	SaveFailures(ctx context.Context, log *models.FailureLog) error
}

// Store is the full persistence surface used by the orchestrator.
type Store interface {
	io.Closer
	RegistryStore
	FailureStore
}

// Projector derives a read-only view from a saved registry.
// Projections are never read back as a source of truth.
type Projector interface {
	Project(reg *models.Registry) error
}

// ProjectorFunc adapts a function to the Projector interface.
type ProjectorFunc func(reg *models.Registry) error

// Project calls f(reg).
func (f ProjectorFunc) Project(reg *models.Registry) error {
	return f(reg)
}

// Compile-time verification that every backend implements Store.
var (
	_ Store = (*FileStore)(nil)
	_ Store = (*DB)(nil)
	_ Store = (*MemoryStore)(nil)
)
