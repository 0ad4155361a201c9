package state

import (
	"context"
	"sync"

	"github.com/ShayCichocki/recurse/pkg/models"
)

// MemoryStore keeps encoded documents in memory. It applies the same
// revision rules as the durable backends and is used in tests.
type MemoryStore struct {
	options
	mu       sync.Mutex
	registry []byte
	revision string
	failures []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{options: newOptions(opts)}
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// RegistryBytes returns the encoded registry as last written, or nil.
func (m *MemoryStore) RegistryBytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.registry...)
}

// LoadRegistry decodes the stored registry.
func (m *MemoryStore) LoadRegistry(ctx context.Context) (*models.Registry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registry == nil {
		return nil, ErrNotInitialized
	}
	return decodeRegistry(m.registry)
}

// CreateRegistry stores a fresh registry.
func (m *MemoryStore) CreateRegistry(ctx context.Context, reg *models.Registry, overwrite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registry != nil && !overwrite {
		return ErrRegistryExists
	}
	return m.write(reg)
}

// SaveRegistry stores reg when its revision matches the stored one.
func (m *MemoryStore) SaveRegistry(ctx context.Context, reg *models.Registry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registry == nil {
		return ErrNotInitialized
	}
	if reg.Revision != m.revision {
		return ErrStaleRevision
	}
	return m.write(reg)
}

func (m *MemoryStore) write(reg *models.Registry) error {
	now := m.now()
	data, revision, err := stamped(reg, now)
	if err != nil {
		return err
	}
	m.registry = data
	m.revision = revision
	reg.UpdatedAt = now
	reg.Revision = revision
	m.project(reg)
	return nil
}

// LoadFailures decodes the stored failure log.
func (m *MemoryStore) LoadFailures(ctx context.Context) (*models.FailureLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		return models.NewFailureLog(), nil
	}
	return decodeFailures(m.failures)
}

// SaveFailures stores the failure log.
func (m *MemoryStore) SaveFailures(ctx context.Context, log *models.FailureLog) error {
	data, err := encodeDocument(log)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = data
	return nil
}
