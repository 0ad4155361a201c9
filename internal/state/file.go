package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ShayCichocki/recurse/pkg/models"
)

// Default file names inside the state directory.
const (
	RegistryFile = "task_registry.json"
	FailureFile  = "failure_report.json"
	MarkdownFile = "task_registry.md"
	lockFileName = ".lock"
)

// DefaultDir is the state directory relative to the project root.
const DefaultDir = ".agent/recursive-refactor"

// FileStore keeps the registry and failure log as JSON documents in a directory.
type FileStore struct {
	options
	dir string
}

// NewFileStore creates a store rooted at dir. The directory is created on
// the first write.
func NewFileStore(dir string, opts ...Option) *FileStore {
	return &FileStore{options: newOptions(opts), dir: dir}
}

// Dir returns the state directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// RegistryPath returns the path of the registry document.
func (s *FileStore) RegistryPath() string {
	return filepath.Join(s.dir, RegistryFile)
}

// FailurePath returns the path of the failure log document.
func (s *FileStore) FailurePath() string {
	return filepath.Join(s.dir, FailureFile)
}

// Close releases nothing; FileStore holds no open handles between calls.
func (s *FileStore) Close() error {
	return nil
}

// Exists reports whether a registry document is present.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.RegistryPath())
	return err == nil
}

// LoadRegistry reads the registry document.
func (s *FileStore) LoadRegistry(ctx context.Context) (*models.Registry, error) {
	data, err := os.ReadFile(s.RegistryPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return decodeRegistry(data)
}

// CreateRegistry writes a fresh registry document.
func (s *FileStore) CreateRegistry(ctx context.Context, reg *models.Registry, overwrite bool) error {
	return s.withLock(ctx, func() error {
		if s.Exists() && !overwrite {
			return ErrRegistryExists
		}
		return s.writeRegistry(reg)
	})
}

// SaveRegistry writes the registry after checking its revision.
func (s *FileStore) SaveRegistry(ctx context.Context, reg *models.Registry) error {
	return s.withLock(ctx, func() error {
		data, err := os.ReadFile(s.RegistryPath())
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return ErrNotInitialized
			}
			return fmt.Errorf("read registry: %w", err)
		}
		persisted, err := peekRevision(data)
		if err != nil {
			return err
		}
		if persisted != reg.Revision {
			s.debugLog("[state] stale revision: have %q, disk %q", reg.Revision, persisted)
			return ErrStaleRevision
		}
		return s.writeRegistry(reg)
	})
}

func (s *FileStore) writeRegistry(reg *models.Registry) error {
	now := s.now()
	data, revision, err := stamped(reg, now)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.RegistryPath(), data, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	reg.UpdatedAt = now
	reg.Revision = revision
	s.debugLog("[state] saved registry revision=%s nodes=%d", revision, reg.Nodes.Len())
	s.project(reg)
	return nil
}

// LoadFailures reads the failure log, defaulting to an empty log.
func (s *FileStore) LoadFailures(ctx context.Context) (*models.FailureLog, error) {
	data, err := os.ReadFile(s.FailurePath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.NewFailureLog(), nil
		}
		return nil, fmt.Errorf("read failure log: %w", err)
	}
	return decodeFailures(data)
}

// SaveFailures writes the whole failure log.
func (s *FileStore) SaveFailures(ctx context.Context, log *models.FailureLog) error {
	return s.withLock(ctx, func() error {
		data, err := encodeDocument(log)
		if err != nil {
			return fmt.Errorf("encode failure log: %w", err)
		}
		if err := writeFileAtomic(s.FailurePath(), data, 0o644); err != nil {
			return fmt.Errorf("write failure log: %w", err)
		}
		return nil
	})
}

func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	release, err := acquireLock(ctx, filepath.Join(s.dir, lockFileName), s.lockTimeout)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// writeFileAtomic writes data to a temp file in the same directory, syncs it
// and renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
