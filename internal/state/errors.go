package state

import "errors"

var (
	// ErrNotInitialized is returned when no registry has been persisted yet.
	ErrNotInitialized = errors.New("registry not initialized")
	// ErrRegistryExists is returned when creating over an existing registry.
	ErrRegistryExists = errors.New("registry already exists")
	// ErrStaleRevision is returned when the persisted registry was written
	// by someone else after the caller loaded it.
	ErrStaleRevision = errors.New("registry changed since it was loaded")
	// ErrLockBusy is returned when the store lock is held by another process.
	ErrLockBusy = errors.New("store lock is held by another process")
)
