//go:build !unix

package state

import "os"

// Advisory locking is unavailable; writes rely on the revision check alone.
func flockExclusive(f *os.File) error { return nil }

func flockUnlock(f *os.File) error { return nil }
