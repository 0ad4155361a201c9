package state

import (
	"time"

	"github.com/ShayCichocki/recurse/pkg/models"
)

type options struct {
	now         func() time.Time
	projectors  []Projector
	lockTimeout time.Duration
	debugLog    func(format string, args ...interface{})
}

// Option configures a store backend.
type Option func(*options)

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithProjector registers a projection regenerated after every registry save.
func WithProjector(p Projector) Option {
	return func(o *options) { o.projectors = append(o.projectors, p) }
}

// WithLockTimeout bounds how long a write waits for the store lock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) { o.lockTimeout = d }
}

// WithDebugLog sets the debug logging function.
func WithDebugLog(fn func(format string, args ...interface{})) Option {
	return func(o *options) {
		if fn != nil {
			o.debugLog = fn
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		now:         time.Now,
		lockTimeout: 5 * time.Second,
		debugLog:    func(format string, args ...interface{}) {},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// project runs every projector. Failures are logged, never returned: the
// registry write has already succeeded.
func (o *options) project(reg *models.Registry) {
	for _, p := range o.projectors {
		if err := p.Project(reg); err != nil {
			o.debugLog("[state] projection failed: %v", err)
		}
	}
}
