package orchestrator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// LogFile is the debug log path relative to the state directory.
const LogFile = "logs/orchestrator-debug.log"

// pkgLogger receives debugLog output from the tree algorithms, which run
// without a Service in scope.
var pkgLogger atomic.Pointer[DebugLogger]

// SetPackageLogger routes debugLog output to l. nil silences it.
func SetPackageLogger(l *DebugLogger) {
	pkgLogger.Store(l)
}

func debugLog(format string, args ...interface{}) {
	pkgLogger.Load().Log(format, args...)
}

// DebugLogger writes timestamped lines for every operation. The zero value
// and a nil pointer both discard output.
type DebugLogger struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

// NewDebugLogger appends to logPath, creating its directory. An empty path
// gives a discarding logger.
func NewDebugLogger(logPath string) (*DebugLogger, error) {
	if logPath == "" {
		return NopLogger(), nil
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := newDebugLogger(f)
	l.Log("--- session start pid=%d args=%q", os.Getpid(), os.Args[1:])
	return l, nil
}

func newDebugLogger(w io.Writer) *DebugLogger {
	return &DebugLogger{out: w, now: time.Now}
}

// NewDebugLoggerForStateDir opens LogFile under stateDir, falling back to a
// discarding logger when the file cannot be opened.
func NewDebugLoggerForStateDir(stateDir string) *DebugLogger {
	l, err := NewDebugLogger(filepath.Join(stateDir, LogFile))
	if err != nil {
		return NopLogger()
	}
	return l
}

// NopLogger returns a logger that discards everything.
func NopLogger() *DebugLogger {
	return &DebugLogger{}
}

// Log formats one line and appends it.
func (l *DebugLogger) Log(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return
	}

	fmt.Fprintf(l.out, "%s %s\n", l.now().Format("2006-01-02T15:04:05.000"), fmt.Sprintf(format, args...))
	if f, ok := l.out.(*os.File); ok {
		_ = f.Sync()
	}
}

// Close releases the underlying file, if any.
func (l *DebugLogger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.out.(io.Closer)
	l.out = nil
	if !ok {
		return nil
	}
	return c.Close()
}
