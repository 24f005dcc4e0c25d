// Package workspace manages the transient directory tree scoped to one
// pipeline run. Acquisition happens before any external tool is invoked and
// release is registered at acquisition, so every exit path — normal return,
// propagated fatal error, or interrupt — removes the tree exactly once.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"lectern/internal/logging"
)

// Workspace is a scoped scratch directory for one run.
type Workspace struct {
	root   string
	logger *slog.Logger

	releaseOnce sync.Once
	releaseErr  error
}

// Acquire creates the run-scoped directory under parent. The run ID keeps
// concurrent runs against the same work directory from colliding.
func Acquire(parent, runID string, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	root := filepath.Join(parent, "lectern-"+runID)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", root, err)
	}
	logger.Debug("workspace acquired", logging.String("path", root))
	return &Workspace{root: root, logger: logger}, nil
}

// Root returns the workspace directory.
func (w *Workspace) Root() string {
	return w.root
}

// Path joins the given elements onto the workspace root.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.root}, elem...)...)
}

// Subdir creates (if needed) and returns a directory inside the workspace.
func (w *Workspace) Subdir(elem ...string) (string, error) {
	dir := w.Path(elem...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create workspace subdir %s: %w", dir, err)
	}
	return dir, nil
}

// Release removes the workspace tree. Safe to call multiple times; only the
// first call does work and later calls return its result.
func (w *Workspace) Release() error {
	w.releaseOnce.Do(func() {
		w.releaseErr = os.RemoveAll(w.root)
		if w.releaseErr != nil {
			w.logger.Warn("workspace removal failed",
				logging.String("path", w.root), logging.Error(w.releaseErr))
			return
		}
		w.logger.Debug("workspace released", logging.String("path", w.root))
	})
	return w.releaseErr
}
