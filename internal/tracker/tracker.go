// Package tracker owns the list of build-scoped temporary artifacts that must
// be removed before a document build returns. Each build gets its own Tracker;
// nothing is shared across builds.
package tracker

import (
	"fmt"
	"os"
	"sync"
)

// Tracker records temporary artifact paths pending cleanup.
// The zero value is not usable; create with New.
type Tracker struct {
	mu    sync.Mutex
	paths []string
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{}
}

// Track registers a path for deletion at the end of the build.
// Duplicate registrations are collapsed.
func (t *Tracker) Track(path string) {
	if path == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.paths {
		if p == path {
			return
		}
	}
	t.paths = append(t.paths, path)
}

// Len returns the number of currently tracked paths.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.paths)
}

// ReleaseAll deletes every tracked path, continuing past individual failures.
// Paths that no longer exist are not errors. The tracked list is cleared, so
// a second call is a no-op.
func (t *Tracker) ReleaseAll() []error {
	t.mu.Lock()
	paths := t.paths
	t.paths = nil
	t.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("removing %s: %w", p, err))
		}
	}
	return errs
}
