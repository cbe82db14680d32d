package session

import (
	"errors"
	"io/fs"
	"log/slog"
)

// ArtifactStore persists transient answer audio.
type ArtifactStore interface {
	Save(name string, data []byte) (string, error)
	Remove(path string) error
}

// Janitor deletes artifacts of completed sessions after a grace period. It is
// handed plain paths so nothing ties it to the session.
type Janitor interface {
	Schedule(sessionID string, paths []string)
}

type artifact struct {
	path    string
	removed bool
}

// Manifest tracks every artifact a session wrote. It is owned by the session
// goroutine and is not safe for concurrent use.
type Manifest struct {
	store   ArtifactStore
	entries []*artifact
}

func NewManifest(store ArtifactStore) *Manifest {
	return &Manifest{store: store}
}

func (m *Manifest) Add(path string) {
	m.entries = append(m.entries, &artifact{path: path})
}

// Pending lists the artifacts not yet deleted.
func (m *Manifest) Pending() []string {
	var paths []string
	for _, a := range m.entries {
		if !a.removed {
			paths = append(paths, a.path)
		}
	}
	return paths
}

// Remove deletes one artifact. A file that is already gone counts as removed.
func (m *Manifest) Remove(path string) error {
	for _, a := range m.entries {
		if a.path != path || a.removed {
			continue
		}
		if err := m.store.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		a.removed = true
	}
	return nil
}

// Cleanup deletes every pending artifact, logging failures per file, and
// returns how many could not be deleted.
func (m *Manifest) Cleanup(log *slog.Logger) int {
	failed := 0
	for _, path := range m.Pending() {
		if err := m.Remove(path); err != nil {
			failed++
			log.Error("Failed to delete answer artifact", "path", path, "error", err)
		}
	}
	return failed
}
