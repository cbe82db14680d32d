package services

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// FileArtifactStore keeps answer audio as files in a single directory.
type FileArtifactStore struct {
	dir string
}

func NewFileArtifactStore(dir string) (*FileArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact directory: %w", err)
	}
	return &FileArtifactStore{dir: abs}, nil
}

func (s *FileArtifactStore) Dir() string {
	return s.dir
}

// Save writes data under name. It never overwrites an existing file.
func (s *FileArtifactStore) Save(name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(name))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close artifact: %w", err)
	}
	return path, nil
}

// Remove deletes an artifact. Paths outside the store directory are refused.
func (s *FileArtifactStore) Remove(path string) error {
	if !s.owns(path) {
		return fmt.Errorf("refusing to delete %s outside %s", path, s.dir)
	}
	return os.Remove(path)
}

func (s *FileArtifactStore) owns(path string) bool {
	rel, err := filepath.Rel(s.dir, filepath.Clean(path))
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..") && !strings.ContainsRune(rel, filepath.Separator)
}

type pendingCleanup struct {
	timer *time.Timer
	paths []string
}

// Janitor deletes the answer audio of completed sessions once the grace
// period has passed, and sweeps orphaned files left by a crashed process.
// It only ever holds file paths.
type Janitor struct {
	store *FileArtifactStore
	grace time.Duration

	mu      sync.Mutex
	pending map[string]*pendingCleanup
	cron    *cron.Cron
}

func NewJanitor(store *FileArtifactStore, grace time.Duration) *Janitor {
	return &Janitor{
		store:   store,
		grace:   grace,
		pending: make(map[string]*pendingCleanup),
	}
}

// Schedule queues the deletion of paths after the grace period.
func (j *Janitor) Schedule(sessionID string, paths []string) {
	paths = append([]string(nil), paths...)

	j.mu.Lock()
	defer j.mu.Unlock()

	if prev, ok := j.pending[sessionID]; ok {
		prev.timer.Stop()
		paths = append(prev.paths, paths...)
	}
	p := &pendingCleanup{paths: paths}
	p.timer = time.AfterFunc(j.grace, func() { j.run(sessionID) })
	j.pending[sessionID] = p

	slog.Info("Scheduled answer artifact cleanup", "session_id", sessionID, "files", len(paths), "grace_period", j.grace.String())
}

// Pending reports how many sessions still wait for cleanup.
func (j *Janitor) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}

func (j *Janitor) run(sessionID string) {
	j.mu.Lock()
	p, ok := j.pending[sessionID]
	delete(j.pending, sessionID)
	j.mu.Unlock()

	if ok {
		j.deleteAll(sessionID, p.paths)
	}
}

func (j *Janitor) deleteAll(sessionID string, paths []string) {
	deleted := 0
	for _, path := range paths {
		if err := j.store.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Error("Failed to delete answer artifact", "session_id", sessionID, "path", path, "error", err)
			continue
		}
		deleted++
	}
	slog.Info("Answer artifacts cleaned up", "session_id", sessionID, "deleted", deleted, "total", len(paths))
}

// Flush runs every pending cleanup now.
func (j *Janitor) Flush() {
	j.mu.Lock()
	pending := j.pending
	j.pending = make(map[string]*pendingCleanup)
	j.mu.Unlock()

	// A timer that already fired finds nothing in the new map, so its paths
	// are deleted here either way.
	for sessionID, p := range pending {
		p.timer.Stop()
		j.deleteAll(sessionID, p.paths)
	}
}

// StartSweeper removes artifact files older than maxAge on a cron schedule.
func (j *Janitor) StartSweeper(schedule string, maxAge time.Duration) error {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(schedule, func() { j.Sweep(maxAge) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()

	j.mu.Lock()
	j.cron = c
	j.mu.Unlock()

	slog.Info("Artifact sweeper started", "schedule", schedule, "max_age", maxAge.String())
	return nil
}

// Sweep deletes files older than maxAge that no pending cleanup owns.
func (j *Janitor) Sweep(maxAge time.Duration) int {
	entries, err := os.ReadDir(j.store.Dir())
	if err != nil {
		slog.Error("Failed to list artifact directory", "dir", j.store.Dir(), "error", err)
		return 0
	}

	j.mu.Lock()
	owned := make(map[string]bool)
	for _, p := range j.pending {
		for _, path := range p.paths {
			owned[path] = true
		}
	}
	j.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(j.store.Dir(), entry.Name())
		info, err := entry.Info()
		if err != nil || owned[path] || info.ModTime().After(cutoff) {
			continue
		}
		if err := j.store.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Error("Failed to sweep orphaned artifact", "path", path, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("Swept orphaned answer artifacts", "removed", removed)
	}
	return removed
}

// Stop halts the sweeper and flushes pending cleanups.
func (j *Janitor) Stop() {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	j.Flush()
}
