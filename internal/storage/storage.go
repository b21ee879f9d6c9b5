package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pfrederiksen/run-events/internal/event"
)

// ErrNotFound is returned by readRecord when a key has no file.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one serialized aggregation result.
type Snapshot struct {
	FetchedAt time.Time      `json:"fetchedAt"`
	Events    []*event.Event `json:"events"`
}

// Store is a key-value store for snapshots with per-entry max-age.
type Store interface {
	// Get returns the snapshot for key. ok is false when the key is
	// missing or its max-age has passed.
	Get(key string) (snap *Snapshot, ok bool, err error)
	Put(key string, snap *Snapshot, maxAge time.Duration) error
}

type record struct {
	ExpiresAt time.Time `json:"expiresAt"`
	Snapshot  *Snapshot `json:"snapshot"`
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithClock overrides the clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) {
		s.now = now
	}
}

// FileStore keeps one JSON file per key under a data directory.
type FileStore struct {
	dataDir string
	now     func() time.Time
}

// New creates a FileStore rooted at dataDir, creating it if needed.
// A leading ~/ is expanded to the home directory.
func New(dataDir string, opts ...Option) (*FileStore, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &FileStore{
		dataDir: dataDir,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the resolved data directory.
func (s *FileStore) Dir() string {
	return s.dataDir
}

// path maps a key to a file name, replacing anything outside [a-z0-9_-].
func (s *FileStore) path(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return filepath.Join(s.dataDir, b.String()+".json")
}

// Get implements Store.
func (s *FileStore) Get(key string) (*Snapshot, bool, error) {
	rec, err := s.readRecord(key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if rec.Snapshot == nil || !s.now().Before(rec.ExpiresAt) {
		return nil, false, nil
	}
	return rec.Snapshot, true, nil
}

func (s *FileStore) readRecord(key string) (*record, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return &rec, nil
}

// Put implements Store. The file is replaced atomically.
func (s *FileStore) Put(key string, snap *Snapshot, maxAge time.Duration) error {
	rec := record{
		ExpiresAt: s.now().Add(maxAge),
		Snapshot:  snap,
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dataDir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	return nil
}
