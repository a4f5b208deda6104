package integrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"brainage/pkg/contracts/domain"
)

// ErrRecordNotFound is returned when a subject has no persisted record.
var ErrRecordNotFound = errors.New("integrated record not found")

// recordSuffix is the fixed filename suffix of a subject's persisted record.
const recordSuffix = "_integrated_result.json"

// Store is the file-backed canonical-record store: one flat JSON object per
// subject. Read-modify-write cycles must hold the subject's lock; writes go
// through a temp file and rename so a crash never leaves a half-written
// record.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create record store dir: %w", err)
	}
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// Lock acquires the subject's lock and returns the unlock function.
func (s *Store) Lock(subjectID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[subjectID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[subjectID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Get loads the subject's persisted record. Unknown subjects yield
// ErrRecordNotFound, never a zero-filled record.
func (s *Store) Get(subjectID string) (domain.CanonicalFeatureRecord, error) {
	path, err := s.recordPath(subjectID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, subjectID)
		}
		return nil, fmt.Errorf("read record for %s: %w", subjectID, err)
	}

	var rec domain.CanonicalFeatureRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record for %s: %w", subjectID, err)
	}
	return rec, nil
}

// Put atomically persists the subject's record.
func (s *Store) Put(subjectID string, rec domain.CanonicalFeatureRecord) error {
	path, err := s.recordPath(subjectID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record for %s: %w", subjectID, err)
	}

	tmp, err := os.CreateTemp(s.dir, subjectID+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("commit record for %s: %w", subjectID, err)
	}
	return nil
}

// SubjectIDs lists every subject with a persisted record, sorted by the
// filesystem's lexicographic listing.
func (s *Store) SubjectIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list record store: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, recordSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, recordSuffix))
	}
	return ids, nil
}

// recordPath validates the subject ID and returns its record path. IDs come
// from request payloads, so path separators are rejected outright.
func (s *Store) recordPath(subjectID string) (string, error) {
	if subjectID == "" || strings.ContainsAny(subjectID, `/\`) || strings.Contains(subjectID, "..") {
		return "", fmt.Errorf("invalid subject ID %q", subjectID)
	}
	return filepath.Join(s.dir, subjectID+recordSuffix), nil
}
