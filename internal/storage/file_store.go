package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/str-access/backend/internal/storage/models"
)

// FileStore keeps reservation records in a single JSON file using the
// {byCode, byId} layout. Writes replace the file atomically via rename, so a
// reader never sees a partially written record.
type FileStore struct {
	path string
	log  zerolog.Logger
	now  func() time.Time

	mu sync.RWMutex
}

// NewFileStore creates the store, initializing the file when it is missing or empty.
func NewFileStore(path string, log zerolog.Logger) (*FileStore, error) {
	s := &FileStore{path: path, log: log, now: time.Now}
	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the data file path.
func (s *FileStore) Path() string {
	return s.path
}

// Driver names the backing store.
func (s *FileStore) Driver() string {
	return "file"
}

func (s *FileStore) ensureFile() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", s.path, err)
	}
	if err == nil && strings.TrimSpace(string(data)) != "" {
		return nil
	}
	return s.write(models.NewReservationSnapshot())
}

// read loads the file. An unreadable or corrupt file reads as empty.
func (s *FileStore) read() models.ReservationSnapshot {
	snap := models.NewReservationSnapshot()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Error().Err(err).Str("path", s.path).Msg("reading reservations file")
		}
		return snap
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("decoding reservations file")
		return models.NewReservationSnapshot()
	}
	if snap.ByCode == nil {
		snap.ByCode = make(map[string]models.ReservationRecord)
	}
	if snap.ByID == nil {
		snap.ByID = make(map[string]models.ReservationRecord)
	}
	return snap
}

func (s *FileStore) write(snap models.ReservationSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding reservations: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".reservations-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

// Upsert replaces the record under its code and under its id, whichever are non-nil.
func (s *FileStore) Upsert(ctx context.Context, id, code *string, payload json.RawMessage) (*models.ReservationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := newRecord(id, code, payload, s.now().UTC())

	snap := s.read()
	if rec.Code != nil {
		snap.ByCode[*rec.Code] = *rec
	}
	if rec.ID != nil {
		snap.ByID[*rec.ID] = *rec
	}

	if err := s.write(snap); err != nil {
		return nil, fmt.Errorf("upserting reservation: %w", err)
	}
	return rec, nil
}

// GetByCode returns the record stored under code in the code index, or nil.
func (s *FileStore) GetByCode(ctx context.Context, code string) (*models.ReservationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.read().ByCode[code]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// List returns every record in the code index, ordered by index key.
func (s *FileStore) List(ctx context.Context) ([]models.ReservationRecord, error) {
	s.mu.RLock()
	snap := s.read()
	s.mu.RUnlock()

	keys := make([]string, 0, len(snap.ByCode))
	for k := range snap.ByCode {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]models.ReservationRecord, 0, len(keys))
	for _, k := range keys {
		records = append(records, snap.ByCode[k])
	}
	return records, nil
}

// Snapshot returns the file contents.
func (s *FileStore) Snapshot(ctx context.Context) (models.ReservationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(), nil
}

// Ping checks that the data file is reachable.
func (s *FileStore) Ping(ctx context.Context) error {
	_, err := os.Stat(s.path)
	return err
}
