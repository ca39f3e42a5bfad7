package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/solitary-pixels/hotspotx/pkg/utils"
)

var (
	// ErrNotFound means no status has been persisted yet.
	ErrNotFound = errors.New("status record not found")
	// ErrCorruptRecord means a persisted status exists but cannot be parsed.
	ErrCorruptRecord = errors.New("corrupt status record")
)

// Record is the persisted fleet status.
type Record struct {
	Fingerprint string `json:"fingerprint"`
	// Timestamp is in UNIX seconds.
	Timestamp int64 `json:"timestamp"`
}

// Store persists the last reported Record.
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
}

// FileStore keeps the record in a JSON file, replaced atomically on save.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore writing to path. Parent directories are
// created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file backing the store.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (Record, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	return decodeRecord(raw)
}

func (s *FileStore) Save(_ context.Context, rec Record) error {
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(s.path, raw)
}

func decodeRecord(raw []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return rec, nil
}
