package sim

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// BestStore persists the personal best across runs. Implementations may fail;
// the engine treats every failure as "no stored best".
type BestStore interface {
	Load() (int, error)
	Save(best int) error
}

type bestRecord struct {
	Best int `json:"best"`
}

// FileBestStore keeps the personal best in a small JSON file, one file per
// session owner.
type FileBestStore struct {
	mu   sync.Mutex
	path string
}

func NewFileBestStore(path string) *FileBestStore {
	return &FileBestStore{path: path}
}

func (s *FileBestStore) Load() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	var record bestRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return 0, err
	}
	return record.Best, nil
}

func (s *FileBestStore) Save(best int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(bestRecord{Best: best})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
