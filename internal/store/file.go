package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopchat/shopchat/internal/eval"
	"github.com/shopchat/shopchat/internal/shopper"
)

// FileStore keeps the whole record collection in one JSON document. Every
// write is a full load-modify-save cycle under a single mutex; the final
// write goes through a temp file and rename so readers never observe a
// partial document. Single-writer deployment is assumed across processes.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Upsert(ctx context.Context, sess *shopper.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return err
	}
	found := false
	for i := range sessions {
		if sessions[i].Query == sess.Query {
			sess.ID = sessions[i].ID
			sessions[i] = *sess
			found = true
			break
		}
	}
	if !found {
		sess.ID = len(sessions) + 1
		sessions = append(sessions, *sess)
	}
	return s.flush(sessions)
}

func (s *FileStore) List(ctx context.Context) ([]shopper.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) UpdateEvaluation(ctx context.Context, id int, score eval.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return err
	}
	for i := range sessions {
		if sessions[i].ID == id {
			sessions[i].EvaluationScore = score
			return s.flush(sessions)
		}
	}
	return fmt.Errorf("session %d not found", id)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() ([]shopper.Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	var sessions []shopper.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return sessions, nil
}

func (s *FileStore) flush(sessions []shopper.Session) error {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sessions: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".sessions-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
