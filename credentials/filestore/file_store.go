package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/pkg/errors"
)

const defaultFileName = "credentials.json"

var _ credentials.BatchStore = (*Store)(nil)

// Store persists credentials as a JSON object in a single file. Every write
// rewrites the file through a temp file and a rename.
type Store struct {
	path   string
	mu     sync.RWMutex
	values map[string]string
}

// New opens (or creates on first write) the credentials file in folder.
func New(folder string) (*Store, error) {
	if folder == "" {
		return nil, errors.New("[filestore.New] folder is required")
	}
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[filestore.New] mkdir")
	}
	s := &Store{
		path:   filepath.Join(folder, defaultFileName),
		values: make(map[string]string),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path is the backing file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Set(key, value string) error {
	return s.SetMany(map[string]string{key: value})
}

func (s *Store) SetMany(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.copyValues()
	for k, v := range values {
		next[k] = v
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *Store) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Clear(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]string)
	if len(keys) > 0 {
		next = s.copyValues()
		for _, k := range keys {
			delete(next, k)
		}
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[filestore] read")
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, &s.values); err != nil {
		return errors.Wrap(err, "[filestore] decode")
	}
	return nil
}

func (s *Store) persist(values map[string]string) error {
	b, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[filestore] encode")
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*.tmp")
	if err != nil {
		return errors.Wrap(err, "[filestore] create temp")
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[filestore] chmod")
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[filestore] write")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[filestore] sync")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[filestore] close")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "[filestore] rename")
	}
	return nil
}

func (s *Store) copyValues() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
