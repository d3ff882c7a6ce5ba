package kvstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"

	"kinoshka/internal/logging"
)

const stateFileName = "user_state.json"

// FileStore keeps every key in a single JSON object on disk and rewrites the
// file atomically (temp file + rename) on each mutation.
type FileStore struct {
	mu     sync.RWMutex
	fs     afero.Fs
	path   string
	values map[string]string
	closed bool
}

// NewFileStore loads or creates the state file inside dir. A nil fs uses the OS filesystem.
// An undecodable state file is moved aside and the store starts empty.
func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("kvstore: storage directory not provided")
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	s := &FileStore{
		fs:     fs,
		path:   filepath.Join(dir, stateFileName),
		values: make(map[string]string),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.Apply(map[string]*string{key: &value})
}

func (s *FileStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.Apply(map[string]*string{key: nil})
}

func (s *FileStore) Apply(batch map[string]*string) error {
	for key := range batch {
		if err := validateKey(key); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	next := make(map[string]string, len(s.values)+len(batch))
	for k, v := range s.values {
		next[k] = v
	}
	for k, v := range batch {
		if v == nil {
			delete(next, k)
			continue
		}
		next[k] = *v
	}

	if err := s.saveLocked(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.fs.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}

	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("read state file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return s.quarantineLocked(err)
	}
	if values != nil {
		s.values = values
	}
	return nil
}

// quarantineLocked renames an undecodable state file so the next save does
// not overwrite it.
func (s *FileStore) quarantineLocked(cause error) error {
	aside := s.path + ".corrupt-" + time.Now().UTC().Format("20060102T150405")
	if err := s.fs.Rename(s.path, aside); err != nil {
		return fmt.Errorf("move corrupt state file: %w", err)
	}
	log := logging.Component("kvstore")
	log.Warn().Err(cause).Str("path", aside).Msg("state file was unreadable, starting empty")
	return nil
}

func (s *FileStore) saveLocked(values map[string]string) error {
	tmp := s.path + ".tmp"
	file, err := s.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("create state temp file: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("encode state: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write state: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("sync state: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("close state temp file: %w", err)
	}

	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
