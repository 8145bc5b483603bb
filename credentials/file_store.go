package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	clienterrors "github.com/jrsteele09/callscreen-client/internal/errors"
)

var _ Store = (*FileStore)(nil)

// FileStore persists the credential as a JSON file readable only by the owner
// and mirrors it in memory.
type FileStore struct {
	path   string
	cred   Credential
	loaded bool
	lock   sync.RWMutex
}

// OpenFileStore reads the credential file at path, if any. A file that cannot be
// decoded is treated as no credential; it is replaced on the next Set or Clear.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if err := s.load(); err != nil && !errors.Is(err, clienterrors.ErrCorruptCredential) {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read credential file: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return clienterrors.Wrapf(clienterrors.ErrCorruptCredential, "decode %s", s.path)
	}
	if cred.IsZero() {
		return nil
	}
	s.cred = cred
	s.loaded = true
	return nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get() (Credential, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.cred, s.loaded
}

// Set updates the in-memory mirror and then the file. The mirror is updated even
// when the write fails so the running process keeps its session.
func (s *FileStore) Set(cred Credential) error {
	if cred.IsZero() {
		return s.Clear()
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.cred = cred
	s.loaded = true

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	return s.writeAtomic(data)
}

func (s *FileStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.cred = Credential{}
	s.loaded = false

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}

func (s *FileStore) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod credential file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credential file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}
