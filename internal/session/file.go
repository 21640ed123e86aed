package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cashcount/internal/core"
)

const credentialsFile = "credentials.json"

// FileStore keeps the CLI's credential record on disk, readable only by
// the owner.
type FileStore struct {
	path string
}

// NewFileStore stores credentials in dir. An empty dir resolves to
// <user config dir>/cashcount.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locate config dir: %w", err)
		}
		dir = filepath.Join(base, "cashcount")
	}
	return &FileStore{path: filepath.Join(dir, credentialsFile)}, nil
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Save(creds core.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	b, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Load returns ErrNotFound when nobody is logged in.
func (f *FileStore) Load() (core.Credentials, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Credentials{}, ErrNotFound
	}
	if err != nil {
		return core.Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	var creds core.Credentials
	if err := json.Unmarshal(b, &creds); err != nil {
		return core.Credentials{}, fmt.Errorf("decode %s: %w", f.path, err)
	}
	if creds.IsZero() {
		return core.Credentials{}, ErrNotFound
	}
	return creds, nil
}

// Delete removes the record. Deleting a missing record is not an error.
func (f *FileStore) Delete() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
