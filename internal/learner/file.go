package learner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileRepository keeps every learner in memory and rewrites the whole JSON
// document on each Upsert. A failed write leaves the in-memory record updated.
type FileRepository struct {
	*MemoryRepository
	path string
}

// OpenFileRepository loads path if it exists; a missing file starts empty.
func OpenFileRepository(path string) (*FileRepository, error) {
	r := &FileRepository{
		MemoryRepository: NewMemoryRepository(),
		path:             path,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("reading users file: %w", err)
	}

	var users []*User
	if len(data) > 0 {
		if err := json.Unmarshal(data, &users); err != nil {
			return nil, fmt.Errorf("decoding users file: %w", err)
		}
	}
	for _, u := range users {
		key, err := userKey(u)
		if err != nil {
			return nil, fmt.Errorf("users file: %w", err)
		}
		if _, dup := r.users[key]; dup {
			return nil, fmt.Errorf("users file: duplicate email %s", key)
		}
		r.users[key] = u
	}
	return r, nil
}

// Path returns the backing file location.
func (r *FileRepository) Path() string {
	return r.path
}

func (r *FileRepository) Upsert(_ context.Context, user *User) error {
	key, err := userKey(user)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[key] = user.Clone()
	if err := r.flush(); err != nil {
		return fmt.Errorf("writing users file: %w", err)
	}
	return nil
}

// flush writes the full collection through a temp file and rename. Callers hold mu.
func (r *FileRepository) flush() error {
	data, err := json.MarshalIndent(r.snapshot(), "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".users-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}
