package blobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/dmitrijs2005/bodypace/internal/filex"
	"github.com/google/uuid"
)

const stagingDir = ".staging"

// FileStore implements Store on the local filesystem.
// Blobs live at {baseDir}/{ownerID}/{name}. Writes are staged in
// {baseDir}/.staging and renamed into place, so readers never see a
// partially written blob.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a file-based blob store. The base directory is
// created if it does not exist; relative paths resolve against the working
// directory.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, ErrInvalidBaseDir
	}

	dir, err := filex.EnsureDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if _, err := filex.EnsureDir(filepath.Join(dir, stagingDir)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	return &FileStore{baseDir: dir}, nil
}

// BaseDir returns the absolute base directory.
func (s *FileStore) BaseDir() string { return s.baseDir }

func (s *FileStore) namespaceDir(ownerID int64) string {
	return filepath.Join(s.baseDir, strconv.FormatInt(ownerID, 10))
}

func (s *FileStore) filePath(ownerID int64, name string) string {
	return filepath.Join(s.namespaceDir(ownerID), name)
}

func (s *FileStore) Write(ctx context.Context, ownerID int64, name string, content []byte) error {
	if err := validate(ownerID, name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.namespaceDir(ownerID), 0o700); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	tmp := filepath.Join(s.baseDir, stagingDir, uuid.NewString())
	if err := os.WriteFile(tmp, content, 0o600); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if err := os.Rename(tmp, s.filePath(ownerID, name)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	return nil
}

func (s *FileStore) Read(ctx context.Context, ownerID int64, name string) (io.ReadCloser, error) {
	if err := validate(ownerID, name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.filePath(ownerID, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	return f, nil
}

func (s *FileStore) Delete(ctx context.Context, ownerID int64, name string) error {
	if err := validate(ownerID, name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath(ownerID, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	return nil
}

func (s *FileStore) ListNames(ctx context.Context, ownerID int64) ([]string, error) {
	if ownerID <= 0 {
		return nil, ErrInvalidOwner
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listNames(ownerID)
}

func (s *FileStore) listNames(ownerID int64) ([]string, error) {
	entries, err := os.ReadDir(s.namespaceDir(ownerID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}

	return names, nil
}

func (s *FileStore) PruneNamespace(ctx context.Context, ownerID int64) (bool, error) {
	if ownerID <= 0 {
		return false, ErrInvalidOwner
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.namespaceDir(ownerID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if len(entries) > 0 {
		return false, nil
	}

	if err := os.Remove(s.namespaceDir(ownerID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	return true, nil
}
