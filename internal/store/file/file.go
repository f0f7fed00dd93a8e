// Package file keeps the configuration aggregate in a single JSON file.
package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/store"
)

const filePerm = 0o600

type Repository struct {
	path string
	// mu orders writers inside this process; rename makes each write atomic for readers.
	mu sync.Mutex
}

func NewRepository(path string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, domain.StorageError("Failed to create configuration directory", err)
	}
	return &Repository{path: path}, nil
}

// Read loads the document. A missing file is a fresh install; anything else
// that fails is reported, never replaced with defaults.
func (r *Repository) Read(_ context.Context) (*domain.Aggregate, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewAggregate(), nil
	}
	if err != nil {
		return nil, domain.StorageError("Failed to read configuration", err)
	}
	return store.DecodeAggregate(data)
}

// Write replaces the file through a temp file and rename in the same directory.
func (r *Repository) Write(_ context.Context, agg *domain.Aggregate) error {
	data, err := store.EncodeAggregate(agg)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(r.path), "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return domain.StorageError("Failed to write configuration", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return domain.StorageError("Failed to write configuration", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return domain.StorageError("Failed to write configuration", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return domain.StorageError("Failed to write configuration", err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		cleanup()
		return domain.StorageError("Failed to write configuration", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		cleanup()
		return domain.StorageError("Failed to write configuration", err)
	}
	return nil
}

func (r *Repository) Ping(_ context.Context) error {
	if _, err := os.Stat(filepath.Dir(r.path)); err != nil {
		return domain.StorageError("Configuration directory unavailable", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return nil
}

var _ store.Repository = (*Repository)(nil)
