package enrollment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const storeVersion = 1

// Backend persists the full set of profiles. Save replaces whatever was
// previously stored, Load returns profiles in insertion order.
type Backend interface {
	Load(ctx context.Context) ([]Profile, error)
	Save(ctx context.Context, profiles []Profile) error
}

type storeDocument struct {
	Version  int       `json:"version"`
	Profiles []Profile `json:"profiles"`
}

// FileBackend keeps profiles in a JSON file. Writes go to a temporary file
// which is then renamed over the previous one.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{
		path: path,
	}
}

func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Load(_ context.Context) ([]Profile, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	var doc storeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptStore, err.Error())
	}

	if doc.Version > storeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptStore, doc.Version)
	}

	return doc.Profiles, nil
}

func (b *FileBackend) Save(_ context.Context, profiles []Profile) error {
	if profiles == nil {
		profiles = []Profile{}
	}

	data, err := json.MarshalIndent(storeDocument{
		Version:  storeVersion,
		Profiles: profiles,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmpPath := b.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}

	if err := os.Rename(tmpPath, b.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace store file: %w", err)
	}

	return nil
}
