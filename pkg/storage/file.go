package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hdowatch/hdowatch/pkg/types"
	"github.com/levenlabs/go-lflag"
)

const (
	settingsFile = "settings.json"
	scheduleFile = "schedule.json"
)

// FileProvider implements the Database interface with JSON files on disk.
// It suits single-instance deployments where the schedule snapshot must
// survive restarts without any external service.
type FileProvider struct {
	path string

	mu sync.Mutex
}

// settingsDoc wraps persisted settings with their migration version.
type settingsDoc struct {
	JSON    types.Settings `json:"json"`
	Version int            `json:"version"`
}

// configuredFile sets up the file provider and registers its flags.
func configuredFile() *FileProvider {
	path := lflag.String("storage-path", "data", "Directory for file storage")

	f := &FileProvider{}

	lflag.Do(func() {
		f.path = *path
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FileProvider) Validate() error {
	if f.path == "" {
		return fmt.Errorf("storage-path is required")
	}
	return nil
}

// Close is a no-op; every write is flushed when it happens.
func (f *FileProvider) Close() error {
	return nil
}

// GetSettings retrieves the persisted settings. Missing settings are not an
// error; defaults at version 0 are returned so migration fills them in.
func (f *FileProvider) GetSettings(ctx context.Context) (types.Settings, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(filepath.Join(f.path, settingsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return types.Settings{}, 0, nil
		}
		return types.Settings{}, 0, fmt.Errorf("failed to read settings file: %w", err)
	}

	var doc settingsDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return types.Settings{}, 0, fmt.Errorf("failed to unmarshal settings file: %w", err)
	}
	return doc.JSON, doc.Version, nil
}

// SetSettings saves the settings together with their migration version.
func (f *FileProvider) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.writeFile(settingsFile, settingsDoc{JSON: settings, Version: version})
}

// GetCachedSchedule returns the persisted schedule snapshot.
func (f *FileProvider) GetCachedSchedule(ctx context.Context) (types.CachedSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(filepath.Join(f.path, scheduleFile))
	if err != nil {
		if os.IsNotExist(err) {
			return types.CachedSchedule{}, ErrScheduleNotCached
		}
		return types.CachedSchedule{}, fmt.Errorf("failed to read schedule file: %w", err)
	}

	var snapshot types.CachedSchedule
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return types.CachedSchedule{}, fmt.Errorf("failed to unmarshal schedule file: %w", err)
	}
	return snapshot, nil
}

// PutCachedSchedule replaces the persisted schedule snapshot.
func (f *FileProvider) PutCachedSchedule(ctx context.Context, snapshot types.CachedSchedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.writeFile(scheduleFile, snapshot)
}

// writeFile marshals v and writes it via a temp file rename so readers never
// observe a partially written document. Callers must hold f.mu.
func (f *FileProvider) writeFile(name string, v interface{}) error {
	if err := os.MkdirAll(f.path, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := filepath.Join(f.path, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
