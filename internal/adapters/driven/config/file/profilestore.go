package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure ProfileStore implements the interface.
var _ driven.ProfileSource = (*ProfileStore)(nil)

// reloadDebounce groups the burst of events an editor save produces.
const reloadDebounce = 200 * time.Millisecond

// ProfileStore reads profiles from a YAML (.yaml, .yml) or TOML (.toml)
// file. The file is re-read on every call so edits apply to the next job.
type ProfileStore struct {
	path     string
	defaults Defaults
}

// NewProfileStore creates a store for the file at path.
func NewProfileStore(path string, defaults Defaults) *ProfileStore {
	return &ProfileStore{path: path, defaults: defaults}
}

// Path returns the profiles file path.
func (s *ProfileStore) Path() string {
	return s.path
}

// read parses the file. A missing file yields no profiles.
func (s *ProfileStore) read() (*profilesFile, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &profilesFile{Version: 1}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profiles: %w", err)
	}

	var f profilesFile
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".toml":
		err = toml.Unmarshal(data, &f)
	default:
		if len(bytes.TrimSpace(data)) == 0 {
			return &profilesFile{Version: 1}, nil
		}
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrInvalidConfig, s.path, err)
	}
	return &f, nil
}

// LoadProfile returns the named profile with defaults applied.
func (s *ProfileStore) LoadProfile(_ context.Context, name string) (*domain.Profile, error) {
	f, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, entry := range f.Profiles {
		if entry.Name == name {
			return entry.toProfile(filepath.Dir(s.path), s.defaults)
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, name)
}

// ListProfiles returns profile names in file order.
func (s *ProfileStore) ListProfiles(_ context.Context) ([]string, error) {
	f, err := s.read()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.Profiles))
	for _, entry := range f.Profiles {
		if entry.Name != "" && !slices.Contains(names, entry.Name) {
			names = append(names, entry.Name)
		}
	}
	return names, nil
}

// Watch calls onChange after the profiles file is written, created or
// replaced, until ctx is done. The parent directory is watched because
// editors often save by renaming a temp file over the original.
func (s *ProfileStore) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Info("profiles.watch path=%s", s.path)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !s.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			logger.Info("profiles.reload path=%s", s.path)
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("profiles.watch.error err=%v", err)
		}
	}
}

// relevant reports whether event touches the profiles file in a way that
// changes its content.
func (s *ProfileStore) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(s.path) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}
