package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samvad-hq/outage-bot/internal/domain"
)

// fileStore keeps one marker file per announced entry at <dir>/<service>-<id>.
type fileStore struct {
	dir string
}

// openFile prepares the cache directory. An already existing directory is fine;
// any other failure is returned.
func openFile(dir string) (Store, error) {
	if err := os.Mkdir(dir, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat cache directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cache path %s is not a directory", dir)
	}
	return &fileStore{dir: dir}, nil
}

func (f *fileStore) Close() error { return nil }

func (f *fileStore) path(service, id string) string {
	return filepath.Join(f.dir, MarkerKey(service, id))
}

// HasAnnounced reports whether a marker file exists for the pair.
func (f *fileStore) HasAnnounced(service, id string) (bool, error) {
	_, err := os.Stat(f.path(service, id))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat marker: %w", err)
	}
}

// MarkAnnounced writes the serialized entry as the marker. Rewriting an
// existing marker replaces it with the same content.
func (f *fileStore) MarkAnnounced(service, id string, entry domain.FeedEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	target := f.path(service, id)
	tmp, err := os.CreateTemp(f.dir, ".marker-*")
	if err != nil {
		return fmt.Errorf("create marker temp file: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close marker: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit marker: %w", err)
	}
	return nil
}
