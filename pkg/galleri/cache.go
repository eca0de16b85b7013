package galleri

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CachePath returns the metadata cache of an album directory.
func CachePath(dir string) string {
	return filepath.Join(dir, CacheFile)
}

// ReadCache loads a cached album. A missing cache yields an error matching
// fs.ErrNotExist.
func ReadCache(dir string) (*PopulatedAlbum, error) {
	bs, err := os.ReadFile(CachePath(dir))
	if err != nil {
		return nil, err
	}

	pa := &PopulatedAlbum{}
	if err := json.Unmarshal(bs, pa); err != nil {
		return nil, fmt.Errorf("parse %s: %w", CachePath(dir), err)
	}
	return pa, nil
}

// WriteCache stores an album. The file is replaced atomically so readers
// never see a partial cache.
func WriteCache(dir string, pa *PopulatedAlbum) error {
	bs, err := json.MarshalIndent(pa, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	f, err := os.CreateTemp(dir, ".metadata-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(bs); err != nil {
		f.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	return os.Rename(f.Name(), CachePath(dir))
}
