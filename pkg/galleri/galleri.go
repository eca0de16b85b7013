// Package galleri turns a directory of photo albums into a cached catalog:
// it reads the album index, extracts metadata with exiftool, generates
// derivatives and persists each album as metadata.json.
package galleri

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Subdirectories and files inside an album directory.
const (
	OriginalDir = "original"
	LargeDir    = "large"
	ThumbDir    = "thumb"
	CacheFile   = "metadata.json"
)

// Config holds configuration for galleri. It is built once at startup and
// passed to everything that needs it.
type Config struct {
	// Root contains one subdirectory per album.
	Root string `yaml:"root"`
	// Index is the album index CSV. Defaults to albums.csv under Root.
	Index string `yaml:"index"`

	LargeSize int `yaml:"large_size"`
	ThumbSize int `yaml:"thumb_size"`
	Quality   int `yaml:"quality"`

	Exiftool string `yaml:"exiftool"`
	Convert  string `yaml:"convert"`
	// Resizer is "magick" to shell out to ImageMagick or "bild" to resize in-process.
	Resizer string `yaml:"resizer"`
	// ToolTimeout bounds each tool run and each stripping pass. Zero waits forever.
	ToolTimeout time.Duration `yaml:"tool_timeout"`
	ZoneFromGPS bool          `yaml:"zone_from_gps"`

	Addr         string  `yaml:"addr"`
	RowHeight    float64 `yaml:"row_height"`
	RowTolerance float64 `yaml:"row_tolerance"`
	BoxSpacing   float64 `yaml:"box_spacing"`
	Padding      float64 `yaml:"padding"`
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() *Config {
	return &Config{
		LargeSize:    2048,
		ThumbSize:    400,
		Quality:      85,
		Exiftool:     "exiftool",
		Convert:      "convert",
		Resizer:      "magick",
		ToolTimeout:  10 * time.Minute,
		Addr:         "localhost:12800",
		RowHeight:    320,
		RowTolerance: 0.25,
		BoxSpacing:   10,
		Padding:      10,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(bs, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

// IndexPath returns the location of the album index.
func (c *Config) IndexPath() string {
	if c.Index != "" {
		return c.Index
	}
	return filepath.Join(c.Root, "albums.csv")
}

// AlbumDir returns the directory backing an album.
func (c *Config) AlbumDir(a Album) string {
	return filepath.Join(c.Root, a.Directory)
}
