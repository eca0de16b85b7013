package galleri

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tstromberg/galleri/pkg/exifmeta"
	"github.com/tstromberg/galleri/pkg/proc"
	"k8s.io/klog/v2"
)

// Scanner loads albums, scanning and processing those without a cache.
// Albums are handled one at a time.
type Scanner struct {
	c *Config

	Extractor   MetadataExtractor
	Transformer ImageTransformer
	Stripper    ExifStripper
}

// NewScanner returns a Scanner wired to the external tools named in c.
func NewScanner(c *Config) (*Scanner, error) {
	runner := proc.Exec{Timeout: c.ToolTimeout}
	s := &Scanner{
		c:         c,
		Extractor: &ExiftoolCSV{Runner: runner, Binary: c.Exiftool},
		Stripper:  &ExiftoolStripper{Binary: c.Exiftool, Timeout: c.ToolTimeout},
	}

	switch c.Resizer {
	case "", "magick":
		s.Transformer = &MagickTransformer{Runner: runner, Binary: c.Convert}
	case "bild":
		s.Transformer = &BildTransformer{Quality: c.Quality}
	default:
		return nil, fmt.Errorf("unknown resizer %q", c.Resizer)
	}
	return s, nil
}

// LoadAlbums reads the index and loads every album in it. An album that
// fails to load is logged and left out; only an unreadable index is an error.
func (s *Scanner) LoadAlbums(ctx context.Context) ([]*PopulatedAlbum, error) {
	path := s.c.IndexPath()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	as, err := ReadIndex(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	klog.Infof("loading %d albums from %s ...", len(as), path)
	loaded := []*PopulatedAlbum{}
	for _, a := range as {
		if err := ctx.Err(); err != nil {
			return loaded, err
		}
		pa, err := s.LoadAlbum(ctx, a)
		if err != nil {
			klog.Errorf("skipping album %q: %v", a.Name, err)
			continue
		}
		loaded = append(loaded, pa)
	}
	klog.Infof("loaded %d of %d albums", len(loaded), len(as))
	return loaded, nil
}

// LoadAlbum returns the cached album if its metadata.json exists, and
// otherwise scans and processes it.
func (s *Scanner) LoadAlbum(ctx context.Context, a Album) (*PopulatedAlbum, error) {
	dir := s.c.AlbumDir(a)
	pa, err := ReadCache(dir)
	if err == nil {
		klog.V(1).Infof("album %q: cached with %d photos", a.Name, len(pa.Photos))
		// ids are per run; the cached one may come from an older index
		pa.Album.ID = a.ID
		return pa, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	return s.ScanAndProcessAlbum(ctx, a)
}

// ScanAndProcessAlbum extracts metadata for every original, generates the
// large derivatives, strips their metadata, generates thumbnails from them and
// writes the cache. Existing derivatives are kept. Any failure abandons the
// album without writing a cache.
func (s *Scanner) ScanAndProcessAlbum(ctx context.Context, a Album) (*PopulatedAlbum, error) {
	dir := s.c.AlbumDir(a)
	orig := filepath.Join(dir, OriginalDir)
	large := filepath.Join(dir, LargeDir)
	thumb := filepath.Join(dir, ThumbDir)

	klog.Infof("album %q: scanning metadata in %s", a.Name, orig)
	recs, err := s.Extractor.Extract(ctx, orig)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	res := exifmeta.NewResolver()
	res.ZoneFromGPS = s.c.ZoneFromGPS
	photos, err := photosFromRecords(recs, res)
	if err != nil {
		return nil, err
	}

	klog.Infof("album %q: generating large derivatives for %d photos", a.Name, len(photos))
	if err := s.derive(ctx, photos, orig, large, s.c.LargeSize, false); err != nil {
		return nil, fmt.Errorf("large derivatives: %w", err)
	}

	klog.Infof("album %q: stripping metadata in %s", a.Name, large)
	if err := s.Stripper.Strip(ctx, large); err != nil {
		return nil, fmt.Errorf("strip: %w", err)
	}

	klog.Infof("album %q: generating thumbnails", a.Name)
	if err := s.derive(ctx, photos, large, thumb, s.c.ThumbSize, true); err != nil {
		return nil, fmt.Errorf("thumbnails: %w", err)
	}

	pa := &PopulatedAlbum{Album: a, Photos: photos}
	if err := WriteCache(dir, pa); err != nil {
		return nil, fmt.Errorf("write cache: %w", err)
	}
	klog.Infof("album %q: cached %d photos", a.Name, len(photos))
	return pa, nil
}

// derive creates dstDir/<name> from srcDir/<name> for every photo lacking one.
func (s *Scanner) derive(ctx context.Context, photos []Photo, srcDir, dstDir string, dim int, thumbnail bool) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	for _, p := range photos {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := filepath.Join(dstDir, p.Filename)
		if _, err := os.Stat(dst); err == nil {
			klog.V(2).Infof("%s exists", dst)
			continue
		}
		if err := s.Transformer.Resize(ctx, filepath.Join(srcDir, p.Filename), dst, dim, thumbnail); err != nil {
			return fmt.Errorf("resize %s: %w", p.Filename, err)
		}
	}
	return nil
}

func photosFromRecords(recs []exifmeta.Record, res *exifmeta.Resolver) ([]Photo, error) {
	photos := make([]Photo, 0, len(recs))
	for i, rec := range recs {
		name := rec[exifmeta.FileName]
		if name == "" {
			return nil, fmt.Errorf("metadata record %d has no file name", i)
		}

		ts, err := res.Resolve(name, rec)
		if err != nil {
			return nil, err
		}

		photos = append(photos, Photo{
			ID:          i,
			Filename:    name,
			Description: rec[exifmeta.Description],
			Width:       rec.Int(exifmeta.ImageWidth),
			Height:      rec.Int(exifmeta.ImageHeight),
			Timestamp:   ts,
			GPS: NewGPS(
				rec.Float(exifmeta.GPSLatitude),
				rec.Float(exifmeta.GPSLongitude),
				rec.Float(exifmeta.GPSAltitude)),
		})
	}
	return photos, nil
}
