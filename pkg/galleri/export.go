package galleri

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

// Export publishes the derivatives and cache of each album under outDir,
// along with an albums.json index, for static hosting. Originals are not copied.
func Export(c *Config, albums []*PopulatedAlbum, outDir string) error {
	klog.Infof("exporting %d albums to %s ...", len(albums), outDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	index := make([]Album, 0, len(albums))
	for _, pa := range albums {
		src := c.AlbumDir(pa.Album)
		dst := filepath.Join(outDir, pa.Album.Directory)

		for _, name := range []string{LargeDir, ThumbDir, CacheFile} {
			from := filepath.Join(src, name)
			if _, err := os.Stat(from); errors.Is(err, fs.ErrNotExist) {
				klog.Warningf("album %q has no %s", pa.Album.Name, name)
				continue
			}
			klog.V(1).Infof("copying %s", from)
			if err := copy.Copy(from, filepath.Join(dst, name)); err != nil {
				return fmt.Errorf("copy %s: %w", from, err)
			}
		}
		index = append(index, pa.Album)
	}

	bs, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	p := filepath.Join(outDir, "albums.json")
	klog.V(1).Infof("writing album index to %s", p)
	return os.WriteFile(p, bs, 0o644)
}
