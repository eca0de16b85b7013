package galleri

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tstromberg/galleri/pkg/exifmeta"
)

type fakeExtractor struct {
	mu    sync.Mutex
	recs  map[string][]exifmeta.Record
	fail  map[string]error
	calls []string
}

func (f *fakeExtractor) Extract(_ context.Context, dir string) ([]exifmeta.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dir)
	if err := f.fail[dir]; err != nil {
		return nil, err
	}
	return f.recs[dir], nil
}

type resizeCall struct {
	Src, Dst  string
	Dim       int
	Thumbnail bool
}

// fakeTransformer copies src to dst.
type fakeTransformer struct {
	mu    sync.Mutex
	calls []resizeCall
}

func (f *fakeTransformer) Resize(_ context.Context, src, dst string, dim int, thumbnail bool) error {
	f.mu.Lock()
	f.calls = append(f.calls, resizeCall{src, dst, dim, thumbnail})
	f.mu.Unlock()

	bs, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, bs, 0o644)
}

type fakeStripper struct {
	dirs []string
	err  error
}

func (f *fakeStripper) Strip(_ context.Context, dir string) error {
	f.dirs = append(f.dirs, dir)
	return f.err
}

var errBoom = errors.New("boom")

// testLibrary creates a root with an index and an album directory per name,
// each holding the given originals.
type testLibrary struct {
	c   *Config
	ext *fakeExtractor
	tr  *fakeTransformer
	st  *fakeStripper
	s   *Scanner
}

func newTestLibrary(t *testing.T, index string, albums map[string][]string) *testLibrary {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "albums.csv"), []byte(index), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	ext := &fakeExtractor{recs: map[string][]exifmeta.Record{}, fail: map[string]error{}}
	for dir, files := range albums {
		orig := filepath.Join(root, dir, OriginalDir)
		if err := os.MkdirAll(orig, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		for i, f := range files {
			if err := os.WriteFile(filepath.Join(orig, f), []byte("jpeg "+f), 0o644); err != nil {
				t.Fatalf("write original: %v", err)
			}
			ext.recs[orig] = append(ext.recs[orig], exifmeta.Record{
				exifmeta.FileName:           f,
				exifmeta.DateTimeOriginal:   "2021:06:0" + string(rune('1'+i)) + " 10:00:00",
				exifmeta.OffsetTimeOriginal: "+02:00",
				exifmeta.ImageWidth:         "4000",
				exifmeta.ImageHeight:        "3000",
			})
		}
	}

	c := DefaultConfig()
	c.Root = root
	l := &testLibrary{c: c, ext: ext, tr: &fakeTransformer{}, st: &fakeStripper{}}
	l.s = &Scanner{c: c, Extractor: l.ext, Transformer: l.tr, Stripper: l.st}
	return l
}

func (l *testLibrary) origDir(dir string) string {
	return filepath.Join(l.c.Root, dir, OriginalDir)
}
