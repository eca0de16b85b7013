// albumindex proposes index rows for album directories missing from the index
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"

	"github.com/tstromberg/galleri/pkg/csvparse"
	"github.com/tstromberg/galleri/pkg/galleri"
)

var (
	root  = flag.String("root", "", "directory containing one subdirectory per album")
	index = flag.String("index", "", "album index CSV (default: <root>/albums.csv)")
	write = flag.Bool("w", false, "append the proposed rows to the index instead of printing them")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	c := galleri.DefaultConfig()
	c.Root = *root
	c.Index = *index
	if c.Root == "" && flag.NArg() > 0 {
		c.Root = flag.Arg(0)
	}
	if c.Root == "" {
		klog.Exitf("usage: albumindex [-w] --root <dir>")
	}

	header, known, err := readIndex(c.IndexPath())
	if err != nil {
		klog.Exitf("index: %v", err)
	}

	as, err := unindexed(c, known)
	if err != nil {
		klog.Exitf("scan: %v", err)
	}
	if len(as) == 0 {
		klog.Infof("every album in %s is indexed", c.Root)
		return
	}

	if !*write {
		for _, a := range as {
			fmt.Println(csvparse.FormatRecord(a.IndexFields(header)))
		}
		return
	}
	if err := appendIndex(c.IndexPath(), header, as); err != nil {
		klog.Exitf("append: %v", err)
	}
	klog.Infof("added %d albums to %s", len(as), c.IndexPath())
}

// readIndex returns the header and albums of an index. A missing index has
// the default header and no albums.
func readIndex(path string) ([]string, []galleri.Album, error) {
	bs, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return galleri.IndexHeader, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	header, err := csvparse.NewParser(strings.NewReader(string(bs))).ReadRecord()
	if err == io.EOF {
		return galleri.IndexHeader, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	as, err := galleri.ReadIndex(strings.NewReader(string(bs)))
	if err != nil {
		return nil, nil, err
	}
	return header, as, nil
}

// unindexed returns an album for each directory under c.Root that holds
// originals but is not in known. Year and month come from the earliest photo
// in the album cache, when one exists.
func unindexed(c *galleri.Config, known []galleri.Album) ([]galleri.Album, error) {
	seen := map[string]bool{}
	for _, a := range known {
		seen[filepath.Clean(a.Directory)] = true
	}

	des, err := godirwalk.ReadDirents(c.Root, nil)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.Root, err)
	}
	sort.Sort(des)

	var as []galleri.Album
	for _, de := range des {
		name := de.Name()
		if !de.IsDir() || strings.HasPrefix(name, ".") || seen[name] {
			continue
		}
		orig := filepath.Join(c.Root, name, galleri.OriginalDir)
		photos, err := galleri.ListPhotos(orig)
		if err != nil || len(photos) == 0 {
			klog.V(1).Infof("%s has no originals", name)
			continue
		}

		a := galleri.Album{Name: name, Directory: name, Cover: photos[0]}
		if t := earliest(filepath.Join(c.Root, name)); !t.IsZero() {
			a.Year, a.Month = t.Year(), int(t.Month())
		} else {
			klog.Infof("no date for %s", name)
		}
		as = append(as, a)
	}
	return as, nil
}

func earliest(dir string) time.Time {
	pa, err := galleri.ReadCache(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			klog.Warningf("%s: %v", dir, err)
		}
		return time.Time{}
	}

	var first time.Time
	for _, p := range pa.Photos {
		if !p.Timestamp.IsZero() && (first.IsZero() || p.Timestamp.Before(first)) {
			first = p.Timestamp
		}
	}
	return first
}

// appendIndex adds rows to the index, creating it with a header if needed.
func appendIndex(path string, header []string, as []galleri.Album) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	var b strings.Builder
	switch {
	case len(existing) == 0:
		b.WriteString(csvparse.FormatRecord(header) + "\n")
	case existing[len(existing)-1] != '\n':
		b.WriteString("\n")
	}
	for _, a := range as {
		b.WriteString(csvparse.FormatRecord(a.IndexFields(header)) + "\n")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
