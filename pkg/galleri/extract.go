package galleri

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/tstromberg/galleri/pkg/csvparse"
	"github.com/tstromberg/galleri/pkg/exifmeta"
	"github.com/tstromberg/galleri/pkg/proc"
	"k8s.io/klog/v2"
)

// MetadataExtractor reports metadata for every photo in a directory, one
// record per photo in a stable order.
type MetadataExtractor interface {
	Extract(ctx context.Context, dir string) ([]exifmeta.Record, error)
}

// ExiftoolCSV runs exiftool in CSV mode.
type ExiftoolCSV struct {
	Runner proc.Runner
	Binary string
}

// Extract implements MetadataExtractor.
func (e *ExiftoolCSV) Extract(ctx context.Context, dir string) ([]exifmeta.Record, error) {
	files, err := ListPhotos(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		klog.Warningf("no photos in %s", dir)
		return nil, nil
	}

	argv := []string{e.Binary, "-S", "-csv", "-G"}
	for _, f := range exifmeta.Requested {
		argv = append(argv, "-"+f.WireName())
	}
	argv = append(argv, files...)

	var out strings.Builder
	err = e.Runner.Run(ctx, dir, argv,
		func(l string) {
			out.WriteString(l)
			out.WriteByte('\n')
		},
		func(l string) { klog.Warningf("exiftool: %s", l) })
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}

	return ParseExiftoolCSV(strings.NewReader(out.String()))
}

// ParseExiftoolCSV converts exiftool -csv output to records. Columns that do
// not name a known field, such as SourceFile, are ignored, as are empty values.
func ParseExiftoolCSV(r io.Reader) ([]exifmeta.Record, error) {
	p := csvparse.NewParser(r)
	header, err := p.ReadRecord()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make([]exifmeta.Field, len(header))
	known := make([]bool, len(header))
	for i, h := range header {
		cols[i], known[i] = exifmeta.ParseField(h)
		if !known[i] {
			klog.V(2).Infof("ignoring exiftool column %q", h)
		}
	}

	var recs []exifmeta.Record
	for {
		row, err := p.ReadRecord()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", len(recs)+1, err)
		}

		rec := exifmeta.Record{}
		for i, v := range row {
			if i < len(cols) && known[i] && v != "" {
				rec[cols[i]] = v
			}
		}
		for k, v := range rec {
			klog.V(2).Infof("%s %q=%v", rec[exifmeta.FileName], k, v)
		}
		recs = append(recs, rec)
	}
}

// ListPhotos returns the sorted names of the JPEG files in dir.
func ListPhotos(dir string) ([]string, error) {
	return listFiles(dir, func(name string) bool {
		return strings.EqualFold(filepath.Ext(name), ".jpg")
	})
}

func listFiles(dir string, keep func(name string) bool) ([]string, error) {
	names, err := godirwalk.ReadDirnames(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var files []string
	for _, n := range names {
		if n[0] == '.' || !keep(n) {
			continue
		}
		files = append(files, n)
	}
	sort.Strings(files)
	return files, nil
}
