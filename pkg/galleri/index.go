package galleri

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tstromberg/galleri/pkg/csvparse"
	"k8s.io/klog/v2"
)

// IndexHeader is the column order galleri writes to new index files.
var IndexHeader = []string{"name", "year", "month", "directory", "cover"}

// ReadIndex reads an album index: a header row followed by one album per row.
// Rows without a name, directory or cover are skipped.
func ReadIndex(r io.Reader) ([]Album, error) {
	p := csvparse.NewParser(r)
	header, err := p.ReadRecord()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var albums []Album
	for {
		row, err := p.ReadMap(header)
		if err == io.EOF {
			return albums, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read index: %w", err)
		}

		a := Album{
			ID:        len(albums),
			Name:      strings.TrimSpace(row["name"]),
			Directory: strings.TrimSpace(row["directory"]),
			Cover:     strings.TrimSpace(row["cover"]),
		}
		if a.Name == "" || a.Directory == "" || a.Cover == "" {
			klog.V(1).Infof("skipping incomplete index row: %v", row)
			continue
		}
		a.Year = indexInt(a, "year", row["year"])
		a.Month = indexInt(a, "month", row["month"])
		albums = append(albums, a)
	}
}

func indexInt(a Album, col string, v string) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		klog.Warningf("album %q: invalid %s %q, using 0", a.Name, col, v)
		return 0
	}
	return n
}

// IndexFields returns the album as an index row for the given header.
func (a Album) IndexFields(header []string) []string {
	num := func(n int) string {
		if n == 0 {
			return ""
		}
		return strconv.Itoa(n)
	}

	fields := make([]string, len(header))
	for i, h := range header {
		switch h {
		case "name":
			fields[i] = a.Name
		case "year":
			fields[i] = num(a.Year)
		case "month":
			fields[i] = num(a.Month)
		case "directory":
			fields[i] = a.Directory
		case "cover":
			fields[i] = a.Cover
		}
	}
	return fields
}
