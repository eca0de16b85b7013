package galleri

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"
)

// ExifStripper removes private metadata from every file in a directory, in place.
type ExifStripper interface {
	Strip(ctx context.Context, dir string) error
}

// strippedTags covers the color profile, authorship, and every time and
// location tag.
var strippedTags = []string{
	"ICC_Profile:all",
	"Author:all",
	"Artist",
	"Copyright",
	"Time:all",
	"Location:all",
}

// ExiftoolStripper clears tags through a stay-open exiftool process. The
// originals are overwritten without backups.
type ExiftoolStripper struct {
	Binary string
	// Timeout abandons a stripping pass that runs longer. Zero waits forever.
	Timeout time.Duration
}

// Strip implements ExifStripper. When ctx is done first, Strip returns the
// context error and the exiftool process is left to finish on its own.
func (s *ExiftoolStripper) Strip(ctx context.Context, dir string) error {
	mds, err := stripRequests(dir)
	if err != nil {
		return err
	}
	if len(mds) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	var opts []func(*exiftool.Exiftool) error
	if s.Binary != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(s.Binary))
	}
	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return fmt.Errorf("exiftool: %w", err)
	}

	klog.V(1).Infof("stripping metadata from %d files in %s", len(mds), dir)
	done := make(chan struct{})
	go func() {
		defer close(done)
		et.WriteMetadata(mds)
		if err := et.Close(); err != nil {
			klog.Errorf("failed to close exiftool: %v", err)
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("strip %s: %w", dir, ctx.Err())
	}

	var errs []error
	for _, md := range mds {
		if md.Err != nil {
			errs = append(errs, fmt.Errorf("strip %s: %w", md.File, md.Err))
		}
	}
	return errors.Join(errs...)
}

// stripRequests returns one write request per non-hidden file in dir whose
// name has an extension, each clearing strippedTags.
func stripRequests(dir string) ([]exiftool.FileMetadata, error) {
	files, err := listFiles(dir, func(name string) bool { return strings.Contains(name, ".") })
	if err != nil {
		return nil, err
	}

	mds := make([]exiftool.FileMetadata, len(files))
	for i, f := range files {
		mds[i] = exiftool.FileMetadata{File: filepath.Join(dir, f), Fields: map[string]interface{}{}}
		for _, t := range strippedTags {
			mds[i].Clear(t)
		}
	}
	return mds, nil
}
