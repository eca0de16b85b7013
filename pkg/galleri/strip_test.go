package galleri

import (
	"context"
	"errors"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/barasher/go-exiftool"
	"github.com/google/go-cmp/cmp"
)

func TestStripRequests(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.JPG", "a.jpg", ".hidden.jpg", "README", "notes.txt")

	mds, err := stripRequests(dir)
	if err != nil {
		t.Fatalf("stripRequests failed: %v", err)
	}

	var files []string
	for _, md := range mds {
		files = append(files, md.File)
	}
	want := []string{filepath.Join(dir, "a.jpg"), filepath.Join(dir, "b.JPG"), filepath.Join(dir, "notes.txt")}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	wantTags := []string{"Artist", "Author:all", "Copyright", "ICC_Profile:all", "Location:all", "Time:all"}
	for _, md := range mds {
		var tags []string
		for k, v := range md.Fields {
			if v != nil {
				t.Errorf("%s: %s = %v, want cleared", md.File, k, v)
			}
			tags = append(tags, k)
		}
		sort.Strings(tags)
		if diff := cmp.Diff(wantTags, tags); diff != "" {
			t.Errorf("%s: cleared tags mismatch (-want +got):\n%s", md.File, diff)
		}
	}
}

func TestStripRequestsMissingDir(t *testing.T) {
	if _, err := stripRequests(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("stripRequests succeeded on a missing directory")
	}
}

func TestExiftoolStripperEmptyDir(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, ".DS_Store", "README")

	s := &ExiftoolStripper{Binary: "/nonexistent/exiftool"}
	if err := s.Strip(t.Context(), dir); err != nil {
		t.Errorf("Strip(empty) = %v, want nil without starting exiftool", err)
	}
}

func TestExiftoolStripperCanceled(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	s := &ExiftoolStripper{Binary: "/nonexistent/exiftool"}
	if err := s.Strip(ctx, dir); !errors.Is(err, context.Canceled) {
		t.Errorf("Strip error = %v, want context.Canceled", err)
	}
}

func TestExiftoolStripperTimeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skipf("sleep not available: %v", err)
	}
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg")

	// never answers on the stay-open protocol
	bin := filepath.Join(t.TempDir(), "exiftool")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexec sleep 5\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := &ExiftoolStripper{Binary: bin, Timeout: 100 * time.Millisecond}
	start := time.Now()
	err := s.Strip(t.Context(), dir)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Strip error = %v, want deadline exceeded", err)
	}
	if d := time.Since(start); d > 3*time.Second {
		t.Errorf("Strip took %v, want it to give up after the timeout", d)
	}
}

func TestExiftoolStripper(t *testing.T) {
	bin, err := exec.LookPath("exiftool")
	if err != nil {
		t.Skipf("exiftool not available: %v", err)
	}
	dir := t.TempDir()
	if err := imgio.Save(filepath.Join(dir, "a.jpg"), image.NewRGBA(image.Rect(0, 0, 8, 8)), imgio.JPEGEncoder(90)); err != nil {
		t.Fatalf("save: %v", err)
	}

	p := filepath.Join(dir, "a.jpg")
	et, err := exiftool.NewExiftool(exiftool.SetExiftoolBinaryPath(bin))
	if err != nil {
		t.Fatalf("NewExiftool failed: %v", err)
	}
	defer et.Close()

	md := exiftool.FileMetadata{File: p, Fields: map[string]interface{}{}}
	md.SetString("Artist", "Someone")
	mds := []exiftool.FileMetadata{md}
	et.WriteMetadata(mds)
	if mds[0].Err != nil {
		t.Fatalf("tagging fixture: %v", mds[0].Err)
	}

	if err := (&ExiftoolStripper{Binary: bin, Timeout: time.Minute}).Strip(t.Context(), dir); err != nil {
		t.Fatalf("Strip failed: %v", err)
	}

	got := et.ExtractMetadata(p)
	if len(got) != 1 || got[0].Err != nil {
		t.Fatalf("ExtractMetadata = %+v", got)
	}
	if v, err := got[0].GetString("Artist"); err == nil {
		t.Errorf("Artist = %q after strip, want removed", v)
	}
	if _, err := imgio.Open(p); err != nil {
		t.Errorf("stripped file unreadable: %v", err)
	}
}
