package galleri

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tstromberg/galleri/pkg/exifmeta"
	"github.com/tstromberg/galleri/pkg/proc"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(n), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
}

func TestListPhotos(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.JPG", "a.jpg", "notes.txt", ".hidden.jpg", "c.jpeg")
	if err := os.Mkdir(filepath.Join(dir, "sub.jpg.d"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := ListPhotos(dir)
	if err != nil {
		t.Fatalf("ListPhotos failed: %v", err)
	}
	if diff := cmp.Diff([]string{"a.jpg", "b.JPG"}, got); diff != "" {
		t.Errorf("ListPhotos mismatch (-want +got):\n%s", diff)
	}

	if _, err := ListPhotos(filepath.Join(dir, "missing")); err == nil {
		t.Error("ListPhotos succeeded on a missing directory")
	}
}

func TestExiftoolCSV(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.jpg", "a.jpg")

	out := []string{
		"SourceFile,File:FileName,File:ImageWidth,File:ImageHeight,EXIF:DateTimeOriginal,XMP:Description",
		`a.jpg,a.jpg,4000,3000,2021:06:01 10:00:00,"Lunch, with ""friends"""`,
		"b.jpg,b.jpg,3000,4000,2021:06:02 11:00:00,",
	}
	r := &proc.Record{Reply: func(proc.Invocation) ([]string, []string, error) {
		return out, []string{"Warning: minor"}, nil
	}}
	e := &ExiftoolCSV{Runner: r, Binary: "/opt/exiftool"}

	recs, err := e.Extract(t.Context(), dir)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	want := []exifmeta.Record{
		{
			exifmeta.FileName:         "a.jpg",
			exifmeta.ImageWidth:       "4000",
			exifmeta.ImageHeight:      "3000",
			exifmeta.DateTimeOriginal: "2021:06:01 10:00:00",
			exifmeta.Description:      `Lunch, with "friends"`,
		},
		{
			exifmeta.FileName:         "b.jpg",
			exifmeta.ImageWidth:       "3000",
			exifmeta.ImageHeight:      "4000",
			exifmeta.DateTimeOriginal: "2021:06:02 11:00:00",
		},
	}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	calls := r.Calls()
	if len(calls) != 1 {
		t.Fatalf("exiftool ran %d times, want 1", len(calls))
	}
	argv := calls[0].Argv
	if calls[0].Dir != dir {
		t.Errorf("dir = %q, want %q", calls[0].Dir, dir)
	}
	if diff := cmp.Diff([]string{"/opt/exiftool", "-S", "-csv", "-G"}, argv[:4]); diff != "" {
		t.Errorf("argv prefix mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.jpg", "b.jpg"}, argv[len(argv)-2:]); diff != "" {
		t.Errorf("argv files mismatch (-want +got):\n%s", diff)
	}
	flags := strings.Join(argv[4:len(argv)-2], " ")
	for _, f := range []string{"-EXIF:DateTimeOriginal#", "-File:FileName", "-Composite:GPSLatitude#", "-XMP:Description"} {
		if !strings.Contains(flags, f) {
			t.Errorf("argv lacks %s: %s", f, flags)
		}
	}
}

func TestExiftoolCSVEmptyDir(t *testing.T) {
	r := &proc.Record{}
	recs, err := (&ExiftoolCSV{Runner: r, Binary: "exiftool"}).Extract(t.Context(), t.TempDir())
	if err != nil || len(recs) != 0 {
		t.Errorf("Extract(empty) = %v, %v", recs, err)
	}
	if len(r.Calls()) != 0 {
		t.Error("exiftool ran for an empty directory")
	}
}

func TestExiftoolCSVFailure(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg")
	exit := &proc.ExitError{Program: "exiftool", Code: 1}
	r := &proc.Record{Reply: func(proc.Invocation) ([]string, []string, error) { return nil, nil, exit }}

	_, err := (&ExiftoolCSV{Runner: r, Binary: "exiftool"}).Extract(t.Context(), dir)
	var ee *proc.ExitError
	if !errors.As(err, &ee) || ee.Code != 1 {
		t.Errorf("Extract error = %v, want exit code 1", err)
	}
}

func TestParseExiftoolCSVMalformed(t *testing.T) {
	if _, err := ParseExiftoolCSV(strings.NewReader("File:FileName\n\"a.jpg\"x\n")); err == nil {
		t.Error("ParseExiftoolCSV accepted malformed input")
	}
	recs, err := ParseExiftoolCSV(strings.NewReader(""))
	if err != nil || recs != nil {
		t.Errorf("ParseExiftoolCSV(\"\") = %v, %v", recs, err)
	}
}
