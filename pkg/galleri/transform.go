package galleri

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/dustin/go-humanize"
	"github.com/tstromberg/galleri/pkg/proc"
	"k8s.io/klog/v2"
)

// ImageTransformer writes a resized copy of src to dst whose smaller side is
// dim pixels, preserving the aspect ratio. thumbnail asks for a stripped,
// smaller output where the backend distinguishes the two.
type ImageTransformer interface {
	Resize(ctx context.Context, src, dst string, dim int, thumbnail bool) error
}

// MagickTransformer shells out to ImageMagick's convert.
type MagickTransformer struct {
	Runner proc.Runner
	Binary string
}

// Resize implements ImageTransformer.
func (m *MagickTransformer) Resize(ctx context.Context, src, dst string, dim int, thumbnail bool) error {
	dst, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("abs: %w", err)
	}

	op := "-resize"
	if thumbnail {
		op = "-thumbnail"
	}
	argv := []string{m.Binary, filepath.Base(src), op, fmt.Sprintf("%dx%d^", dim, dim), dst}

	err = m.Runner.Run(ctx, filepath.Dir(src), argv,
		func(l string) { klog.V(1).Infof("convert: %s", l) },
		func(l string) { klog.Warningf("convert: %s", l) })
	if err != nil {
		return err
	}
	logWritten(dst)
	return nil
}

// BildTransformer resizes in-process with bild.
type BildTransformer struct {
	Quality int
}

// Resize implements ImageTransformer.
func (b *BildTransformer) Resize(ctx context.Context, src, dst string, dim int, _ bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := imgio.Open(src)
	if err != nil {
		return fmt.Errorf("imgio.Open: %w", err)
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == 0 || h == 0 {
		return fmt.Errorf("%s has no pixels: %+v", src, img.Bounds())
	}

	x, y := fillSize(w, h, dim)
	klog.V(1).Infof("resizing %s (%dx%d) to %dx%d", src, w, h, x, y)
	rimg := transform.Resize(img, x, y, transform.Lanczos)
	if err := imgio.Save(dst, rimg, imgio.JPEGEncoder(b.Quality)); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	logWritten(dst)
	return nil
}

// fillSize scales w x h so the smaller side becomes dim.
func fillSize(w, h, dim int) (int, int) {
	if w <= h {
		return dim, int(math.Round(float64(h) * float64(dim) / float64(w)))
	}
	return int(math.Round(float64(w) * float64(dim) / float64(h))), dim
}

func logWritten(path string) {
	if !klog.V(1).Enabled() {
		return
	}
	st, err := os.Stat(path)
	if err != nil {
		klog.Warningf("stat %s: %v", path, err)
		return
	}
	klog.V(1).Infof("wrote %s (%s)", path, humanize.Bytes(uint64(st.Size())))
}
