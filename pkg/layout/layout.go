// Package layout packs photos into justified rows: every complete row is
// scaled so its boxes exactly fill the container width at close to a target
// height.
package layout

import (
	"errors"
	"fmt"
	"math"
)

// WidowStyle controls how the trailing, incomplete row is placed.
type WidowStyle int

const (
	// WidowLeft aligns the trailing row to the left edge.
	WidowLeft WidowStyle = iota
	// WidowCenter centers the trailing row.
	WidowCenter
	// WidowJustify stretches the trailing row to the full width.
	WidowJustify
)

// Padding is the space between the container edge and the boxes.
type Padding struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
}

// Spacing is the gap between neighbouring boxes.
type Spacing struct {
	Horizontal float64 `json:"horizontal"`
	Vertical   float64 `json:"vertical"`
}

// Config describes the container and the desired rows.
type Config struct {
	ContainerWidth  float64
	Padding         Padding
	Spacing         Spacing
	TargetRowHeight float64
	// Tolerance is the fraction a row's height may stray from TargetRowHeight.
	Tolerance float64
	// MaxRows stops the layout after this many rows. Zero means no limit.
	MaxRows    int
	WidowStyle WidowStyle
}

// DefaultConfig returns a Config for a container of the given width.
func DefaultConfig(width float64) Config {
	return Config{
		ContainerWidth:  width,
		Padding:         Padding{Top: 10, Left: 10, Bottom: 10, Right: 10},
		Spacing:         Spacing{Horizontal: 10, Vertical: 10},
		TargetRowHeight: 320,
		Tolerance:       0.25,
	}
}

// Box is the placement of one photo, in pixels.
type Box struct {
	AspectRatio float64 `json:"aspectRatio"`
	Top         float64 `json:"top"`
	Left        float64 `json:"left"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
}

// Result is a computed layout. Boxes are in input order.
type Result struct {
	ContainerHeight float64 `json:"containerHeight"`
	// WidowCount is the number of boxes in the trailing incomplete row.
	WidowCount int   `json:"widowCount"`
	Boxes      []Box `json:"boxes"`
}

func (c Config) contentWidth() float64 {
	return c.ContainerWidth - c.Padding.Left - c.Padding.Right
}

func (c Config) validate() error {
	if c.contentWidth() <= 0 {
		return fmt.Errorf("container width %v leaves no room inside padding", c.ContainerWidth)
	}
	if !(c.TargetRowHeight > 0) {
		return fmt.Errorf("target row height must be positive, got %v", c.TargetRowHeight)
	}
	if c.Tolerance < 0 || c.Tolerance >= 1 {
		return fmt.Errorf("tolerance must be in [0, 1), got %v", c.Tolerance)
	}
	if c.MaxRows < 0 {
		return errors.New("max rows must not be negative")
	}
	return nil
}

// Compute lays out items with the given width/height aspect ratios.
func Compute(c Config, aspectRatios []float64) (Result, error) {
	if err := c.validate(); err != nil {
		return Result{}, err
	}
	for i, ar := range aspectRatios {
		if !(ar > 0) || math.IsInf(ar, 0) {
			return Result{}, fmt.Errorf("item %d: invalid aspect ratio %v", i, ar)
		}
	}

	if len(aspectRatios) == 0 {
		return Result{ContainerHeight: c.Padding.Top, Boxes: []Box{}}, nil
	}

	g := &grid{c: c, height: c.Padding.Top}
	var cur *row

	for _, ar := range aspectRatios {
		if cur == nil {
			cur = g.newRow()
		}

		added := cur.add(ar)
		if !cur.complete {
			continue
		}
		g.addRow(cur)
		if g.full() {
			cur = nil
			break
		}
		cur = g.newRow()

		if !added {
			cur.add(ar)
			if cur.complete {
				g.addRow(cur)
				if g.full() {
					cur = nil
					break
				}
				cur = g.newRow()
			}
		}
	}

	widows := 0
	if cur != nil && len(cur.items) > 0 {
		h := c.TargetRowHeight
		if n := len(g.rows); n > 0 {
			h = g.rows[n-1].height
		}
		cur.finish(h, c.WidowStyle)
		g.addRow(cur)
		widows = len(cur.items)
	}

	return Result{
		ContainerHeight: g.height - c.Spacing.Vertical + c.Padding.Bottom,
		WidowCount:      widows,
		Boxes:           g.boxes,
	}, nil
}

// grid accumulates rows for a single Compute call.
type grid struct {
	c      Config
	height float64
	rows   []*row
	boxes  []Box
}

func (g *grid) newRow() *row {
	c := g.c
	width := c.contentWidth()
	return &row{
		top:       g.height,
		left:      c.Padding.Left,
		width:     width,
		spacing:   c.Spacing.Horizontal,
		target:    c.TargetRowHeight,
		minAR:     width / c.TargetRowHeight * (1 - c.Tolerance),
		maxAR:     width / c.TargetRowHeight * (1 + c.Tolerance),
		minHeight: c.TargetRowHeight / 2,
		maxHeight: c.TargetRowHeight * 2,
	}
}

func (g *grid) addRow(r *row) {
	g.rows = append(g.rows, r)
	g.boxes = append(g.boxes, r.items...)
	g.height += r.height + g.c.Spacing.Vertical
}

func (g *grid) full() bool {
	return g.c.MaxRows > 0 && len(g.rows) >= g.c.MaxRows
}

type row struct {
	top, left, width, spacing float64
	target                    float64
	minAR, maxAR              float64
	minHeight, maxHeight      float64

	items    []Box
	arSum    float64
	height   float64
	complete bool
}

// add offers an item to the row and reports whether it was taken. A row that
// reaches a width within tolerance is completed; a rejected item belongs on
// the next row.
func (r *row) add(ar float64) bool {
	n := len(r.items) + 1
	width := r.width - float64(n-1)*r.spacing
	newAR := r.arSum + ar
	targetAR := width / r.target

	switch {
	case newAR < r.minAR:
		r.push(ar)
		return true

	case newAR > r.maxAR:
		if len(r.items) == 0 {
			// an extreme panorama always gets a row of its own
			r.push(ar)
			r.finish(width/newAR, WidowJustify)
			return true
		}

		prevWidth := r.width - float64(n-2)*r.spacing
		prevTargetAR := prevWidth / r.target
		if math.Abs(newAR-targetAR) > math.Abs(r.arSum-prevTargetAR) {
			r.finish(prevWidth/r.arSum, WidowJustify)
			return false
		}
		r.push(ar)
		r.finish(width/newAR, WidowJustify)
		return true

	default:
		r.push(ar)
		r.finish(width/newAR, WidowJustify)
		return true
	}
}

func (r *row) push(ar float64) {
	r.items = append(r.items, Box{AspectRatio: ar})
	r.arSum += ar
}

// finish assigns the row height and places its boxes on whole pixels.
func (r *row) finish(height float64, style WidowStyle) {
	clamped := math.Max(r.minHeight, math.Min(height, r.maxHeight))
	scale := 1.0
	if clamped != height {
		scale = height / clamped
	}

	r.height = math.Round(clamped)
	r.complete = true

	x := r.left
	for i := range r.items {
		b := &r.items[i]
		b.Top = r.top
		b.Left = x
		b.Width = math.Round(b.AspectRatio * clamped * scale)
		b.Height = r.height
		x += b.Width + r.spacing
	}
	used := x - r.spacing - r.left

	switch style {
	case WidowJustify:
		r.justify(used)
	case WidowCenter:
		offset := math.Round((r.width - used) / 2)
		for i := range r.items {
			r.items[i].Left += offset
		}
	}
}

// justify spreads the rounding error over the boxes so the row is exactly
// r.width wide.
func (r *row) justify(used float64) {
	n := len(r.items)
	perItem := (used - r.width) / float64(n)
	if n == 1 {
		r.items[0].Width -= math.Round(perItem)
		return
	}

	prev := 0.0
	for i := range r.items {
		cum := math.Round(float64(i+1) * perItem)
		r.items[i].Left -= prev
		r.items[i].Width -= cum - prev
		prev = cum
	}
}
