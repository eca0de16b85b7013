package galleri

import (
	"time"
)

// Album is a named, dated collection of photos backed by one directory.
type Album struct {
	// ID is assigned in index order and only stable within one run.
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Directory string `json:"directory"`
	Cover     string `json:"cover"`
}

// GPSCoordinates is a position in degrees and an altitude in meters.
type GPSCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// Present reports whether any component is non-zero.
func (g GPSCoordinates) Present() bool {
	return g.Latitude != 0 || g.Longitude != 0 || g.Altitude != 0
}

// NewGPS returns the coordinates, or nil when none are present.
func NewGPS(lat, lng, alt float64) *GPSCoordinates {
	g := GPSCoordinates{Latitude: lat, Longitude: lng, Altitude: alt}
	if !g.Present() {
		return nil
	}
	return &g
}

// Photo is one image within an album.
type Photo struct {
	// ID is the position within the album.
	ID       int    `json:"id"`
	Filename string `json:"filename"`
	// Description is free text and may contain link markup.
	Description string `json:"description,omitempty"`
	// Width and Height are the dimensions of the original.
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Timestamp time.Time       `json:"timestamp"`
	GPS       *GPSCoordinates `json:"gps,omitempty"`
}

// AspectRatio is width over height, or 1 when the dimensions are unknown.
func (p Photo) AspectRatio() float64 {
	if p.Width <= 0 || p.Height <= 0 {
		return 1
	}
	return float64(p.Width) / float64(p.Height)
}

// PopulatedAlbum is an album with its photos in scan order.
type PopulatedAlbum struct {
	Album  Album   `json:"album"`
	Photos []Photo `json:"photos"`
}

// AspectRatios returns the aspect ratio of each photo, for layout.Compute.
func AspectRatios(ps []Photo) []float64 {
	ars := make([]float64, len(ps))
	for i, p := range ps {
		ars[i] = p.AspectRatio()
	}
	return ars
}
