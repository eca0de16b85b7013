package exifmeta

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bradfitz/latlong"
	"k8s.io/klog/v2"
)

const (
	exifDate  = "2006:01:02 15:04:05"
	offsetLen = len("+01:00")
	utcOffset = "+00:00"
)

// timePriority is ordered most to least trustworthy.
var timePriority = []Field{
	SubSecDateTimeOriginal,
	SubSecCreateDate,
	DigitalCreationDateTime,
	DateTimeCreated,
	DateTimeOriginal,
	FileCreateDate,
}

var offsetPriority = []Field{
	SubSecDateTimeOriginal,
	SubSecCreateDate,
	TimeZone,
	OffsetTimeOriginal,
	OffsetTimeDigitized,
}

// TimestampError means no usable capture time could be built for a photo.
type TimestampError struct {
	File string
	Err  error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("unable to resolve timestamp for %s: %v", e.File, e.Err)
}

func (e *TimestampError) Unwrap() error { return e.Err }

// Resolver picks the capture time and UTC offset of photos within one album.
// Photos with no offset inherit the last offset seen, so a Resolver must be
// fed one album's photos in order and is not safe for concurrent use.
type Resolver struct {
	// ZoneFromGPS derives a missing offset from the photo's GPS position
	// before falling back to the previous photo's offset.
	ZoneFromGPS bool
	// Warnf receives fallback warnings. Defaults to klog.Warningf.
	Warnf func(format string, args ...any)

	prevOffset string
}

// NewResolver returns a Resolver whose fallback offset starts at UTC.
func NewResolver() *Resolver {
	return &Resolver{Warnf: klog.Warningf, prevOffset: utcOffset}
}

func (r *Resolver) warnf(format string, args ...any) {
	if r.Warnf != nil {
		r.Warnf(format, args...)
	}
}

// BestTime returns the most trustworthy local date and time in exif format,
// without sub-second precision.
func (r *Resolver) BestTime(file string, rec Record) (string, bool) {
	for _, f := range timePriority {
		v := rec[f]
		if len(v) < len(exifDate) {
			continue
		}
		if f == FileCreateDate {
			r.warnf("%s: no capture date in metadata, using file creation date %s", file, v)
		}
		return v[:len(exifDate)], true
	}
	return "", false
}

// BestOffset returns the UTC offset, such as "+01:00", for a photo taken at
// the local time dateTime.
func (r *Resolver) BestOffset(file string, rec Record, dateTime string) string {
	for _, f := range offsetPriority {
		v := rec[f]
		i := strings.IndexAny(v, "+-")
		if i < 0 || len(v)-i < offsetLen {
			continue
		}
		r.prevOffset = v[i : i+offsetLen]
		return r.prevOffset
	}

	if r.ZoneFromGPS {
		if off, ok := gpsOffset(rec, dateTime); ok {
			klog.V(1).Infof("%s: offset %s from GPS position", file, off)
			r.prevOffset = off
			return off
		}
	}

	r.warnf("%s: no UTC offset in metadata, using previous offset %s", file, r.prevOffset)
	return r.prevOffset
}

func gpsOffset(rec Record, dateTime string) (string, bool) {
	lat, lng := rec.Float(GPSLatitude), rec.Float(GPSLongitude)
	if lat == 0 && lng == 0 {
		return "", false
	}

	zone := latlong.LookupZoneName(lat, lng)
	if zone == "" {
		return "", false
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		klog.V(1).Infof("load zone %s: %v", zone, err)
		return "", false
	}
	t, err := time.ParseInLocation(exifDate, dateTime, loc)
	if err != nil {
		return "", false
	}
	return t.Format("-07:00"), true
}

// Resolve combines the best time and offset into a zoned timestamp.
func (r *Resolver) Resolve(file string, rec Record) (time.Time, error) {
	dt, ok := r.BestTime(file, rec)
	if !ok {
		return time.Time{}, &TimestampError{File: file, Err: errors.New("no date/time field present")}
	}

	off := r.BestOffset(file, rec, dt)
	t, err := time.Parse(exifDate+"-07:00", dt+off)
	if err != nil {
		return time.Time{}, &TimestampError{File: file, Err: err}
	}
	return t, nil
}
