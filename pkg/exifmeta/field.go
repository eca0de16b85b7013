// Package exifmeta names the exiftool fields galleri asks for and reconciles
// their values into a single capture timestamp per photo.
package exifmeta

import (
	"fmt"
	"strconv"
	"strings"
)

// Field is one exiftool tag, qualified by its family 0 group.
type Field int

const (
	FileName Field = iota
	FileCreateDate
	ImageWidth
	ImageHeight
	SubSecDateTimeOriginal
	SubSecCreateDate
	DigitalCreationDateTime
	DateTimeCreated
	DateTimeOriginal
	OffsetTimeOriginal
	OffsetTimeDigitized
	TimeZone
	GPSLatitude
	GPSLongitude
	GPSAltitude
	Description

	numFields
)

type fieldInfo struct {
	group string
	name  string
	// raw fields are requested with a trailing '#' so exiftool skips print conversion.
	raw bool
}

var fields = [numFields]fieldInfo{
	FileName:                {"File", "FileName", false},
	FileCreateDate:          {"File", "FileCreateDate", false},
	ImageWidth:              {"File", "ImageWidth", false},
	ImageHeight:             {"File", "ImageHeight", false},
	SubSecDateTimeOriginal:  {"Composite", "SubSecDateTimeOriginal", false},
	SubSecCreateDate:        {"Composite", "SubSecCreateDate", false},
	DigitalCreationDateTime: {"Composite", "DigitalCreationDateTime", false},
	DateTimeCreated:         {"Composite", "DateTimeCreated", false},
	DateTimeOriginal:        {"EXIF", "DateTimeOriginal", true},
	OffsetTimeOriginal:      {"EXIF", "OffsetTimeOriginal", false},
	OffsetTimeDigitized:     {"EXIF", "OffsetTimeDigitized", false},
	TimeZone:                {"MakerNotes", "TimeZone", false},
	GPSLatitude:             {"Composite", "GPSLatitude", true},
	GPSLongitude:            {"Composite", "GPSLongitude", true},
	GPSAltitude:             {"Composite", "GPSAltitude", true},
	Description:             {"XMP", "Description", false},
}

// Requested is every field handed to exiftool when scanning an album.
var Requested = []Field{
	FileName,
	SubSecDateTimeOriginal,
	SubSecCreateDate,
	DigitalCreationDateTime,
	DateTimeCreated,
	DateTimeOriginal,
	FileCreateDate,
	OffsetTimeOriginal,
	OffsetTimeDigitized,
	TimeZone,
	ImageWidth,
	ImageHeight,
	GPSLatitude,
	GPSLongitude,
	GPSAltitude,
	Description,
}

var byName = map[string]Field{}

func init() {
	bare := map[string]int{}
	for f := Field(0); f < numFields; f++ {
		q := f.QualifiedName()
		if _, dup := byName[q]; dup {
			panic(fmt.Sprintf("exifmeta: duplicate field %s", q))
		}
		byName[q] = f
		byName[f.WireName()] = f
		bare[f.Name()]++
	}
	for f := Field(0); f < numFields; f++ {
		if bare[f.Name()] == 1 {
			byName[f.Name()] = f
		}
	}
}

// Group is the family 0 group, such as "EXIF" or "Composite".
func (f Field) Group() string { return fields[f].group }

// Name is the tag name without its group.
func (f Field) Name() string { return fields[f].name }

// Raw reports whether the field is requested without print conversion.
func (f Field) Raw() bool { return fields[f].raw }

// QualifiedName is "group:name", unique across all fields.
func (f Field) QualifiedName() string { return f.Group() + ":" + f.Name() }

// WireName is the tag as passed to exiftool, with the raw marker if any.
func (f Field) WireName() string {
	if f.Raw() {
		return f.QualifiedName() + "#"
	}
	return f.QualifiedName()
}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return "Field(" + strconv.Itoa(int(f)) + ")"
	}
	return f.QualifiedName()
}

// ParseField maps a column header from exiftool output back to its Field. It
// accepts qualified names, wire names, and bare tag names that are unambiguous.
func ParseField(s string) (Field, bool) {
	f, ok := byName[strings.TrimSpace(s)]
	return f, ok
}

// Record holds the raw string values exiftool reported for one file.
type Record map[Field]string

// Int returns the field as an integer, or 0 when absent or malformed.
func (r Record) Int(f Field) int {
	v, err := strconv.Atoi(strings.TrimSpace(r[f]))
	if err != nil {
		return 0
	}
	return v
}

// Float returns the field as a float, or 0 when absent or malformed.
func (r Record) Float(f Field) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(r[f]), 64)
	if err != nil {
		return 0
	}
	return v
}
