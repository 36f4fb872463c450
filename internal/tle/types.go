package tle

import (
	"time"

	"github.com/Psnastudent/sgp4-service/internal/timeconv"
)

// Elements is a parsed two-line element set with angles in radians and
// mean motion in radians per minute, ready for the propagator.
type Elements struct {
	SatNum         string // catalog number as printed (may be Alpha-5)
	CatalogNumber  int
	Classification byte
	IntlDesignator string

	EpochYear int     // four-digit year
	EpochDays float64 // fractional day of year, 1.0 is January 1 0h
	Epoch     timeconv.JulianDate

	NDot  float64 // first derivative of mean motion / 2, rad/min^2
	NDDot float64 // second derivative of mean motion / 6, rad/min^3
	BStar float64 // drag term, 1/earth radii

	EphemerisType int
	ElementNumber int

	Inclination  float64 // rad
	RAAN         float64 // rad
	Eccentricity float64
	ArgPerigee   float64 // rad
	MeanAnomaly  float64 // rad
	MeanMotion   float64 // Kozai mean motion, rad/min
	RevsPerDay   float64 // mean motion as printed, rev/day
	RevNumber    int

	// Line1 and Line2 are the validated source lines, whitespace trimmed.
	Line1, Line2 string
}

// EpochTime returns the element set epoch as a UTC time.
func (e *Elements) EpochTime() time.Time {
	return e.Epoch.Time()
}

// Entry is one satellite from a catalog: its name, raw lines and parsed elements.
type Entry struct {
	NORADID  int
	Name     string
	Epoch    time.Time
	Line1    string
	Line2    string
	Elements *Elements
}

// EpochRange represents the minimum and maximum epoch times in a dataset.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Dataset is a parsed catalog together with where and when it came from.
type Dataset struct {
	Source     string
	FetchedAt  time.Time
	EpochRange EpochRange
	Satellites []Entry
}

// NewDataset builds a Dataset from parsed entries and computes the epoch range.
func NewDataset(source string, fetchedAt time.Time, entries []Entry) *Dataset {
	ds := &Dataset{Source: source, FetchedAt: fetchedAt, Satellites: entries}
	for i, e := range entries {
		if i == 0 || e.Epoch.Before(ds.EpochRange.Min) {
			ds.EpochRange.Min = e.Epoch
		}
		if i == 0 || e.Epoch.After(ds.EpochRange.Max) {
			ds.EpochRange.Max = e.Epoch
		}
	}
	return ds
}
