// Package timeconv converts calendar timestamps into split Julian dates.
//
// A single float64 Julian date near 2.46 million carries only ~40 µs of
// resolution, so dates are kept as a whole-day part and a day fraction. The
// day part is the Julian date of the preceding 0h UTC (it always ends in .5),
// which matches the convention of the SGP4 reference code.
//
// Dates use the proleptic Gregorian calendar with no leap-second adjustment.
package timeconv

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

const (
	// MinutesPerDay is the number of minutes in a Julian day.
	MinutesPerDay = 1440.0

	secondsPerDay = 86400.0
)

// ErrInvalidTimestamp is the sentinel wrapped by every conversion failure.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// TimestampError describes a timestamp that could not be converted.
type TimestampError struct {
	Input  string
	Reason string
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp %q: %s", e.Input, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidTimestamp.
func (e *TimestampError) Unwrap() error { return ErrInvalidTimestamp }

// ErrorCode returns the stable error code for this failure.
func (e *TimestampError) ErrorCode() string { return "invalid_timestamp" }

// JulianDate is a Julian date split into a midnight day part and a fraction.
type JulianDate struct {
	Day      float64 // Julian date at 0h UTC (ends in .5)
	Fraction float64 // fraction of the day since 0h UTC, in [0, 1)
}

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// IsLeapYear reports whether year is a leap year in the proleptic Gregorian calendar.
func IsLeapYear(year int) bool {
	return julian.LeapYearGregorian(year)
}

// DaysInMonth returns the number of days in the given month (1-12) of year.
func DaysInMonth(year, month int) int {
	if month == 2 && IsLeapYear(year) {
		return 29
	}
	return monthDays[month-1]
}

// FromCalendar converts calendar fields (UTC) to a split Julian date.
// second may carry a fractional part.
func FromCalendar(year, month, day, hour, minute int, second float64) (JulianDate, error) {
	input := fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%09.6f", year, month, day, hour, minute, second)
	switch {
	case year < 1 || year > 9999:
		return JulianDate{}, &TimestampError{Input: input, Reason: "year out of range"}
	case month < 1 || month > 12:
		return JulianDate{}, &TimestampError{Input: input, Reason: "month out of range"}
	case day < 1 || day > DaysInMonth(year, month):
		return JulianDate{}, &TimestampError{Input: input, Reason: "day out of range for month"}
	case hour < 0 || hour > 23:
		return JulianDate{}, &TimestampError{Input: input, Reason: "hour out of range"}
	case minute < 0 || minute > 59:
		return JulianDate{}, &TimestampError{Input: input, Reason: "minute out of range"}
	case math.IsNaN(second) || second < 0 || second >= 60:
		return JulianDate{}, &TimestampError{Input: input, Reason: "second out of range"}
	}

	return JulianDate{
		Day:      dayNumber(year, month, day),
		Fraction: (second + float64(minute)*60.0 + float64(hour)*3600.0) / secondsPerDay,
	}, nil
}

// FromTime converts t (in any location) to a split Julian date.
func FromTime(t time.Time) JulianDate {
	t = t.UTC()
	sec := float64(t.Second()) + float64(t.Nanosecond())/1e9
	return JulianDate{
		Day:      dayNumber(t.Year(), int(t.Month()), t.Day()),
		Fraction: (sec + float64(t.Minute())*60.0 + float64(t.Hour())*3600.0) / secondsPerDay,
	}
}

// dayNumber returns the Julian date at 0h UTC using integer arithmetic
// (Fliegel and Van Flandern), exact over the whole Gregorian range.
func dayNumber(year, month, day int) float64 {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	jdn := day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
	return float64(jdn) - 0.5
}

// FromDayOfYear converts a year and a fractional day-of-year (1.0 is
// January 1, 0h) to a split Julian date. This is the TLE epoch format.
func FromDayOfYear(year int, days float64) (JulianDate, error) {
	if days < 1 || days >= float64(366+boolInt(IsLeapYear(year))) {
		return JulianDate{}, &TimestampError{
			Input:  fmt.Sprintf("%04d day %.8f", year, days),
			Reason: "day of year out of range",
		}
	}
	month, day, hour, minute, second := dayOfYearToCalendar(year, days)
	return FromCalendar(year, month, day, hour, minute, second)
}

// dayOfYearToCalendar splits a fractional day-of-year into calendar fields.
func dayOfYearToCalendar(year int, days float64) (month, day, hour, minute int, second float64) {
	month, day = julian.DayOfYearToCalendar(int(math.Floor(days)), IsLeapYear(year))

	temp := (days - math.Floor(days)) * 24.0
	h := math.Floor(temp)
	temp = (temp - h) * 60.0
	m := math.Floor(temp)
	second = (temp - m) * 60.0

	return month, day, int(h), int(m), second
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Float returns the date as a single float64. Precision is limited to tens
// of microseconds; use MinutesSince for differences.
func (jd JulianDate) Float() float64 {
	return jd.Day + jd.Fraction
}

// MinutesSince returns the elapsed minutes from other to jd. The day and
// fraction parts are differenced separately to keep sub-second precision.
func (jd JulianDate) MinutesSince(other JulianDate) float64 {
	return (jd.Day-other.Day)*MinutesPerDay + (jd.Fraction-other.Fraction)*MinutesPerDay
}

// AddMinutes returns jd shifted by the given number of minutes.
func (jd JulianDate) AddMinutes(minutes float64) JulianDate {
	frac := jd.Fraction + minutes/MinutesPerDay
	shift := math.Floor(frac)
	f := frac - shift
	// A tiny negative frac rounds up to exactly 1 after the subtraction.
	if f >= 1 {
		f = 0
		shift++
	}
	return JulianDate{Day: jd.Day + shift, Fraction: f}
}

// Calendar converts jd back into UTC calendar fields.
func (jd JulianDate) Calendar() (year, month, day, hour, minute int, second float64) {
	// Normalize first so a fraction outside [0, 1) carries into the day.
	n := jd.AddMinutes(0)
	j := int(math.Floor(n.Day + 0.5))

	// Richards' algorithm for the Gregorian calendar.
	f := j + 1401 + (((4*j+274277)/146097)*3)/4 - 38
	e := 4*f + 3
	g := (e % 1461) / 4
	h := 5*g + 2
	day = (h%153)/5 + 1
	month = (h/153+2)%12 + 1
	year = e/1461 - 4716 + (12+2-month)/12

	secs := n.Fraction * secondsPerDay
	hour = int(secs / 3600)
	secs -= float64(hour) * 3600
	minute = int(secs / 60)
	second = secs - float64(minute)*60
	return year, month, day, hour, minute, second
}

// Time converts jd to a time.Time in UTC, rounded to the nearest nanosecond.
func (jd JulianDate) Time() time.Time {
	year, month, day, _, _, _ := jd.Calendar()
	n := jd.AddMinutes(0)
	nanos := math.Round(n.Fraction * secondsPerDay * 1e9)
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Add(time.Duration(nanos))
}

func (jd JulianDate) String() string {
	return fmt.Sprintf("JD %.1f+%.12f", jd.Day, jd.Fraction)
}

// timestampLayouts are the ISO-8601 shapes accepted by ParseTimestamp.
// Fractional seconds are accepted after any seconds field.
var timestampLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp into a split Julian date.
// A trailing "Z" is stripped and the remainder treated as UTC; explicit
// offsets are converted to UTC.
func ParseTimestamp(s string) (JulianDate, error) {
	t, err := ParseTime(s)
	if err != nil {
		return JulianDate{}, err
	}
	return FromTime(t), nil
}

// ParseTime parses an ISO-8601 timestamp into a UTC time.Time.
func ParseTime(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimSuffix(strings.TrimSuffix(trimmed, "Z"), "z")
	if trimmed == "" {
		return time.Time{}, &TimestampError{Input: s, Reason: "empty"}
	}

	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, trimmed)
		if err == nil {
			t = t.UTC()
			if t.Year() < 1 || t.Year() > 9999 {
				return time.Time{}, &TimestampError{Input: s, Reason: "year out of range"}
			}
			return t, nil
		}
	}
	return time.Time{}, &TimestampError{Input: s, Reason: "not an ISO-8601 date/time"}
}
