package tle

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Psnastudent/sgp4-service/internal/timeconv"
)

const (
	// LineLength is the fixed width of both element set lines.
	LineLength = 69

	deg2rad = math.Pi / 180.0
	// xpdotp converts rev/day to rad/min.
	xpdotp = 1440.0 / (2.0 * math.Pi)
)

// Checksum returns the modulo-10 checksum of the first 68 columns of line:
// the sum of all digits, with each minus sign counting as 1.
func Checksum(line string) int {
	sum := 0
	for i := 0; i < len(line) && i < LineLength-1; i++ {
		c := line[i]
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

// ParseElements parses and validates a two-line element set.
//
// Checksums are verified before any field is read, so a corrupted digit is
// reported as ErrChecksumMismatch rather than as a bad field. Two-digit epoch
// years below 57 are in the 2000s, the rest in the 1900s.
func ParseElements(line1, line2 string) (*Elements, error) {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if err := checkLine(1, line1); err != nil {
		return nil, err
	}
	if err := checkLine(2, line2); err != nil {
		return nil, err
	}

	el := &Elements{Line1: line1, Line2: line2}
	if err := el.parseLine1(line1); err != nil {
		return nil, err
	}
	if err := el.parseLine2(line2); err != nil {
		return nil, err
	}
	return el, nil
}

func checkLine(n int, line string) error {
	if len(line) != LineLength {
		return malformed(n, "line", "", "expected "+strconv.Itoa(LineLength)+" characters, got "+strconv.Itoa(len(line)))
	}
	if line[0] != byte('0'+n) || line[1] != ' ' {
		return malformed(n, "line number", line[:2], "line must start with \""+strconv.Itoa(n)+" \"")
	}
	want := line[LineLength-1]
	if want < '0' || want > '9' {
		return malformed(n, "checksum", string(want), "checksum column is not a digit")
	}
	if got := Checksum(line); got != int(want-'0') {
		return &ParseError{
			Line:   n,
			Field:  "checksum",
			Value:  string(want),
			Detail: "computed " + strconv.Itoa(got),
			Err:    ErrChecksumMismatch,
		}
	}
	return nil
}

func (el *Elements) parseLine1(line string) error {
	var err error

	el.SatNum = strings.TrimSpace(line[2:7])
	if el.CatalogNumber, err = parseSatNum(el.SatNum); err != nil {
		return malformed(1, "catalog number", line[2:7], err.Error())
	}
	el.Classification = line[7]
	el.IntlDesignator = strings.TrimSpace(line[9:17])

	yy, err := strconv.Atoi(strings.TrimSpace(line[18:20]))
	if err != nil {
		return malformed(1, "epoch year", line[18:20], "not an integer")
	}
	if yy < 57 {
		el.EpochYear = 2000 + yy
	} else {
		el.EpochYear = 1900 + yy
	}

	if el.EpochDays, err = parseDecimal(line[20:32]); err != nil {
		return malformed(1, "epoch day", line[20:32], "not a number")
	}
	if el.Epoch, err = timeconv.FromDayOfYear(el.EpochYear, el.EpochDays); err != nil {
		return outOfRange(1, "epoch day", line[20:32], "day of year must be in [1, 366] for "+strconv.Itoa(el.EpochYear))
	}

	ndot, err := parseDecimal(line[33:43])
	if err != nil {
		return malformed(1, "mean motion derivative", line[33:43], "not a number")
	}
	el.NDot = ndot / (xpdotp * 1440.0)

	nddot, err := parseImpliedExponent(line[44:52])
	if err != nil {
		return malformed(1, "mean motion second derivative", line[44:52], err.Error())
	}
	el.NDDot = nddot / (xpdotp * 1440.0 * 1440.0)

	if el.BStar, err = parseImpliedExponent(line[53:61]); err != nil {
		return malformed(1, "bstar", line[53:61], err.Error())
	}

	if el.EphemerisType, err = atoiBlank(line[62:63]); err != nil {
		return malformed(1, "ephemeris type", line[62:63], "not an integer")
	}
	if el.ElementNumber, err = atoiBlank(line[64:68]); err != nil {
		return malformed(1, "element set number", line[64:68], "not an integer")
	}
	return nil
}

func (el *Elements) parseLine2(line string) error {
	if num := strings.TrimSpace(line[2:7]); num != el.SatNum {
		return malformed(2, "catalog number", line[2:7], "does not match line 1 ("+el.SatNum+")")
	}

	var err error
	if el.Inclination, err = parseAngle(line[8:16], "inclination", 180); err != nil {
		return err
	}
	if el.RAAN, err = parseAngle(line[17:25], "right ascension of ascending node", 360); err != nil {
		return err
	}

	eccField := line[26:33]
	if strings.ContainsAny(eccField, "+-.") {
		return malformed(2, "eccentricity", eccField, "implied decimal field must hold digits only")
	}
	if el.Eccentricity, err = strconv.ParseFloat("0."+strings.ReplaceAll(eccField, " ", "0"), 64); err != nil {
		return malformed(2, "eccentricity", eccField, "not a number")
	}

	if el.ArgPerigee, err = parseAngle(line[34:42], "argument of perigee", 360); err != nil {
		return err
	}
	if el.MeanAnomaly, err = parseAngle(line[43:51], "mean anomaly", 360); err != nil {
		return err
	}

	if el.RevsPerDay, err = parseDecimal(line[52:63]); err != nil {
		return malformed(2, "mean motion", line[52:63], "not a number")
	}
	if el.RevsPerDay <= 0 {
		return outOfRange(2, "mean motion", line[52:63], "must be positive")
	}
	el.MeanMotion = el.RevsPerDay / xpdotp

	if el.RevNumber, err = atoiBlank(line[63:68]); err != nil {
		return malformed(2, "revolution number", line[63:68], "not an integer")
	}
	return nil
}

// parseAngle reads a degree field, checks it against [0, limit] and returns radians.
func parseAngle(field, name string, limit float64) (float64, error) {
	v, err := parseDecimal(field)
	if err != nil {
		return 0, malformed(2, name, field, "not a number")
	}
	if v < 0 || v > limit {
		return 0, outOfRange(2, name, field, "must be in [0, "+strconv.FormatFloat(limit, 'f', -1, 64)+"] degrees")
	}
	return v * deg2rad, nil
}

// parseDecimal reads a plain fixed-point field: an optional sign, digits and
// at most one decimal point. strconv.ParseFloat alone would also take NaN,
// Inf, hex floats and exponents.
func parseDecimal(field string) (float64, error) {
	s := strings.TrimSpace(field)
	body := strings.TrimLeft(s, "+-")
	if len(s)-len(body) > 1 {
		return 0, errors.New("repeated sign")
	}
	digits, point := 0, false
	for i := 0; i < len(body); i++ {
		switch c := body[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !point:
			point = true
		default:
			return 0, errors.Errorf("unexpected character %q", c)
		}
	}
	if digits == 0 {
		return 0, errors.New("no digits")
	}
	return strconv.ParseFloat(s, 64)
}

// parseImpliedExponent decodes the compact "sMMMMMsE" form used for the
// second derivative and bstar: " 12345-3" is 0.12345e-3. Blank is zero.
func parseImpliedExponent(field string) (float64, error) {
	if strings.TrimSpace(field) == "" {
		return 0, nil
	}
	if len(field) != 8 {
		return 0, errors.New("expected 8 columns")
	}

	sign := 1.0
	switch field[0] {
	case '-':
		sign = -1
	case '+', ' ':
	default:
		return 0, errors.New("bad mantissa sign")
	}

	digits := strings.TrimSpace(field[1:6])
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, errors.New("mantissa must be digits")
		}
	}
	mantissa := 0.0
	if digits != "" {
		m, err := strconv.ParseFloat("0."+digits, 64)
		if err != nil {
			return 0, errors.New("bad mantissa")
		}
		mantissa = m
	}

	exp := 0
	if e := strings.TrimSpace(field[6:8]); e != "" {
		n, err := strconv.Atoi(e)
		if err != nil {
			return 0, errors.New("bad exponent")
		}
		exp = n
	}
	return sign * mantissa * math.Pow10(exp), nil
}

// parseSatNum decodes a catalog number, including the Alpha-5 form where a
// leading letter (I and O excluded) stands for 10 through 33.
func parseSatNum(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty")
	}
	c := s[0]
	if c >= 'A' && c <= 'Z' {
		if c == 'I' || c == 'O' || len(s) != 5 {
			return 0, errors.New("invalid Alpha-5 catalog number")
		}
		lead := int(c-'A') + 10
		if c > 'I' {
			lead--
		}
		if c > 'O' {
			lead--
		}
		rest, err := strconv.Atoi(s[1:])
		if err != nil || rest < 0 {
			return 0, errors.New("invalid Alpha-5 catalog number")
		}
		return lead*10000 + rest, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("not an integer")
	}
	return n, nil
}

func atoiBlank(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
