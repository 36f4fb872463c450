package tle

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinels for the three classes of parse failure. Every *ParseError
// unwraps to exactly one of them.
var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrMalformedLine    = errors.New("malformed line")
	ErrFieldOutOfRange  = errors.New("field out of range")
)

// ParseError reports which line and field of an element set was rejected.
type ParseError struct {
	Line   int    // 1 or 2
	Field  string // field name, e.g. "eccentricity"
	Value  string // offending text as found in the line
	Detail string
	Err    error // one of the sentinels above
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("tle line %d: %s", e.Line, e.Err)
	if e.Field != "" {
		msg += fmt.Sprintf(" in %s", e.Field)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" (%q)", e.Value)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrorCode returns the stable code used in API responses.
func (e *ParseError) ErrorCode() string {
	switch e.Err {
	case ErrChecksumMismatch:
		return "checksum_mismatch"
	case ErrFieldOutOfRange:
		return "field_out_of_range"
	}
	return "malformed_line"
}

func malformed(line int, field, value, detail string) error {
	return &ParseError{Line: line, Field: field, Value: value, Detail: detail, Err: ErrMalformedLine}
}

func outOfRange(line int, field, value, detail string) error {
	return &ParseError{Line: line, Field: field, Value: value, Detail: detail, Err: ErrFieldOutOfRange}
}
