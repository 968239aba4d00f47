package generic

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// DATES - ISO-8601 parsing
// =============================================================================

// Accepted date layouts, tried in order. Date-only values are UTC midnight.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate parses an ISO-8601 calendar date or timestamp.
func ParseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, NewValidationError(field, "is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, NewValidationError(field, "invalid date %q (use ISO-8601, e.g. 2025-02-10)", s)
}

// =============================================================================
// BUCKET - (year, month) partition
// =============================================================================

// Bucket is the (year, month) partition a dated record belongs to.
// Year is four digits, Month is two digits ("01".."12").
type Bucket struct {
	Year  string
	Month string
}

// BucketOf returns the bucket for t using the calendar fields of t as
// written (its own offset), not converted to UTC.
func BucketOf(t time.Time) Bucket {
	return Bucket{
		Year:  fmt.Sprintf("%04d", t.Year()),
		Month: fmt.Sprintf("%02d", int(t.Month())),
	}
}

func (b Bucket) String() string { return b.Year + "-" + b.Month }

// ParseYear validates and normalizes a four-digit year key.
func ParseYear(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return "", NewValidationError("year", "must be four digits, got %q", s)
	}
	if _, err := strconv.Atoi(s); err != nil {
		return "", NewValidationError("year", "must be numeric, got %q", s)
	}
	return s, nil
}

// ParseMonth validates a month (1..12, with or without leading zero) and
// returns its two-digit key.
func ParseMonth(s string) (string, error) {
	s = strings.TrimSpace(s)
	m, err := strconv.Atoi(s)
	if err != nil || len(s) > 2 || m < 1 || m > 12 {
		return "", NewValidationError("month", "must be between 1 and 12, got %q", s)
	}
	return fmt.Sprintf("%02d", m), nil
}
