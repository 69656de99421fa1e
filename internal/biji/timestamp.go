package biji

import (
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the ISO-8601 layout used for every timestamp stored in
// sidecars and the index. Timestamps are UTC and the fraction is always six
// digits wide, so string comparison orders them chronologically even across
// daylight saving changes.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a timestamp written by FormatTimestamp. Timestamps
// without a fractional part are accepted as well.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC)
}

// IsNewer reports whether version a is strictly newer than version b.
// Comparison is lexicographic; equal timestamps are never newer.
func IsNewer(a, b string) bool {
	return a > b
}

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
