package models

import (
	"fmt"
	"time"
)

// TimestampLayout is the only timestamp format accepted and produced on the wire
const TimestampLayout = "2006-01-02 15:04:05"

// ParseTimestamp parses a wire timestamp as UTC. The value must match the
// layout exactly: no padding and no fractional seconds.
func ParseTimestamp(value string) (time.Time, error) {
	ts, err := time.ParseInLocation(TimestampLayout, value, time.UTC)
	if err != nil || ts.Format(TimestampLayout) != value {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: expected format YYYY-MM-DD HH:MM:SS", value)
	}
	return ts, nil
}

// FormatTimestamp renders t in the wire layout, in UTC
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Now returns the current ingestion time at the precision readings are stored with
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// TimeRange bounds a query by timestamp. Nil ends are open; both ends are inclusive.
type TimeRange struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t falls inside the range
func (r TimeRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// IsOpen reports whether neither end is set
func (r TimeRange) IsOpen() bool {
	return r.Start == nil && r.End == nil
}
