package parser

import (
	"fmt"
	"time"
)

// timestampLayouts are tried in order. The analytics logger writes the first.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an objects log timestamp. Values without a zone are
// read in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseTimestamps parses every value or reports false if any value does not
// parse. Charts fall back to a sample-index axis in that case.
func ParseTimestamps(values []string, loc *time.Location) ([]time.Time, bool) {
	out := make([]time.Time, len(values))
	for i, v := range values {
		t, err := ParseTimestamp(v, loc)
		if err != nil {
			return nil, false
		}
		out[i] = t
	}
	return out, true
}
