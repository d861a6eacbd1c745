package handlers

import (
	"errors"
	"time"
)

// Zone-less layouts are read as UTC.
var localTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

var errInvalidTimestamp = errors.New("invalid timestamp")

// parseTimestamp accepts RFC 3339 and ISO 8601 local date-times, and
// returns the instant in UTC.
func parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range localTimestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errInvalidTimestamp
}
