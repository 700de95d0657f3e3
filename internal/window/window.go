// Package window resolves and validates the time range an audit query covers.
package window

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange indicates the requested time range could not be used:
// either a timestamp failed to parse or start is not before end.
var ErrInvalidRange = errors.New("invalid time range")

// DefaultLookback is how far back a query reaches when no start is given.
// Matches the 90-day sliding retention of the unified audit log.
const DefaultLookback = 90 * 24 * time.Hour

// Accepted timestamp layouts, tried in order.
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TimeWindow is the resolved [Start, End) range of a single run.
// Immutable once produced.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Resolve parses optional start/end strings into a TimeWindow, defaulting
// to [now − 90 days, now] for absent values. Returns an error wrapping
// ErrInvalidRange for unparsable input or start >= end.
func Resolve(startStr, endStr string, now time.Time) (TimeWindow, error) {
	end := now
	if endStr != "" {
		t, err := parse(endStr)
		if err != nil {
			return TimeWindow{}, fmt.Errorf("%w: end %q: %v", ErrInvalidRange, endStr, err)
		}
		end = t
	}

	start := now.Add(-DefaultLookback)
	if startStr != "" {
		t, err := parse(startStr)
		if err != nil {
			return TimeWindow{}, fmt.Errorf("%w: start %q: %v", ErrInvalidRange, startStr, err)
		}
		start = t
	}

	if !start.Before(end) {
		return TimeWindow{}, fmt.Errorf("%w: start %s is not before end %s",
			ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return TimeWindow{Start: start.UTC(), End: end.UTC()}, nil
}

func parse(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
