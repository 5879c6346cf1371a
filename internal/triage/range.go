package triage

import (
	"errors"
	"time"
)

// Range selects the reporting window for the dashboard. Ranges cycle in
// declaration order and wrap around.
type Range string

const (
	RangeLast7Days     Range = "last-7-days"
	RangeLast30Days    Range = "last-30-days"
	RangeQuarterToDate Range = "quarter-to-date"
	RangeAllTime       Range = "all-time"
)

// DefaultRange is what a freshly opened dashboard shows.
const DefaultRange = RangeLast30Days

var rangeOrder = []Range{RangeLast7Days, RangeLast30Days, RangeQuarterToDate, RangeAllTime}

// ErrUnknownRange is returned for range selectors outside the known set.
var ErrUnknownRange = errors.New("unknown time range")

// ParseRange validates a range selector coming from the presentation layer.
// An empty selector maps to DefaultRange.
func ParseRange(s string) (Range, error) {
	if s == "" {
		return DefaultRange, nil
	}
	r := Range(s)
	if !r.Valid() {
		return "", ErrUnknownRange
	}
	return r, nil
}

func (r Range) Valid() bool {
	for _, known := range rangeOrder {
		if r == known {
			return true
		}
	}
	return false
}

// Next returns the range after r, wrapping from the last option back to the
// first. Unknown ranges restart the cycle.
func (r Range) Next() Range {
	for i, known := range rangeOrder {
		if r == known {
			return rangeOrder[(i+1)%len(rangeOrder)]
		}
	}
	return rangeOrder[0]
}

// Cutoff returns the inclusive lower bound for r relative to now, or nil for
// all-time. Quarter boundaries fall on the first instant of the calendar
// quarter (months 1, 4, 7, 10) computed in UTC.
func (r Range) Cutoff(now time.Time) *time.Time {
	now = now.UTC()
	var cutoff time.Time
	switch r {
	case RangeLast7Days:
		cutoff = now.AddDate(0, 0, -7)
	case RangeLast30Days:
		cutoff = now.AddDate(0, 0, -30)
	case RangeQuarterToDate:
		quarterStart := time.Month((int(now.Month())-1)/3*3 + 1)
		cutoff = time.Date(now.Year(), quarterStart, 1, 0, 0, 0, 0, time.UTC)
	default:
		return nil
	}
	return &cutoff
}

// InRange reports whether a record created at createdAt falls inside r. A
// record on the cutoff instant is included. A zero createdAt means the store
// has not assigned a timestamp yet; such records are treated as in range so
// just-submitted feedback is never hidden from the aggregates.
func (r Range) InRange(createdAt, now time.Time) bool {
	if createdAt.IsZero() {
		return true
	}
	cutoff := r.Cutoff(now)
	if cutoff == nil {
		return true
	}
	return !createdAt.Before(*cutoff)
}
