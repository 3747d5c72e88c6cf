package calendar

import "fmt"

// TimeOfDay is a 24-hour wall clock with minute granularity (0..1439).
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" string, the format used by the
// time-of-day config fields (entry_time, roll_time, option_expiry).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("calendar: invalid time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("calendar: time of day %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Timestamp is the kernel clock: a trading day plus a wall-clock instant
// within it. Timestamps are totally ordered by (Day, TimeOfDay).
type Timestamp struct {
	Day  Day
	Time TimeOfDay
}

// Before reports whether ts strictly precedes other.
func (ts Timestamp) Before(other Timestamp) bool {
	if ts.Day != other.Day {
		return ts.Day < other.Day
	}
	return ts.Time < other.Time
}

// Compare returns -1, 0, or 1 as ts is less than, equal to, or greater
// than other.
func (ts Timestamp) Compare(other Timestamp) int {
	switch {
	case ts.Before(other):
		return -1
	case other.Before(ts):
		return 1
	default:
		return 0
	}
}
