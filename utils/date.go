package utils

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DefaultTimezone is used when the configured zone cannot be loaded.
const DefaultTimezone = "Asia/Manila"

// LoadLocation resolves name, falling back to DefaultTimezone and finally a fixed UTC+8.
func LoadLocation(name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(DefaultTimezone); err == nil {
		return loc
	}
	return time.FixedZone("UTC+8", 8*60*60)
}

// DateOf returns the calendar day of t (as seen in t's own location) at UTC midnight.
// Calendar dates are always carried in this form.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Yesterday is the calendar day before now in loc.
func Yesterday(now time.Time, loc *time.Location) time.Time {
	return DateOf(now.In(loc)).AddDate(0, 0, -1)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected yyyy-MM-dd", s)
	}
	return t, nil
}

func MustParseDate(dateStr string) time.Time {
	t, _ := time.ParseInLocation(DateLayout, dateStr, time.UTC)
	return t
}

// OnDate places the wall clock of hh:mm:ss on the calendar day date in loc.
func OnDate(date time.Time, loc *time.Location, hour, min, sec int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, sec, 0, loc)
}

// DaysBetween lists every calendar day from start to end inclusive.
func DaysBetween(start, end time.Time) []time.Time {
	var days []time.Time
	for d := DateOf(start); !d.After(DateOf(end)); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
