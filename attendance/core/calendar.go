package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"practitrack.com/practitrack/attendance/model"
)

// ClockTime is a wall-clock time of day, stored as seconds after midnight.
type ClockTime int

// ParseClockTime accepts "15:04" or "15:04:05".
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("15:04", s)
	if err != nil {
		t, err = time.Parse("15:04:05", s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return ClockTime(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
}

func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// On places c on the calendar day of date in loc.
func (c ClockTime) On(date time.Time, loc *time.Location) time.Time {
	secs := int(c)
	return time.Date(date.Year(), date.Month(), date.Day(), secs/3600, secs%3600/60, secs%60, 0, loc)
}

func (c ClockTime) String() string {
	secs := int(c)
	return fmt.Sprintf("%02d:%02d", secs/3600, secs%3600/60)
}

// TimeWindow is a half-open [Start, End) span of the day.
type TimeWindow struct {
	Start ClockTime
	End   ClockTime
}

func (w TimeWindow) Contains(c ClockTime) bool {
	return c >= w.Start && c < w.End
}

func (w TimeWindow) Midpoint() ClockTime {
	return w.Start + (w.End-w.Start)/2
}

type EmptyDaysPolicy int

const (
	NeverOperates EmptyDaysPolicy = iota
	AlwaysOperates
)

// EmptyOperatingDaysPolicy decides the calendar for an agency without any
// configured operating days. Such agencies are treated as closed.
const EmptyOperatingDaysPolicy = NeverOperates

// Schedule is an agency's operating profile parsed into structured values.
type Schedule struct {
	days     map[time.Weekday]bool
	closures map[string]bool

	// Hours is set when both opening and closing times are configured.
	Hours *TimeWindow
	// Lunch is set when both lunch bounds are configured and lie inside Hours.
	Lunch *TimeWindow
}

var weekdayTokens = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday, "0": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "1": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday, "2": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "3": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday, "4": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "5": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "6": time.Saturday,
}

// ParseWeekday maps a weekday name, abbreviation or code (0 = Sunday).
func ParseWeekday(token string) (time.Weekday, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	if d, ok := weekdayTokens[t]; ok {
		return d, true
	}
	if n, err := strconv.Atoi(t); err == nil && n == 7 {
		return time.Sunday, true
	}
	return 0, false
}

func parseOptionalClock(field string, s *string) (*ClockTime, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	c, err := ParseClockTime(*s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &c, nil
}

type hourFields struct {
	opening, closing, lunchStart, lunchEnd *string
}

func parseSchedule(days []string, hf hourFields) (Schedule, error) {
	s := Schedule{days: map[time.Weekday]bool{}}
	for _, token := range days {
		if d, ok := ParseWeekday(token); ok {
			s.days[d] = true
		}
	}

	opening, err := parseOptionalClock("openingTime", hf.opening)
	if err != nil {
		return s, err
	}
	closing, err := parseOptionalClock("closingTime", hf.closing)
	if err != nil {
		return s, err
	}
	lunchStart, err := parseOptionalClock("lunchStartTime", hf.lunchStart)
	if err != nil {
		return s, err
	}
	lunchEnd, err := parseOptionalClock("lunchEndTime", hf.lunchEnd)
	if err != nil {
		return s, err
	}

	if opening != nil && closing != nil {
		if *closing <= *opening {
			return s, fmt.Errorf("closingTime %s is not after openingTime %s", *closing, *opening)
		}
		s.Hours = &TimeWindow{Start: *opening, End: *closing}
	}
	if s.Hours != nil && lunchStart != nil && lunchEnd != nil &&
		*lunchStart < *lunchEnd && *lunchStart > s.Hours.Start && *lunchEnd < s.Hours.End {
		s.Lunch = &TimeWindow{Start: *lunchStart, End: *lunchEnd}
	}
	return s, nil
}

// ParseSchedule parses the agency's hour strings once. On error the returned
// schedule still carries the operating days but no hours.
func ParseSchedule(agency *model.Agency) (Schedule, error) {
	if agency == nil {
		return Schedule{}, nil
	}
	return parseSchedule(agency.OperatingDays, hourFields{
		opening:    agency.OpeningTime,
		closing:    agency.ClosingTime,
		lunchStart: agency.LunchStartTime,
		lunchEnd:   agency.LunchEndTime,
	})
}

// ScheduleFromSnapshot rebuilds the hours captured on a record. Operating days
// are not part of the snapshot.
func ScheduleFromSnapshot(snap model.AgencySnapshot) (Schedule, error) {
	return parseSchedule(nil, hourFields{
		opening:    snap.OpeningTime,
		closing:    snap.ClosingTime,
		lunchStart: snap.LunchStartTime,
		lunchEnd:   snap.LunchEndTime,
	})
}

// WithClosures returns a copy of s that is closed on the given calendar days.
func (s Schedule) WithClosures(dates ...time.Time) Schedule {
	closures := make(map[string]bool, len(s.closures)+len(dates))
	for k := range s.closures {
		closures[k] = true
	}
	for _, d := range dates {
		closures[d.Format("2006-01-02")] = true
	}
	s.closures = closures
	return s
}

// IsOperatingDay reports whether date, a calendar day in the service
// timezone, is a working day for the agency.
func (s Schedule) IsOperatingDay(date time.Time) bool {
	if s.closures[date.Format("2006-01-02")] {
		return false
	}
	if len(s.days) == 0 {
		return EmptyOperatingDaysPolicy == AlwaysOperates
	}
	return s.days[date.Weekday()]
}

// OperatingDays lists the configured weekdays from Sunday to Saturday.
func (s Schedule) OperatingDays() []time.Weekday {
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.days[d] {
			out = append(out, d)
		}
	}
	return out
}

// Configured reports whether the schedule has opening and closing hours.
func (s Schedule) Configured() bool {
	return s.Hours != nil
}

// MorningEnd is lunch start, or the middle of the working day without a lunch window.
func (s Schedule) MorningEnd() ClockTime {
	if s.Lunch != nil {
		return s.Lunch.Start
	}
	return s.Hours.Midpoint()
}

// AfternoonStart is lunch end, or the middle of the working day without a lunch window.
func (s Schedule) AfternoonStart() ClockTime {
	if s.Lunch != nil {
		return s.Lunch.End
	}
	return s.Hours.Midpoint()
}

// SessionStart is the earliest time credited for kind. ok is false when the
// schedule does not define one.
func (s Schedule) SessionStart(kind model.SessionKind) (ClockTime, bool) {
	if !s.Configured() {
		return 0, false
	}
	switch kind {
	case model.SessionMorning:
		return s.Hours.Start, true
	case model.SessionAfternoon:
		return s.AfternoonStart(), true
	}
	return 0, false
}

// SnapshotOf copies the agency fields kept on an attendance record.
func SnapshotOf(agency *model.Agency) model.AgencySnapshot {
	name := agency.Name
	return model.AgencySnapshot{
		Name:           &name,
		Location:       agency.Address,
		BranchType:     agency.BranchType,
		OpeningTime:    agency.OpeningTime,
		ClosingTime:    agency.ClosingTime,
		LunchStartTime: agency.LunchStartTime,
		LunchEndTime:   agency.LunchEndTime,
	}
}
