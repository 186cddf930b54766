package core

import (
	"math"
	"time"

	"practitrack.com/practitrack/attendance/model"
)

// ClockEvent is a server-resolved punch applied to a session.
type ClockEvent struct {
	At     time.Time
	Meta   model.ClockMeta
	Remark Remark
}

// openSession moves Empty to Open.
func openSession(s model.Session, ev ClockEvent) (model.Session, error) {
	switch s.State {
	case model.SessionOpen:
		return s, ConflictError("%s session is already open since %s", s.Kind, s.TimeIn.In(ev.At.Location()).Format("15:04"))
	case model.SessionComplete:
		return s, ConflictError("%s session is already complete", s.Kind)
	case model.SessionNullified:
		return s, ConflictError("%s session was closed without a time-out and cannot be reopened", s.Kind)
	}

	at := ev.At
	meta := ev.Meta
	remark := string(ev.Remark)
	meta.Remark = &remark
	return model.Session{Kind: s.Kind, State: model.SessionOpen, TimeIn: &at, In: meta}, nil
}

// completeSession moves Open to Complete.
func completeSession(s model.Session, ev ClockEvent) (model.Session, error) {
	if s.State != model.SessionOpen || s.TimeIn == nil {
		return s, BadRequestError("no open %s time-in to clock out from", s.Kind)
	}
	if ev.At.Before(*s.TimeIn) {
		return s, BadRequestError("%s time-out %s is before time-in %s", s.Kind, ev.At.Format("15:04"), s.TimeIn.In(ev.At.Location()).Format("15:04"))
	}

	at := ev.At
	meta := ev.Meta
	remark := string(ev.Remark)
	meta.Remark = &remark
	s.State = model.SessionComplete
	s.TimeOut = &at
	s.Out = meta
	return s, nil
}

// nullifySession moves Open to Nullified. Other states are returned unchanged.
// The time-in is kept for audit; it no longer counts toward hours.
func nullifySession(s model.Session) (model.Session, bool) {
	if s.State != model.SessionOpen {
		return s, false
	}
	s.State = model.SessionNullified
	s.TimeOut = nil
	return s, true
}

// creditedDuration is the worked time of a complete session. A time-in before the
// session start is credited from the start. The start is placed on the calendar day
// of the time-in in loc, whatever location the stored time carries.
func creditedDuration(s model.Session, schedule Schedule, loc *time.Location) time.Duration {
	if s.State != model.SessionComplete || s.TimeIn == nil || s.TimeOut == nil {
		return 0
	}
	in := s.TimeIn.In(loc)
	if start, ok := schedule.SessionStart(s.Kind); ok {
		startAt := start.On(in, loc)
		if in.Before(startAt) {
			in = startAt
		}
	}
	if !s.TimeOut.After(in) {
		return 0
	}
	return s.TimeOut.Sub(in)
}

// ComputeHours sums the complete sessions of rec, rounded to hundredths of an hour.
// loc is the service timezone the schedule is expressed in.
func ComputeHours(rec *model.AttendanceRecord, schedule Schedule, loc *time.Location) float64 {
	var total time.Duration
	for _, s := range rec.Sessions() {
		total += creditedDuration(s, schedule, loc)
	}
	return math.Round(total.Hours()*100) / 100
}
