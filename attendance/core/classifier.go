package core

import (
	"time"

	"practitrack.com/practitrack/attendance/model"
)

type Remark string

const (
	RemarkNormal         Remark = "Normal"
	RemarkLate           Remark = "Late"
	RemarkEarly          Remark = "Early"
	RemarkEarlyDeparture Remark = "EarlyDeparture"
	RemarkOvertime       Remark = "Overtime"
)

type EventKind int

const (
	ClockInEvent EventKind = iota
	ClockOutEvent
)

func (k EventKind) String() string {
	if k == ClockOutEvent {
		return "clock-out"
	}
	return "clock-in"
}

// DefaultEarlyThreshold is how far ahead of a session start a time-in still counts as Normal.
const DefaultEarlyThreshold = 15 * time.Minute

const noon = ClockTime(12 * 3600)

// OpenSession is a session with a time-in and no time-out.
type OpenSession struct {
	Kind   model.SessionKind
	TimeIn time.Time
}

// PriorState is what the classifier needs to know about the day so far.
type PriorState struct {
	Open []OpenSession
}

// PriorStateOf collects the open sessions of rec.
func PriorStateOf(rec *model.AttendanceRecord) PriorState {
	var p PriorState
	if rec == nil {
		return p
	}
	for _, s := range rec.Sessions() {
		if s.State == model.SessionOpen && s.TimeIn != nil {
			p.Open = append(p.Open, OpenSession{Kind: s.Kind, TimeIn: *s.TimeIn})
		}
	}
	return p
}

// Latest returns the most recently opened session.
func (p PriorState) Latest() (OpenSession, bool) {
	if len(p.Open) == 0 {
		return OpenSession{}, false
	}
	latest := p.Open[0]
	for _, o := range p.Open[1:] {
		if o.TimeIn.After(latest.TimeIn) {
			latest = o
		}
	}
	return latest, true
}

type Classification struct {
	Session model.SessionKind
	Remark  Remark
}

// Classifier assigns clock events to sessions. It holds configuration only.
type Classifier struct {
	EarlyThreshold time.Duration
}

func NewClassifier(earlyThreshold time.Duration) Classifier {
	return Classifier{EarlyThreshold: earlyThreshold}
}

// Classify decides the session and remark of an event at, which must already be
// in the agency's timezone. Times are compared at minute resolution.
func (c Classifier) Classify(s Schedule, at time.Time, kind EventKind, prior PriorState) Classification {
	t := ClockTimeOf(at.Truncate(time.Minute))

	if kind == ClockOutEvent {
		if open, ok := prior.Latest(); ok {
			return Classification{Session: open.Kind, Remark: c.timeOutRemark(s, open.Kind, t)}
		}
	}

	session := sessionAt(s, t)
	if kind == ClockOutEvent {
		return Classification{Session: session, Remark: c.timeOutRemark(s, session, t)}
	}
	return Classification{Session: session, Remark: c.timeInRemark(s, session, t)}
}

func sessionAt(s Schedule, t ClockTime) model.SessionKind {
	if !s.Configured() {
		if t < noon {
			return model.SessionMorning
		}
		return model.SessionAfternoon
	}
	switch {
	case t < s.MorningEnd():
		return model.SessionMorning
	case t < s.Hours.End:
		return model.SessionAfternoon
	}
	return model.SessionOvertime
}

func (c Classifier) timeInRemark(s Schedule, session model.SessionKind, t ClockTime) Remark {
	if session == model.SessionOvertime {
		return RemarkOvertime
	}
	start, ok := s.SessionStart(session)
	if !ok {
		return RemarkNormal
	}
	switch {
	case t > start:
		return RemarkLate
	case time.Duration(start-t)*time.Second > c.EarlyThreshold:
		return RemarkEarly
	}
	return RemarkNormal
}

func (c Classifier) timeOutRemark(s Schedule, session model.SessionKind, t ClockTime) Remark {
	if session == model.SessionOvertime {
		if s.Configured() {
			return RemarkOvertime
		}
		return RemarkNormal
	}
	if !s.Configured() {
		return RemarkNormal
	}
	switch session {
	case model.SessionMorning:
		if t < s.MorningEnd() {
			return RemarkEarlyDeparture
		}
	case model.SessionAfternoon:
		if t < s.Hours.End {
			return RemarkEarlyDeparture
		}
		if t > s.Hours.End {
			return RemarkOvertime
		}
	}
	return RemarkNormal
}
