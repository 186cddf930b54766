package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"practitrack.com/practitrack/attendance/model"
	"practitrack.com/practitrack/utils"
)

func TestClassifyTimeIn(t *testing.T) {
	c := NewClassifier(DefaultEarlyThreshold)
	s := standardSchedule(t)

	tests := []struct {
		clock   string
		session model.SessionKind
		remark  Remark
	}{
		{clock: "07:30", session: model.SessionMorning, remark: RemarkEarly},
		{clock: "07:45", session: model.SessionMorning, remark: RemarkNormal},
		{clock: "07:55", session: model.SessionMorning, remark: RemarkNormal},
		{clock: "08:00", session: model.SessionMorning, remark: RemarkNormal},
		{clock: "08:01", session: model.SessionMorning, remark: RemarkLate},
		{clock: "11:59", session: model.SessionMorning, remark: RemarkLate},
		{clock: "12:00", session: model.SessionAfternoon, remark: RemarkEarly},
		{clock: "12:50", session: model.SessionAfternoon, remark: RemarkNormal},
		{clock: "13:00", session: model.SessionAfternoon, remark: RemarkNormal},
		{clock: "13:10", session: model.SessionAfternoon, remark: RemarkLate},
		{clock: "16:59", session: model.SessionAfternoon, remark: RemarkLate},
		{clock: "17:00", session: model.SessionOvertime, remark: RemarkOvertime},
		{clock: "18:30", session: model.SessionOvertime, remark: RemarkOvertime},
	}

	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			got := c.Classify(s, at(monday, tt.clock), ClockInEvent, PriorState{})
			assert.Equal(t, tt.session, got.Session)
			assert.Equal(t, tt.remark, got.Remark)
		})
	}
}

func TestClassifyTimeOut(t *testing.T) {
	c := NewClassifier(DefaultEarlyThreshold)
	s := standardSchedule(t)

	tests := []struct {
		name    string
		open    model.SessionKind
		clock   string
		session model.SessionKind
		remark  Remark
	}{
		{name: "Morning before lunch", open: model.SessionMorning, clock: "11:30", session: model.SessionMorning, remark: RemarkEarlyDeparture},
		{name: "Morning at lunch", open: model.SessionMorning, clock: "12:00", session: model.SessionMorning, remark: RemarkNormal},
		{name: "Morning after lunch start", open: model.SessionMorning, clock: "12:05", session: model.SessionMorning, remark: RemarkNormal},
		{name: "Morning left open into the afternoon", open: model.SessionMorning, clock: "15:00", session: model.SessionMorning, remark: RemarkNormal},
		{name: "Afternoon before closing", open: model.SessionAfternoon, clock: "16:59", session: model.SessionAfternoon, remark: RemarkEarlyDeparture},
		{name: "Afternoon at closing", open: model.SessionAfternoon, clock: "17:00", session: model.SessionAfternoon, remark: RemarkNormal},
		{name: "Afternoon after closing", open: model.SessionAfternoon, clock: "17:01", session: model.SessionAfternoon, remark: RemarkOvertime},
		{name: "Overtime", open: model.SessionOvertime, clock: "19:00", session: model.SessionOvertime, remark: RemarkOvertime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prior := PriorState{Open: []OpenSession{{Kind: tt.open, TimeIn: at(monday, "07:00")}}}
			got := c.Classify(s, at(monday, tt.clock), ClockOutEvent, prior)
			assert.Equal(t, tt.session, got.Session)
			assert.Equal(t, tt.remark, got.Remark)
		})
	}
}

func TestClassifyUsesMinuteResolution(t *testing.T) {
	c := NewClassifier(DefaultEarlyThreshold)
	s := standardSchedule(t)

	in := c.Classify(s, at(monday, "08:00").Add(45*time.Second), ClockInEvent, PriorState{})
	assert.Equal(t, RemarkNormal, in.Remark)

	prior := PriorState{Open: []OpenSession{{Kind: model.SessionAfternoon, TimeIn: at(monday, "13:00")}}}
	out := c.Classify(s, at(monday, "17:00").Add(59*time.Second), ClockOutEvent, prior)
	assert.Equal(t, RemarkNormal, out.Remark)
}

func TestClassifyTimeOutPicksLatestOpenSession(t *testing.T) {
	c := NewClassifier(DefaultEarlyThreshold)
	prior := PriorState{Open: []OpenSession{
		{Kind: model.SessionAfternoon, TimeIn: at(monday, "13:00")},
		{Kind: model.SessionMorning, TimeIn: at(monday, "08:00")},
	}}

	got := c.Classify(standardSchedule(t), at(monday, "17:00"), ClockOutEvent, prior)
	assert.Equal(t, model.SessionAfternoon, got.Session)
}

func TestClassifyWithoutLunch(t *testing.T) {
	a := standardAgency()
	a.LunchStartTime, a.LunchEndTime = nil, nil
	s, err := ParseSchedule(a)
	assert.NoError(t, err)
	c := NewClassifier(DefaultEarlyThreshold)

	tests := []struct {
		name    string
		kind    EventKind
		clock   string
		open    *model.SessionKind
		session model.SessionKind
		remark  Remark
	}{
		{name: "Before the middle of the day", kind: ClockInEvent, clock: "12:29", session: model.SessionMorning, remark: RemarkLate},
		{name: "Afternoon starts at the middle of the day", kind: ClockInEvent, clock: "12:30", session: model.SessionAfternoon, remark: RemarkNormal},
		{name: "Afternoon late arrival", kind: ClockInEvent, clock: "14:00", session: model.SessionAfternoon, remark: RemarkLate},
		{name: "Morning out before the middle", kind: ClockOutEvent, clock: "12:00", open: utils.Ptr(model.SessionMorning), session: model.SessionMorning, remark: RemarkEarlyDeparture},
		{name: "Morning out at the middle", kind: ClockOutEvent, clock: "12:30", open: utils.Ptr(model.SessionMorning), session: model.SessionMorning, remark: RemarkNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var prior PriorState
			if tt.open != nil {
				prior.Open = []OpenSession{{Kind: *tt.open, TimeIn: at(monday, "08:00")}}
			}
			got := c.Classify(s, at(monday, tt.clock), tt.kind, prior)
			assert.Equal(t, tt.session, got.Session)
			assert.Equal(t, tt.remark, got.Remark)
		})
	}
}

func TestClassifyWithoutHours(t *testing.T) {
	c := NewClassifier(DefaultEarlyThreshold)
	var s Schedule

	tests := []struct {
		name    string
		kind    EventKind
		clock   string
		session model.SessionKind
	}{
		{name: "Morning clock-in", kind: ClockInEvent, clock: "09:00", session: model.SessionMorning},
		{name: "Afternoon clock-in", kind: ClockInEvent, clock: "14:00", session: model.SessionAfternoon},
		{name: "Noon is afternoon", kind: ClockInEvent, clock: "12:00", session: model.SessionAfternoon},
		{name: "Late evening is still afternoon", kind: ClockInEvent, clock: "20:00", session: model.SessionAfternoon},
		{name: "Clock-out without open session", kind: ClockOutEvent, clock: "15:00", session: model.SessionAfternoon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(s, at(monday, tt.clock), tt.kind, PriorState{})
			assert.Equal(t, tt.session, got.Session)
			assert.Equal(t, RemarkNormal, got.Remark)
		})
	}
}

func TestClassifyCustomThreshold(t *testing.T) {
	c := NewClassifier(0)
	got := c.Classify(standardSchedule(t), at(monday, "07:59"), ClockInEvent, PriorState{})
	assert.Equal(t, RemarkEarly, got.Remark)
}

func TestPriorStateOf(t *testing.T) {
	rec := NewRecord(RecordKey{StudentID: 1, PracticumID: 100, Date: utils.MustParseDate(monday)}, model.StatusPresent)
	assert.Empty(t, PriorStateOf(rec).Open)
	assert.Empty(t, PriorStateOf(nil).Open)

	rec.MorningTimeIn = utils.Ptr(at(monday, "08:00"))
	rec.MorningTimeOut = utils.Ptr(at(monday, "12:00"))
	rec.MorningState = model.SessionComplete
	rec.AfternoonTimeIn = utils.Ptr(at(monday, "13:00"))
	rec.AfternoonState = model.SessionOpen

	open := PriorStateOf(rec).Open
	assert.Len(t, open, 1)
	assert.Equal(t, model.SessionAfternoon, open[0].Kind)
}
