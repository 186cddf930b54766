package model

import (
	"time"
)

type SessionKind string

const (
	SessionMorning   SessionKind = "morning"
	SessionAfternoon SessionKind = "afternoon"
	SessionOvertime  SessionKind = "overtime"
)

// SessionKinds lists the sessions of a day in chronological order.
var SessionKinds = []SessionKind{SessionMorning, SessionAfternoon, SessionOvertime}

type SessionState string

const (
	SessionEmpty     SessionState = "empty"
	SessionOpen      SessionState = "open"
	SessionComplete  SessionState = "complete"
	SessionNullified SessionState = "nullified"
)

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusExcused = "excused"
	// StatusLate is only found on legacy rows. It is read as present and never written.
	StatusLate = "late"
)

const (
	ApprovalPending  = "Pending"
	ApprovalApproved = "Approved"
	ApprovalDeclined = "Declined"
)

// NormalizeStatus maps legacy statuses onto the current set.
func NormalizeStatus(status string) string {
	if status == StatusLate {
		return StatusPresent
	}
	return status
}

// ClockMeta is the device and location data sent with a single punch.
type ClockMeta struct {
	DeviceType   *string  `gorm:"column:device_type;type:varchar(50)" json:"deviceType,omitempty"`
	DeviceUnit   *string  `gorm:"column:device_unit;type:varchar(100)" json:"deviceUnit,omitempty"`
	MacAddress   *string  `gorm:"column:mac_address;type:varchar(50)" json:"macAddress,omitempty"`
	Latitude     *float64 `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude    *float64 `gorm:"column:longitude" json:"longitude,omitempty"`
	Address      *string  `gorm:"column:address;type:varchar(255)" json:"address,omitempty"`
	LocationType *string  `gorm:"column:location_type;type:varchar(50)" json:"locationType,omitempty"`
	Remarks      *string  `gorm:"column:remarks;type:varchar(255)" json:"remarks,omitempty"`
	Remark       *string  `gorm:"column:remark;type:varchar(20)" json:"remark,omitempty"`
	PhotoURL     *string  `gorm:"column:photo_url;type:varchar(255)" json:"photoUrl,omitempty"`
}

// AgencySnapshot keeps the agency details that were in force when the student clocked in.
type AgencySnapshot struct {
	Name           *string `gorm:"column:name;type:varchar(255)" json:"name,omitempty"`
	Location       *string `gorm:"column:location;type:varchar(255)" json:"location,omitempty"`
	BranchType     *string `gorm:"column:branch_type;type:varchar(50)" json:"branchType,omitempty"`
	OpeningTime    *string `gorm:"column:opening_time;type:varchar(8)" json:"openingTime,omitempty"`
	ClosingTime    *string `gorm:"column:closing_time;type:varchar(8)" json:"closingTime,omitempty"`
	LunchStartTime *string `gorm:"column:lunch_start_time;type:varchar(8)" json:"lunchStartTime,omitempty"`
	LunchEndTime   *string `gorm:"column:lunch_end_time;type:varchar(8)" json:"lunchEndTime,omitempty"`
}

func (s AgencySnapshot) Captured() bool {
	return s.Name != nil
}

type AttendanceRecord struct {
	ID          string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	StudentID   int32     `gorm:"column:student_id;not null;uniqueIndex:ux_attendance_student_practicum_date,priority:1" json:"studentId"`
	PracticumID int32     `gorm:"column:practicum_id;not null;uniqueIndex:ux_attendance_student_practicum_date,priority:2" json:"practicumId"`
	Date        time.Time `gorm:"column:date;type:date;not null;uniqueIndex:ux_attendance_student_practicum_date,priority:3" json:"-"`
	Day         string    `gorm:"column:day;type:varchar(10)" json:"day"`

	MorningTimeIn  *time.Time   `gorm:"column:morning_time_in" json:"morningTimeIn"`
	MorningTimeOut *time.Time   `gorm:"column:morning_time_out" json:"morningTimeOut"`
	MorningState   SessionState `gorm:"column:morning_state;type:varchar(10);not null;default:empty" json:"morningState"`
	MorningIn      ClockMeta    `gorm:"embedded;embeddedPrefix:morning_in_" json:"morningIn"`
	MorningOut     ClockMeta    `gorm:"embedded;embeddedPrefix:morning_out_" json:"morningOut"`

	AfternoonTimeIn  *time.Time   `gorm:"column:afternoon_time_in" json:"afternoonTimeIn"`
	AfternoonTimeOut *time.Time   `gorm:"column:afternoon_time_out" json:"afternoonTimeOut"`
	AfternoonState   SessionState `gorm:"column:afternoon_state;type:varchar(10);not null;default:empty" json:"afternoonState"`
	AfternoonIn      ClockMeta    `gorm:"embedded;embeddedPrefix:afternoon_in_" json:"afternoonIn"`
	AfternoonOut     ClockMeta    `gorm:"embedded;embeddedPrefix:afternoon_out_" json:"afternoonOut"`

	// TimeIn/TimeOut hold the overtime session.
	TimeIn        *time.Time   `gorm:"column:time_in" json:"timeIn"`
	TimeOut       *time.Time   `gorm:"column:time_out" json:"timeOut"`
	OvertimeState SessionState `gorm:"column:overtime_state;type:varchar(10);not null;default:empty" json:"overtimeState"`
	OvertimeIn    ClockMeta    `gorm:"embedded;embeddedPrefix:overtime_in_" json:"overtimeIn"`
	OvertimeOut   ClockMeta    `gorm:"embedded;embeddedPrefix:overtime_out_" json:"overtimeOut"`

	Hours          float64      `gorm:"column:hours;type:decimal(5,2);not null;default:0" json:"hours"`
	Status         string       `gorm:"column:status;type:varchar(20);not null" json:"status"`
	ApprovalStatus string       `gorm:"column:approval_status;type:varchar(20);not null" json:"approvalStatus"`
	SessionType    *SessionKind `gorm:"column:session_type;type:varchar(20)" json:"sessionType,omitempty"`
	Remark         *string      `gorm:"column:remark;type:varchar(20)" json:"remark,omitempty"`

	Agency AgencySnapshot `gorm:"embedded;embeddedPrefix:agency_" json:"agency"`

	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (AttendanceRecord) TableName() string {
	return "attendances"
}

// DateString renders the calendar date of the record.
func (r AttendanceRecord) DateString() string {
	return r.Date.Format("2006-01-02")
}

// Session is one in/out pair of the record together with its explicit state.
type Session struct {
	Kind    SessionKind
	State   SessionState
	TimeIn  *time.Time
	TimeOut *time.Time
	In      ClockMeta
	Out     ClockMeta
}

// Session reads the pair for kind. Rows written before the state columns existed
// carry no state, so it is derived from the timestamps.
func (r *AttendanceRecord) Session(kind SessionKind) Session {
	var s Session
	switch kind {
	case SessionMorning:
		s = Session{Kind: kind, State: r.MorningState, TimeIn: r.MorningTimeIn, TimeOut: r.MorningTimeOut, In: r.MorningIn, Out: r.MorningOut}
	case SessionAfternoon:
		s = Session{Kind: kind, State: r.AfternoonState, TimeIn: r.AfternoonTimeIn, TimeOut: r.AfternoonTimeOut, In: r.AfternoonIn, Out: r.AfternoonOut}
	case SessionOvertime:
		s = Session{Kind: kind, State: r.OvertimeState, TimeIn: r.TimeIn, TimeOut: r.TimeOut, In: r.OvertimeIn, Out: r.OvertimeOut}
	default:
		return Session{Kind: kind, State: SessionEmpty}
	}
	if s.State == "" {
		switch {
		case s.TimeIn != nil && s.TimeOut != nil:
			s.State = SessionComplete
		case s.TimeIn != nil:
			s.State = SessionOpen
		default:
			s.State = SessionEmpty
		}
	}
	return s
}

func (r *AttendanceRecord) SetSession(s Session) {
	switch s.Kind {
	case SessionMorning:
		r.MorningState, r.MorningTimeIn, r.MorningTimeOut, r.MorningIn, r.MorningOut = s.State, s.TimeIn, s.TimeOut, s.In, s.Out
	case SessionAfternoon:
		r.AfternoonState, r.AfternoonTimeIn, r.AfternoonTimeOut, r.AfternoonIn, r.AfternoonOut = s.State, s.TimeIn, s.TimeOut, s.In, s.Out
	case SessionOvertime:
		r.OvertimeState, r.TimeIn, r.TimeOut, r.OvertimeIn, r.OvertimeOut = s.State, s.TimeIn, s.TimeOut, s.In, s.Out
	}
}

// Sessions returns the three pairs in chronological order.
func (r *AttendanceRecord) Sessions() []Session {
	out := make([]Session, 0, len(SessionKinds))
	for _, k := range SessionKinds {
		out = append(out, r.Session(k))
	}
	return out
}
