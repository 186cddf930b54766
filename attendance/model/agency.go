package model

import (
	"time"

	"gorm.io/datatypes"
)

type Agency struct {
	ID             int32                       `gorm:"primaryKey;column:id" json:"id"`
	Name           string                      `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Address        *string                     `gorm:"column:address;type:varchar(255)" json:"address,omitempty"`
	BranchType     *string                     `gorm:"column:branch_type;type:varchar(50)" json:"branchType,omitempty"`
	OperatingDays  datatypes.JSONSlice[string] `gorm:"column:operating_days" json:"operatingDays"`
	OpeningTime    *string                     `gorm:"column:opening_time;type:varchar(8)" json:"openingTime,omitempty"`
	ClosingTime    *string                     `gorm:"column:closing_time;type:varchar(8)" json:"closingTime,omitempty"`
	LunchStartTime *string                     `gorm:"column:lunch_start_time;type:varchar(8)" json:"lunchStartTime,omitempty"`
	LunchEndTime   *string                     `gorm:"column:lunch_end_time;type:varchar(8)" json:"lunchEndTime,omitempty"`
}

func (Agency) TableName() string {
	return "agencies"
}

const PracticumActive = "active"

// Practicum is a student's placement at an agency.
type Practicum struct {
	ID        int32     `gorm:"primaryKey;column:id" json:"id"`
	StudentID int32     `gorm:"column:student_id;not null;index" json:"studentId"`
	AgencyID  int32     `gorm:"column:agency_id;not null" json:"agencyId"`
	Status    string    `gorm:"column:status;type:varchar(20);not null" json:"status"`
	StartDate time.Time `gorm:"column:start_date;type:date" json:"startDate"`
	EndDate   time.Time `gorm:"column:end_date;type:date" json:"endDate"`

	Agency *Agency `gorm:"foreignKey:AgencyID;references:ID" json:"agency,omitempty"`
}

func (Practicum) TableName() string {
	return "practicums"
}

// Covers reports whether date falls inside the placement window, inclusive.
func (p Practicum) Covers(date time.Time) bool {
	d := date.Format("2006-01-02")
	return p.StartDate.Format("2006-01-02") <= d && d <= p.EndDate.Format("2006-01-02")
}

// Holiday closes a date for one agency, or for every agency when AgencyID is nil.
type Holiday struct {
	ID          int32     `gorm:"primaryKey;column:id" json:"id"`
	Date        time.Time `gorm:"column:date;type:date;not null;uniqueIndex:ux_holiday_date_agency,priority:1" json:"date"`
	AgencyID    *int32    `gorm:"column:agency_id;uniqueIndex:ux_holiday_date_agency,priority:2" json:"agencyId,omitempty"`
	Description string    `gorm:"column:description;type:varchar(255)" json:"description"`
	Source      string    `gorm:"column:source;type:varchar(20)" json:"source"`
}

func (Holiday) TableName() string {
	return "holidays"
}

func (h Holiday) AppliesTo(agencyID int32) bool {
	return h.AgencyID == nil || *h.AgencyID == agencyID
}

const (
	RequirementPending   = "pending"
	RequirementSubmitted = "submitted"
	RequirementApproved  = "approved"
	RequirementDeclined  = "declined"
)

// Requirement is a document a student owes before attendance is accepted.
type Requirement struct {
	ID          int32  `gorm:"primaryKey;column:id" json:"id"`
	StudentID   int32  `gorm:"column:student_id;not null;index" json:"studentId"`
	PracticumID int32  `gorm:"column:practicum_id;not null" json:"practicumId"`
	Title       string `gorm:"column:title;type:varchar(255)" json:"title"`
	Mandatory   bool   `gorm:"column:mandatory;not null;default:true" json:"mandatory"`
	Status      string `gorm:"column:status;type:varchar(20);not null" json:"status"`
}

func (Requirement) TableName() string {
	return "requirements"
}
