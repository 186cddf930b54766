package store

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	attendance "practitrack.com/practitrack/attendance/core"
	"practitrack.com/practitrack/attendance/model"
)

// RequirementGate admits a student once their placement is active and every
// mandatory requirement is submitted or approved.
type RequirementGate struct {
	db *gorm.DB
}

func NewRequirementGate(db *gorm.DB) *RequirementGate {
	return &RequirementGate{db: db}
}

func (g *RequirementGate) CheckEligibility(ctx context.Context, studentID, practicumID int32) error {
	var p model.Practicum
	err := g.db.WithContext(ctx).Take(&p, "id = ? AND student_id = ?", practicumID, studentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return attendance.NotEligibleError("practicum %d is not assigned to this student", practicumID)
	}
	if err != nil {
		return errors.Wrapf(err, "load practicum %d", practicumID)
	}
	if p.Status != model.PracticumActive {
		return attendance.NotEligibleError("practicum %d is %s", practicumID, p.Status)
	}

	var outstanding int64
	err = g.db.WithContext(ctx).Model(&model.Requirement{}).
		Where("student_id = ? AND practicum_id = ? AND mandatory = ?", studentID, practicumID, true).
		Where("status NOT IN ?", []string{model.RequirementSubmitted, model.RequirementApproved}).
		Count(&outstanding).Error
	if err != nil {
		return errors.Wrapf(err, "count requirements for practicum %d", practicumID)
	}
	if outstanding > 0 {
		return attendance.NotEligibleError("%d mandatory requirement(s) still outstanding", outstanding)
	}
	return nil
}
