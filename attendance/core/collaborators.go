package core

import (
	"context"
	"time"

	"go.uber.org/zap"
	"practitrack.com/practitrack/attendance/model"
)

// AgencyDirectory resolves the agency a placement belongs to. A nil agency with
// a nil error means the placement has none.
type AgencyDirectory interface {
	AgencyForPracticum(ctx context.Context, practicumID int32) (*model.Agency, error)
}

// EligibilityGate decides whether a student may record attendance for a placement.
type EligibilityGate interface {
	CheckEligibility(ctx context.Context, studentID, practicumID int32) error
}

type AuditEntry struct {
	Action      string            `json:"action"`
	StudentID   int32             `json:"studentId"`
	PracticumID int32             `json:"practicumId"`
	RecordID    string            `json:"recordId"`
	Session     model.SessionKind `json:"session"`
	Remark      Remark            `json:"remark"`
	At          time.Time         `json:"at"`
}

type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// AllowAll admits every student.
type AllowAll struct{}

func (AllowAll) CheckEligibility(ctx context.Context, studentID, practicumID int32) error {
	return nil
}

// LogAuditSink writes entries to the application log.
type LogAuditSink struct {
	Log *zap.Logger
}

func (s LogAuditSink) Record(ctx context.Context, e AuditEntry) error {
	s.Log.Info("attendance audit",
		zap.String("action", e.Action),
		zap.Int32("studentId", e.StudentID),
		zap.Int32("practicumId", e.PracticumID),
		zap.String("recordId", e.RecordID),
		zap.String("session", string(e.Session)),
		zap.String("remark", string(e.Remark)),
		zap.Time("at", e.At))
	return nil
}

// AsyncAuditSink hands entries to Next on a separate goroutine so a slow sink
// never holds up a clock event.
type AsyncAuditSink struct {
	Next AuditSink
	Log  *zap.Logger
}

func (s AsyncAuditSink) Record(ctx context.Context, e AuditEntry) error {
	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, 10*time.Second)
		defer cancel()
		if err := s.Next.Record(ctx, e); err != nil {
			s.Log.Warn("audit sink failed", zap.String("recordId", e.RecordID), zap.Error(err))
		}
	}()
	return nil
}

// MultiAuditSink records to every sink and returns the first error.
type MultiAuditSink []AuditSink

func (m MultiAuditSink) Record(ctx context.Context, e AuditEntry) error {
	var first error
	for _, s := range m {
		if err := s.Record(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
