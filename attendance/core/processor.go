package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"practitrack.com/practitrack/attendance/model"
	"practitrack.com/practitrack/utils"
)

type ProcessorOptions struct {
	Location       *time.Location
	Now            func() time.Time
	EarlyThreshold time.Duration
}

// Processor turns clock-in and clock-out requests into session transitions.
type Processor struct {
	store      *Store
	reconciler *Reconciler
	classifier Classifier
	agencies   AgencyDirectory
	gate       EligibilityGate
	audit      AuditSink
	loc        *time.Location
	now        func() time.Time
	log        *zap.Logger
}

func NewProcessor(store *Store, agencies AgencyDirectory, gate EligibilityGate, audit AuditSink, log *zap.Logger, opts ProcessorOptions) *Processor {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if gate == nil {
		gate = AllowAll{}
	}
	if audit == nil {
		audit = LogAuditSink{Log: log}
	}
	return &Processor{
		store:      store,
		reconciler: NewReconciler(store, log),
		classifier: NewClassifier(opts.EarlyThreshold),
		agencies:   agencies,
		gate:       gate,
		audit:      audit,
		loc:        opts.Location,
		now:        opts.Now,
		log:        log,
	}
}

// Today is the current calendar day in the service timezone.
func (p *Processor) Today() time.Time {
	return utils.DateOf(p.now().In(p.loc))
}

func (p *Processor) admit(ctx context.Context, req ClockRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := p.gate.CheckEligibility(ctx, req.StudentID, req.PracticumID); err != nil {
		if _, ok := KindOf(err); ok {
			return err
		}
		return fmt.Errorf("eligibility check: %w", err)
	}
	return nil
}

// lookupAgency never fails the clock event; without an agency the event is
// classified by time of day only.
func (p *Processor) lookupAgency(ctx context.Context, practicumID int32) *model.Agency {
	if p.agencies == nil {
		return nil
	}
	agency, err := p.agencies.AgencyForPracticum(ctx, practicumID)
	if err != nil {
		p.log.Warn("agency lookup failed, continuing without agency hours",
			zap.Int32("practicumId", practicumID), zap.Error(err))
		return nil
	}
	return agency
}

// scheduleFor prefers the hours captured on the record over the live agency.
func (p *Processor) scheduleFor(rec *model.AttendanceRecord, agency *model.Agency) Schedule {
	if rec != nil && rec.Agency.Captured() {
		if s, err := ScheduleFromSnapshot(rec.Agency); err == nil {
			return s
		}
	}
	s, err := ParseSchedule(agency)
	if err != nil {
		p.log.Warn("agency hours are malformed, classifying by time of day",
			zap.Int32("agencyId", agency.ID), zap.Error(err))
	}
	return s
}

func (p *Processor) ignoreHints(req ClockRequest, cls Classification, today time.Time) {
	if req.SessionType != nil && *req.SessionType != string(cls.Session) {
		p.log.Debug("client session hint ignored",
			zap.String("hint", *req.SessionType), zap.String("resolved", string(cls.Session)))
	}
	if req.Date != nil && *req.Date != "" && *req.Date != today.Format(utils.DateLayout) {
		p.log.Debug("client date hint ignored",
			zap.String("hint", *req.Date), zap.String("resolved", today.Format(utils.DateLayout)))
	}
}

// ClockIn records a time-in for the session the current time falls in.
func (p *Processor) ClockIn(ctx context.Context, req ClockRequest) (*model.AttendanceRecord, error) {
	if err := p.admit(ctx, req); err != nil {
		return nil, err
	}

	now := p.now().In(p.loc)
	today := utils.DateOf(now)

	if _, err := p.reconciler.NullifyIncompleteSessions(ctx, req.StudentID, req.PracticumID, today.AddDate(0, 0, -1)); err != nil {
		return nil, fmt.Errorf("reconcile previous day: %w", err)
	}

	agency := p.lookupAgency(ctx, req.PracticumID)
	if agency != nil {
		if live, _ := ParseSchedule(agency); !live.IsOperatingDay(today) {
			p.log.Info("clock-in on a non-operating day",
				zap.Int32("studentId", req.StudentID), zap.Int32("agencyId", agency.ID), zap.String("day", today.Weekday().String()))
		}
	}

	key := RecordKey{StudentID: req.StudentID, PracticumID: req.PracticumID, Date: today}
	var (
		out model.AttendanceRecord
		cls Classification
	)
	err := p.store.WithRecord(ctx, key, func(tx Repository) error {
		rec, _, err := p.store.FindOrCreate(ctx, tx, key, func() *model.AttendanceRecord {
			return NewRecord(key, model.StatusPresent)
		})
		if err != nil {
			return err
		}

		schedule := p.scheduleFor(rec, agency)
		cls = p.classifier.Classify(schedule, now, ClockInEvent, PriorState{})
		updated, err := ApplyClockIn(*rec, cls.Session, ClockEvent{At: now, Meta: req.Meta(), Remark: cls.Remark})
		if err != nil {
			return err
		}
		if agency != nil && !updated.Agency.Captured() {
			updated.Agency = SnapshotOf(agency)
		}
		if err := tx.SaveRecord(ctx, &updated); err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.ignoreHints(req, cls, today)
	p.emit(ctx, "clock-in", &out, cls, now)
	return &out, nil
}

// ClockOut records a time-out for the session that is currently open today.
func (p *Processor) ClockOut(ctx context.Context, req ClockRequest) (*model.AttendanceRecord, error) {
	if err := p.admit(ctx, req); err != nil {
		return nil, err
	}

	now := p.now().In(p.loc)
	today := utils.DateOf(now)
	agency := p.lookupAgency(ctx, req.PracticumID)

	key := RecordKey{StudentID: req.StudentID, PracticumID: req.PracticumID, Date: today}
	var (
		out model.AttendanceRecord
		cls Classification
	)
	err := p.store.WithRecord(ctx, key, func(tx Repository) error {
		rec, err := tx.FindRecord(ctx, key)
		if err != nil {
			return err
		}
		if rec == nil {
			return NotFoundError("no attendance record for %s, clock in first", today.Format(utils.DateLayout))
		}

		schedule := p.scheduleFor(rec, agency)
		cls = p.classifier.Classify(schedule, now, ClockOutEvent, PriorStateOf(rec))
		updated, err := ApplyClockOut(*rec, cls.Session, ClockEvent{At: now, Meta: req.Meta(), Remark: cls.Remark}, schedule)
		if err != nil {
			return err
		}
		if agency != nil && !updated.Agency.Captured() {
			updated.Agency = SnapshotOf(agency)
		}
		if err := tx.SaveRecord(ctx, &updated); err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.ignoreHints(req, cls, today)
	p.emit(ctx, "clock-out", &out, cls, now)
	return &out, nil
}

// Today's record for the student, or nil.
func (p *Processor) TodayRecord(ctx context.Context, studentID, practicumID int32) (*model.AttendanceRecord, error) {
	return p.store.Repository().FindRecord(ctx, RecordKey{StudentID: studentID, PracticumID: practicumID, Date: p.Today()})
}

func (p *Processor) emit(ctx context.Context, action string, rec *model.AttendanceRecord, cls Classification, at time.Time) {
	entry := AuditEntry{
		Action:      action,
		StudentID:   rec.StudentID,
		PracticumID: rec.PracticumID,
		RecordID:    rec.ID,
		Session:     cls.Session,
		Remark:      cls.Remark,
		At:          at,
	}
	if err := p.audit.Record(ctx, entry); err != nil {
		p.log.Warn("audit sink failed", zap.String("recordId", rec.ID), zap.Error(err))
	}
}
