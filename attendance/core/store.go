package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"practitrack.com/practitrack/attendance/model"
)

// RecordKey identifies the single attendance row of a student, placement and day.
type RecordKey struct {
	StudentID   int32
	PracticumID int32
	Date        time.Time
}

func (k RecordKey) String() string {
	return fmt.Sprintf("%d:%d:%s", k.StudentID, k.PracticumID, k.Date.Format("2006-01-02"))
}

type RecordQuery struct {
	StudentID   int32
	PracticumID int32
	From        time.Time
	To          time.Time
}

// Repository is the record store. FindRecord returns nil, nil when there is no row.
type Repository interface {
	FindRecord(ctx context.Context, key RecordKey) (*model.AttendanceRecord, error)
	CreateRecord(ctx context.Context, rec *model.AttendanceRecord) error
	SaveRecord(ctx context.Context, rec *model.AttendanceRecord) error
	ListRecords(ctx context.Context, q RecordQuery) ([]model.AttendanceRecord, error)
	ActivePlacements(ctx context.Context, date time.Time) ([]model.Practicum, error)
	Holidays(ctx context.Context, date time.Time) ([]model.Holiday, error)
	// Transact runs fn against a repository bound to one transaction. Reads made
	// through it lock the rows they return.
	Transact(ctx context.Context, fn func(tx Repository) error) error
}

// NewRecord builds an unsaved row for key with every session empty.
func NewRecord(key RecordKey, status string) *model.AttendanceRecord {
	return &model.AttendanceRecord{
		ID:             uuid.NewString(),
		StudentID:      key.StudentID,
		PracticumID:    key.PracticumID,
		Date:           key.Date,
		Day:            key.Date.Weekday().String(),
		MorningState:   model.SessionEmpty,
		AfternoonState: model.SessionEmpty,
		OvertimeState:  model.SessionEmpty,
		Status:         status,
		ApprovalStatus: model.ApprovalPending,
	}
}

// Store serialises every read-then-write on a record key, in process with a
// keyed mutex and across processes with a transaction and the unique index.
type Store struct {
	repo  Repository
	locks *KeyedMutex
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo, locks: NewKeyedMutex()}
}

func (s *Store) Repository() Repository {
	return s.repo
}

// WithRecord runs fn holding the lock for key inside a transaction.
func (s *Store) WithRecord(ctx context.Context, key RecordKey, fn func(tx Repository) error) error {
	unlock := s.locks.Lock(key.String())
	defer unlock()
	return s.repo.Transact(ctx, fn)
}

// FindOrCreate loads the row for key or inserts a new one built by init.
// Must be called from within WithRecord.
func (s *Store) FindOrCreate(ctx context.Context, tx Repository, key RecordKey, init func() *model.AttendanceRecord) (*model.AttendanceRecord, bool, error) {
	rec, err := tx.FindRecord(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if rec != nil {
		return rec, false, nil
	}

	rec = init()
	if err := tx.CreateRecord(ctx, rec); err != nil {
		if !errors.Is(err, ErrDuplicateRecord) {
			return nil, false, err
		}
		// another process inserted between our read and write
		existing, err := tx.FindRecord(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("record %s reported as duplicate but not found", key)
		}
		return existing, false, nil
	}
	return rec, true, nil
}

// ApplyClockIn opens session on a copy of rec. The original is never modified.
func ApplyClockIn(rec model.AttendanceRecord, session model.SessionKind, ev ClockEvent) (model.AttendanceRecord, error) {
	next, err := openSession(rec.Session(session), ev)
	if err != nil {
		return rec, err
	}
	rec.SetSession(next)
	setLastEvent(&rec, session, ev.Remark)
	return rec, nil
}

// ApplyClockOut completes session on a copy of rec and recomputes hours and status.
// ev.At must be in the service timezone; hours are anchored to its location.
func ApplyClockOut(rec model.AttendanceRecord, session model.SessionKind, ev ClockEvent, schedule Schedule) (model.AttendanceRecord, error) {
	next, err := completeSession(rec.Session(session), ev)
	if err != nil {
		return rec, err
	}
	rec.SetSession(next)
	setLastEvent(&rec, session, ev.Remark)
	rec.Hours = ComputeHours(&rec, schedule, ev.At.Location())
	switch rec.Status {
	case model.StatusExcused, model.StatusAbsent:
	default:
		rec.Status = model.StatusPresent
	}
	return rec, nil
}

// NullifySession marks an open session of rec as abandoned. It reports whether
// anything changed.
func NullifySession(rec *model.AttendanceRecord, session model.SessionKind) bool {
	next, changed := nullifySession(rec.Session(session))
	if changed {
		rec.SetSession(next)
	}
	return changed
}

func setLastEvent(rec *model.AttendanceRecord, session model.SessionKind, remark Remark) {
	kind := session
	r := string(remark)
	rec.SessionType = &kind
	rec.Remark = &r
}
