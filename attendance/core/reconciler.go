package core

import (
	"context"
	"time"

	"go.uber.org/zap"
	"practitrack.com/practitrack/attendance/model"
)

// Reconciler closes sessions a student opened and never clocked out of.
type Reconciler struct {
	store *Store
	log   *zap.Logger
}

func NewReconciler(store *Store, log *zap.Logger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

// NullifyIncompleteSessions nullifies every open session on the record for
// beforeDate and returns how many were closed. A missing record or a day with no
// open session is a no-op.
func (r *Reconciler) NullifyIncompleteSessions(ctx context.Context, studentID, practicumID int32, beforeDate time.Time) (int, error) {
	key := RecordKey{StudentID: studentID, PracticumID: practicumID, Date: beforeDate}
	nullified := 0

	err := r.store.WithRecord(ctx, key, func(tx Repository) error {
		rec, err := tx.FindRecord(ctx, key)
		if err != nil || rec == nil {
			return err
		}

		var closed []model.SessionKind
		for _, kind := range model.SessionKinds {
			if NullifySession(rec, kind) {
				closed = append(closed, kind)
			}
		}
		if len(closed) == 0 {
			return nil
		}

		if err := tx.SaveRecord(ctx, rec); err != nil {
			return err
		}
		nullified = len(closed)
		r.log.Info("nullified incomplete sessions",
			zap.String("record", rec.ID),
			zap.String("key", key.String()),
			zap.Any("sessions", closed))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return nullified, nil
}
