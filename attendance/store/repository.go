package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	attendance "practitrack.com/practitrack/attendance/core"
	"practitrack.com/practitrack/attendance/model"
	"practitrack.com/practitrack/utils"
)

// GormRepository is the SQL backed attendance.Repository. Inside Transact every
// record read takes a row lock.
type GormRepository struct {
	db   *gorm.DB
	inTx bool
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func recordQuery(db *gorm.DB, key attendance.RecordKey, lock bool) *gorm.DB {
	q := db.Where("student_id = ? AND practicum_id = ? AND date = ?",
		key.StudentID, key.PracticumID, key.Date.Format(utils.DateLayout))
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func insertIgnoringDuplicates(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.OnConflict{DoNothing: true})
}

func (r *GormRepository) FindRecord(ctx context.Context, key attendance.RecordKey) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := recordQuery(r.db.WithContext(ctx), key, r.inTx).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find attendance %s", key)
	}
	return &rec, nil
}

// CreateRecord inserts rec and reports attendance.ErrDuplicateRecord when the
// unique (student, practicum, date) index already holds a row.
func (r *GormRepository) CreateRecord(ctx context.Context, rec *model.AttendanceRecord) error {
	res := insertIgnoringDuplicates(r.db.WithContext(ctx)).Create(rec)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return attendance.ErrDuplicateRecord
	}
	if res.Error != nil {
		return errors.Wrapf(res.Error, "create attendance %s", rec.ID)
	}
	if res.RowsAffected == 0 {
		return attendance.ErrDuplicateRecord
	}
	return nil
}

func (r *GormRepository) SaveRecord(ctx context.Context, rec *model.AttendanceRecord) error {
	if err := r.db.WithContext(ctx).Save(rec).Error; err != nil {
		return errors.Wrapf(err, "save attendance %s", rec.ID)
	}
	return nil
}

func (r *GormRepository) ListRecords(ctx context.Context, q attendance.RecordQuery) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND practicum_id = ?", q.StudentID, q.PracticumID).
		Where("date BETWEEN ? AND ?", q.From.Format(utils.DateLayout), q.To.Format(utils.DateLayout)).
		Order("date").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "list attendance")
	}
	return records, nil
}

func (r *GormRepository) ActivePlacements(ctx context.Context, date time.Time) ([]model.Practicum, error) {
	d := date.Format(utils.DateLayout)
	var placements []model.Practicum
	err := r.db.WithContext(ctx).
		Preload("Agency").
		Where("status = ? AND start_date <= ? AND end_date >= ?", model.PracticumActive, d, d).
		Order("id").
		Find(&placements).Error
	if err != nil {
		return nil, errors.Wrapf(err, "active placements on %s", d)
	}
	return placements, nil
}

func (r *GormRepository) Holidays(ctx context.Context, date time.Time) ([]model.Holiday, error) {
	var holidays []model.Holiday
	err := r.db.WithContext(ctx).Where("date = ?", date.Format(utils.DateLayout)).Find(&holidays).Error
	if err != nil {
		return nil, errors.Wrapf(err, "holidays on %s", date.Format(utils.DateLayout))
	}
	return holidays, nil
}

// AgencyForPracticum implements attendance.AgencyDirectory.
func (r *GormRepository) AgencyForPracticum(ctx context.Context, practicumID int32) (*model.Agency, error) {
	var p model.Practicum
	err := r.db.WithContext(ctx).Preload("Agency").Take(&p, "id = ?", practicumID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "agency for practicum %d", practicumID)
	}
	return p.Agency, nil
}

func (r *GormRepository) Transact(ctx context.Context, fn func(tx attendance.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepository{db: tx, inTx: true})
	})
}
