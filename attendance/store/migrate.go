package store

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"practitrack.com/practitrack/attendance/model"
	"practitrack.com/practitrack/utils"
)

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Agency{},
		&model.Practicum{},
		&model.Requirement{},
		&model.Holiday{},
		&model.AttendanceRecord{},
	)
	return errors.Wrap(err, "migrate")
}

// UpsertHolidays inserts holidays or refreshes the description of existing ones.
// A NULL agency never collides on the unique index, so global holidays are
// matched by hand.
func UpsertHolidays(ctx context.Context, db *gorm.DB, holidays []model.Holiday) (int, error) {
	saved := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, h := range holidays {
			if h.AgencyID != nil {
				err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "date"}, {Name: "agency_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"description", "source"}),
				}).Create(&h).Error
				if err != nil {
					return errors.Wrapf(err, "upsert holiday %s", h.Date.Format(utils.DateLayout))
				}
				saved++
				continue
			}

			var existing model.Holiday
			err := tx.Where("date = ? AND agency_id IS NULL", h.Date.Format(utils.DateLayout)).Take(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				err = tx.Create(&h).Error
			case err == nil:
				err = tx.Model(&existing).Updates(map[string]interface{}{"description": h.Description, "source": h.Source}).Error
			}
			if err != nil {
				return errors.Wrapf(err, "upsert holiday %s", h.Date.Format(utils.DateLayout))
			}
			saved++
		}
		return nil
	})
	return saved, err
}
