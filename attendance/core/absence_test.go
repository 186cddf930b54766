package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"practitrack.com/practitrack/attendance/model"
	"practitrack.com/practitrack/utils"
)

func newScheduler(repo *MemoryRepository, now time.Time, dryRun bool) *AbsenceScheduler {
	return NewAbsenceScheduler(NewStore(repo), zap.NewNop(), AbsenceOptions{
		Location: pht,
		Now:      func() time.Time { return now },
		Workers:  4,
		DryRun:   dryRun,
	})
}

func seededRepository() *MemoryRepository {
	repo := NewMemoryRepository()
	for i := int32(1); i <= 5; i++ {
		repo.AddPlacement(placement(100+i, i, standardAgency()))
	}
	return repo
}

func TestCreateAbsentRecordsForDate(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates one absent record per placement", func(t *testing.T) {
		repo := seededRepository()
		s := newScheduler(repo, at("2025-03-04", "00:05"), false)

		res, err := s.CreateAbsentRecordsForDate(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, AbsenceResult{Date: monday, Created: 5, Skipped: 0, Total: 5}, res)
		assert.Equal(t, 5, repo.Len())

		rec, _ := repo.FindRecord(ctx, RecordKey{StudentID: 3, PracticumID: 103, Date: utils.MustParseDate(monday)})
		require.NotNil(t, rec)
		assert.Equal(t, model.StatusAbsent, rec.Status)
		assert.Equal(t, 0.0, rec.Hours)
		assert.Equal(t, model.ApprovalPending, rec.ApprovalStatus)
	})

	t.Run("Idempotent", func(t *testing.T) {
		repo := seededRepository()
		s := newScheduler(repo, at("2025-03-04", "00:05"), false)
		date := utils.MustParseDate(monday)

		_, err := s.CreateAbsentRecordsForDate(ctx, &date)
		require.NoError(t, err)
		res, err := s.CreateAbsentRecordsForDate(ctx, &date)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Created)
		assert.Equal(t, 5, res.Skipped)
		assert.Equal(t, 5, repo.Len())
	})

	t.Run("Saturday is skipped", func(t *testing.T) {
		repo := seededRepository()
		s := newScheduler(repo, at("2025-03-09", "00:05"), false)

		res, err := s.CreateAbsentRecordsForDate(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "2025-03-08", res.Date)
		assert.Equal(t, 0, res.Created)
		assert.Equal(t, res.Total, res.Skipped)
		assert.Equal(t, 0, repo.Len())
	})

	t.Run("Existing records of any status are skipped", func(t *testing.T) {
		repo := seededRepository()
		date := utils.MustParseDate(monday)
		for i, status := range []string{model.StatusPresent, model.StatusExcused, model.StatusLate} {
			id := int32(i + 1)
			repo.Put(*NewRecord(RecordKey{StudentID: id, PracticumID: 100 + id, Date: date}, status))
		}
		s := newScheduler(repo, at("2025-03-04", "00:05"), false)

		res, err := s.CreateAbsentRecordsForDate(ctx, &date)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Created)
		assert.Equal(t, 3, res.Skipped)

		rec, _ := repo.FindRecord(ctx, RecordKey{StudentID: 2, PracticumID: 102, Date: date})
		assert.Equal(t, model.StatusExcused, rec.Status)
	})

	t.Run("A failing placement does not stop the run", func(t *testing.T) {
		repo := seededRepository()
		repo.FailCreate = func(rec *model.AttendanceRecord) error {
			if rec.StudentID == 2 {
				return errors.New("deadlock found")
			}
			return nil
		}
		s := newScheduler(repo, at("2025-03-04", "00:05"), false)

		res, err := s.CreateAbsentRecordsForDate(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 4, res.Created)
		assert.Equal(t, 1, res.Failed)
		assert.Equal(t, 5, res.Total)
		assert.Equal(t, 4, repo.Len())
	})

	t.Run("Holidays close the day", func(t *testing.T) {
		repo := seededRepository()
		other := standardAgency()
		other.ID = 8
		repo.AddPlacement(placement(200, 20, other))
		repo.AddHoliday(model.Holiday{Date: utils.MustParseDate(monday), AgencyID: utils.Ptr(int32(7)), Description: "City charter day"})
		s := newScheduler(repo, at("2025-03-04", "00:05"), false)

		res, err := s.CreateAbsentRecordsForDate(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Created)
		assert.Equal(t, 5, res.Skipped)

		repo.AddHoliday(model.Holiday{Date: utils.MustParseDate("2025-03-05"), Description: "Regular holiday"})
		date := utils.MustParseDate("2025-03-05")
		res, err = s.CreateAbsentRecordsForDate(ctx, &date)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Created)
		assert.Equal(t, 6, res.Skipped)
	})

	t.Run("Agency without operating days never operates", func(t *testing.T) {
		repo := NewMemoryRepository()
		closed := standardAgency()
		closed.OperatingDays = nil
		repo.AddPlacement(placement(300, 30, closed))
		repo.AddPlacement(placement(301, 31, nil))
		s := newScheduler(repo, at("2025-03-04", "00:05"), false)

		res, err := s.CreateAbsentRecordsForDate(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Created)
		assert.Equal(t, 2, res.Skipped)
	})

	t.Run("Only active placements covering the date", func(t *testing.T) {
		repo := NewMemoryRepository()
		ended := placement(400, 40, standardAgency())
		ended.EndDate = utils.MustParseDate("2025-02-28")
		inactive := placement(401, 41, standardAgency())
		inactive.Status = "completed"
		repo.AddPlacement(ended)
		repo.AddPlacement(inactive)
		repo.AddPlacement(placement(402, 42, standardAgency()))
		s := newScheduler(repo, at("2025-03-04", "00:05"), false)

		res, err := s.CreateAbsentRecordsForDate(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Equal(t, 1, res.Created)
	})

	t.Run("Yesterday follows the service timezone", func(t *testing.T) {
		repo := seededRepository()
		// 2025-03-03 16:30 UTC is already Tuesday in Manila
		s := newScheduler(repo, time.Date(2025, 3, 3, 16, 30, 0, 0, time.UTC), false)

		res, err := s.CreateAbsentRecordsForDate(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, monday, res.Date)
	})

	t.Run("Dry run writes nothing", func(t *testing.T) {
		repo := seededRepository()
		s := newScheduler(repo, at("2025-03-04", "00:05"), true)

		res, err := s.CreateAbsentRecordsForDate(ctx, nil)
		require.NoError(t, err)
		assert.True(t, res.DryRun)
		assert.Equal(t, 5, res.Created)
		assert.Equal(t, 0, repo.Len())
	})
}

func TestBackfill(t *testing.T) {
	repo := seededRepository()
	s := newScheduler(repo, at("2025-03-10", "00:05"), false)

	results, err := s.Backfill(context.Background(), utils.MustParseDate(monday), utils.MustParseDate("2025-03-09"))
	require.NoError(t, err)
	require.Len(t, results, 7)

	created := 0
	for _, r := range results {
		created += r.Created
	}
	assert.Equal(t, 25, created)
	assert.Equal(t, 0, results[5].Created)
	assert.Equal(t, 25, repo.Len())
}

func TestAbsenceResultString(t *testing.T) {
	r := AbsenceResult{Date: monday, Created: 3, Skipped: 2, Total: 5}
	assert.Equal(t, "absences for 2025-03-03: created=3 skipped=2 failed=0 total=5", r.String())
}
