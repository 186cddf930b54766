package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"practitrack.com/practitrack/attendance/model"
	"practitrack.com/practitrack/utils"
)

type AbsenceResult struct {
	Date    string `json:"date"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Total   int    `json:"total"`
	// Failed placements are neither created nor skipped.
	Failed int  `json:"failed"`
	DryRun bool `json:"dryRun,omitempty"`
}

func (r AbsenceResult) String() string {
	return fmt.Sprintf("absences for %s: created=%d skipped=%d failed=%d total=%d", r.Date, r.Created, r.Skipped, r.Failed, r.Total)
}

type AbsenceOptions struct {
	Location *time.Location
	Now      func() time.Time
	Workers  int
	// DryRun counts the rows that would be created without writing them.
	DryRun bool
}

// AbsenceScheduler backfills absent records for placements that saw no
// attendance on an operating day.
type AbsenceScheduler struct {
	store   *Store
	loc     *time.Location
	now     func() time.Time
	workers int
	dryRun  bool
	log     *zap.Logger
}

func NewAbsenceScheduler(store *Store, log *zap.Logger, opts AbsenceOptions) *AbsenceScheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &AbsenceScheduler{
		store:   store,
		loc:     opts.Location,
		now:     opts.Now,
		workers: opts.Workers,
		dryRun:  opts.DryRun,
		log:     log,
	}
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeSkipped
	outcomeFailed
)

// CreateAbsentRecordsForDate inserts an absent record for every active
// placement covering date that has no record yet. A nil date means yesterday.
// Calling it again for the same date creates nothing.
func (s *AbsenceScheduler) CreateAbsentRecordsForDate(ctx context.Context, date *time.Time) (AbsenceResult, error) {
	target := utils.Yesterday(s.now(), s.loc)
	if date != nil {
		target = utils.DateOf(*date)
	}
	result := AbsenceResult{Date: target.Format(utils.DateLayout), DryRun: s.dryRun}

	repo := s.store.Repository()
	placements, err := repo.ActivePlacements(ctx, target)
	if err != nil {
		return result, fmt.Errorf("failed to load active placements: %w", err)
	}
	holidays, err := repo.Holidays(ctx, target)
	if err != nil {
		return result, fmt.Errorf("failed to load holidays: %w", err)
	}
	result.Total = len(placements)

	schedules := s.schedules(placements, holidays, target)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.workers)
	for _, p := range placements {
		g.Go(func() error {
			o := s.processPlacement(ctx, p, target, schedules[p.AgencyID])
			mu.Lock()
			defer mu.Unlock()
			switch o {
			case outcomeCreated:
				result.Created++
			case outcomeSkipped:
				result.Skipped++
			default:
				result.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("absence backfill finished",
		zap.String("date", result.Date),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Int("total", result.Total),
		zap.Bool("dryRun", s.dryRun))
	return result, nil
}

// schedules parses each agency once for this run.
func (s *AbsenceScheduler) schedules(placements []model.Practicum, holidays []model.Holiday, date time.Time) map[int32]Schedule {
	out := make(map[int32]Schedule)
	for _, p := range placements {
		if _, done := out[p.AgencyID]; done {
			continue
		}
		schedule, err := ParseSchedule(p.Agency)
		if err != nil {
			s.log.Warn("agency hours are malformed", zap.Int32("agencyId", p.AgencyID), zap.Error(err))
		}
		for _, h := range holidays {
			if h.AppliesTo(p.AgencyID) {
				schedule = schedule.WithClosures(date)
				break
			}
		}
		out[p.AgencyID] = schedule
	}
	return out
}

func (s *AbsenceScheduler) processPlacement(ctx context.Context, p model.Practicum, date time.Time, schedule Schedule) outcome {
	log := s.log.With(zap.Int32("practicumId", p.ID), zap.Int32("studentId", p.StudentID))

	if !schedule.IsOperatingDay(date) {
		log.Debug("not an operating day", zap.String("day", date.Weekday().String()))
		return outcomeSkipped
	}

	key := RecordKey{StudentID: p.StudentID, PracticumID: p.ID, Date: date}
	o := outcomeCreated
	err := s.store.WithRecord(ctx, key, func(tx Repository) error {
		existing, err := tx.FindRecord(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			o = outcomeSkipped
			return nil
		}
		if s.dryRun {
			return nil
		}
		if err := tx.CreateRecord(ctx, NewRecord(key, model.StatusAbsent)); err != nil {
			if errors.Is(err, ErrDuplicateRecord) {
				o = outcomeSkipped
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		log.Error("failed to create absent record", zap.String("date", key.Date.Format(utils.DateLayout)), zap.Error(err))
		return outcomeFailed
	}
	return o
}

// Backfill runs CreateAbsentRecordsForDate for every day from from to to inclusive.
func (s *AbsenceScheduler) Backfill(ctx context.Context, from, to time.Time) ([]AbsenceResult, error) {
	var results []AbsenceResult
	for _, day := range utils.DaysBetween(from, to) {
		res, err := s.CreateAbsentRecordsForDate(ctx, &day)
		if err != nil {
			return results, fmt.Errorf("backfill %s: %w", day.Format(utils.DateLayout), err)
		}
		results = append(results, res)
	}
	return results, nil
}
