package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"practitrack.com/practitrack/attendance/model"
	"practitrack.com/practitrack/utils"
)

var pht = time.FixedZone("PHT", 8*60*60)

// 2025-03-03 is a Monday.
const monday = "2025-03-03"

func at(date, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, pht)
	if err != nil {
		panic(err)
	}
	return t
}

func standardAgency() *model.Agency {
	return &model.Agency{
		ID:             7,
		Name:           "City Engineering Office",
		Address:        utils.Ptr("City Hall, 2F"),
		BranchType:     utils.Ptr("government"),
		OperatingDays:  []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		OpeningTime:    utils.Ptr("08:00"),
		ClosingTime:    utils.Ptr("17:00"),
		LunchStartTime: utils.Ptr("12:00"),
		LunchEndTime:   utils.Ptr("13:00"),
	}
}

func standardSchedule(t *testing.T) Schedule {
	t.Helper()
	s, err := ParseSchedule(standardAgency())
	if err != nil {
		t.Fatalf("parse schedule: %v", err)
	}
	return s
}

func placement(id, studentID int32, agency *model.Agency) model.Practicum {
	p := model.Practicum{
		ID:        id,
		StudentID: studentID,
		Status:    model.PracticumActive,
		StartDate: utils.MustParseDate("2025-02-01"),
		EndDate:   utils.MustParseDate("2025-05-31"),
		Agency:    agency,
	}
	if agency != nil {
		p.AgencyID = agency.ID
	}
	return p
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type recordingSink struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (s *recordingSink) Record(ctx context.Context, e AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return s.err
}

func (s *recordingSink) Entries() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditEntry(nil), s.entries...)
}

type gateFunc func(ctx context.Context, studentID, practicumID int32) error

func (f gateFunc) CheckEligibility(ctx context.Context, studentID, practicumID int32) error {
	return f(ctx, studentID, practicumID)
}

type fixture struct {
	repo      *MemoryRepository
	store     *Store
	clock     *fakeClock
	sink      *recordingSink
	processor *Processor
}

func newFixture(gate EligibilityGate) *fixture {
	repo := NewMemoryRepository()
	repo.AddPlacement(placement(100, 1, standardAgency()))
	store := NewStore(repo)
	clock := &fakeClock{t: at(monday, "07:55")}
	sink := &recordingSink{}
	p := NewProcessor(store, repo, gate, sink, zap.NewNop(), ProcessorOptions{
		Location:       pht,
		Now:            clock.Now,
		EarlyThreshold: DefaultEarlyThreshold,
	})
	return &fixture{repo: repo, store: store, clock: clock, sink: sink, processor: p}
}

func (f *fixture) request() ClockRequest {
	return ClockRequest{StudentID: 1, PracticumID: 100, DeviceType: utils.Ptr("android")}
}

func (f *fixture) clockIn(t *testing.T, clock string) (*model.AttendanceRecord, error) {
	t.Helper()
	f.clock.Set(at(f.clock.Now().Format("2006-01-02"), clock))
	return f.processor.ClockIn(context.Background(), f.request())
}

func (f *fixture) clockOut(t *testing.T, clock string) (*model.AttendanceRecord, error) {
	t.Helper()
	f.clock.Set(at(f.clock.Now().Format("2006-01-02"), clock))
	return f.processor.ClockOut(context.Background(), f.request())
}

func (f *fixture) record(t *testing.T, date string) *model.AttendanceRecord {
	t.Helper()
	rec, err := f.repo.FindRecord(context.Background(), RecordKey{StudentID: 1, PracticumID: 100, Date: utils.MustParseDate(date)})
	if err != nil {
		t.Fatalf("find record: %v", err)
	}
	return rec
}
