package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"practitrack.com/practitrack/attendance/model"
	"practitrack.com/practitrack/utils"
)

// MemoryRepository keeps records in process. It backs the tests and local dry runs.
type MemoryRepository struct {
	mu         sync.Mutex
	txMu       sync.Mutex
	records    map[string]model.AttendanceRecord
	placements []model.Practicum
	holidays   []model.Holiday

	// FailCreate, when set, is consulted before every insert.
	FailCreate func(rec *model.AttendanceRecord) error
	// AgencyErr, when set, fails every agency lookup.
	AgencyErr error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]model.AttendanceRecord)}
}

func keyOf(rec *model.AttendanceRecord) RecordKey {
	return RecordKey{StudentID: rec.StudentID, PracticumID: rec.PracticumID, Date: rec.Date}
}

func (m *MemoryRepository) AddPlacement(p model.Practicum) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placements = append(m.placements, p)
}

func (m *MemoryRepository) AddHoliday(h model.Holiday) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays = append(m.holidays, h)
}

// Put stores rec as is, replacing any row with the same key.
func (m *MemoryRepository) Put(rec model.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[keyOf(&rec).String()] = rec
}

// Len is the number of stored records.
func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MemoryRepository) FindRecord(ctx context.Context, key RecordKey) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key.String()]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryRepository) CreateRecord(ctx context.Context, rec *model.AttendanceRecord) error {
	if m.FailCreate != nil {
		if err := m.FailCreate(rec); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := keyOf(rec).String()
	if _, exists := m.records[k]; exists {
		return ErrDuplicateRecord
	}
	now := time.Now()
	rec.CreatedAt, rec.UpdatedAt = now, now
	m.records[k] = asStored(*rec)
	return nil
}

func (m *MemoryRepository) SaveRecord(ctx context.Context, rec *model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.UpdatedAt = time.Now()
	m.records[keyOf(rec).String()] = asStored(*rec)
	return nil
}

// asStored returns rec with its punch times in UTC, the way the database drivers
// hand them back.
func asStored(rec model.AttendanceRecord) model.AttendanceRecord {
	for _, t := range []**time.Time{
		&rec.MorningTimeIn, &rec.MorningTimeOut,
		&rec.AfternoonTimeIn, &rec.AfternoonTimeOut,
		&rec.TimeIn, &rec.TimeOut,
	} {
		if *t != nil {
			*t = utils.Ptr((*t).UTC())
		}
	}
	return rec
}

func (m *MemoryRepository) ListRecords(ctx context.Context, q RecordQuery) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AttendanceRecord
	for _, rec := range m.records {
		if rec.StudentID != q.StudentID || rec.PracticumID != q.PracticumID {
			continue
		}
		if rec.Date.Before(q.From) || rec.Date.After(q.To) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryRepository) ActivePlacements(ctx context.Context, date time.Time) ([]model.Practicum, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return utils.Filter(m.placements, func(p model.Practicum) bool {
		return p.Status == model.PracticumActive && p.Covers(date)
	}), nil
}

func (m *MemoryRepository) Holidays(ctx context.Context, date time.Time) ([]model.Holiday, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := date.Format(utils.DateLayout)
	return utils.Filter(m.holidays, func(h model.Holiday) bool {
		return h.Date.Format(utils.DateLayout) == day
	}), nil
}

// AgencyForPracticum implements AgencyDirectory.
func (m *MemoryRepository) AgencyForPracticum(ctx context.Context, practicumID int32) (*model.Agency, error) {
	if m.AgencyErr != nil {
		return nil, m.AgencyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p := utils.Find(m.placements, func(p model.Practicum) bool { return p.ID == practicumID }); p != nil {
		return p.Agency, nil
	}
	return nil, nil
}

// Transact serialises transactions and restores the previous records when fn fails.
func (m *MemoryRepository) Transact(ctx context.Context, fn func(tx Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := make(map[string]model.AttendanceRecord, len(m.records))
	for k, v := range m.records {
		snapshot[k] = v
	}
	m.mu.Unlock()

	if err := fn(memoryTx{m}); err != nil {
		m.mu.Lock()
		m.records = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

type memoryTx struct {
	*MemoryRepository
}

func (t memoryTx) Transact(ctx context.Context, fn func(tx Repository) error) error {
	return fn(t)
}
