package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	attendance "practitrack.com/practitrack/attendance/core"
	"practitrack.com/practitrack/attendance/model"
	common "practitrack.com/practitrack/attendance/web/common"
	"practitrack.com/practitrack/config"
	"practitrack.com/practitrack/security"
	"practitrack.com/practitrack/utils"
)

var (
	pht    = time.FixedZone("PHT", 8*60*60)
	secret = []byte("router-test-secret")
)

type photoStore struct {
	mu   sync.Mutex
	keys []string
}

func (s *photoStore) PutFile(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return "s3://" + bucket + "/" + key, nil
}

type server struct {
	router *gin.Engine
	repo   *attendance.MemoryRepository
	now    time.Time
	photos *photoStore
}

// newServer runs the API against an in-memory repository with the clock fixed
// at 07:55 on Monday 2025-03-03. Student 2 is not eligible.
func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := attendance.NewMemoryRepository()
	repo.AddPlacement(model.Practicum{
		ID:        100,
		StudentID: 1,
		AgencyID:  7,
		Status:    model.PracticumActive,
		StartDate: utils.MustParseDate("2025-02-01"),
		EndDate:   utils.MustParseDate("2025-05-31"),
		Agency: &model.Agency{
			ID:             7,
			Name:           "City Engineering Office",
			OperatingDays:  []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
			OpeningTime:    utils.Ptr("08:00"),
			ClosingTime:    utils.Ptr("17:00"),
			LunchStartTime: utils.Ptr("12:00"),
			LunchEndTime:   utils.Ptr("13:00"),
		},
	})

	s := &server{repo: repo, now: time.Date(2025, 3, 3, 7, 55, 0, 0, pht), photos: &photoStore{}}
	now := func() time.Time { return s.now }

	st := attendance.NewStore(repo)
	gate := gateFunc(func(ctx context.Context, studentID, practicumID int32) error {
		if studentID == 2 {
			return attendance.NotEligibleError("outstanding requirements")
		}
		return nil
	})
	log := zap.NewNop()
	h := &common.Handler{
		Processor: attendance.NewProcessor(st, repo, gate, attendance.LogAuditSink{Log: log}, log, attendance.ProcessorOptions{
			Location:       pht,
			Now:            now,
			EarlyThreshold: attendance.DefaultEarlyThreshold,
		}),
		Scheduler:  attendance.NewAbsenceScheduler(st, log, attendance.AbsenceOptions{Location: pht, Now: now, Workers: 2}),
		Repository: repo,
		Location:   pht,
		Log:        log,
	}
	cfg := &config.Config{Env: "test", SigningSecret: secret, PhotoBucket: "photos"}
	s.router = NewRouter(cfg, h, s.photos, log)
	return s
}

type gateFunc func(ctx context.Context, studentID, practicumID int32) error

func (f gateFunc) CheckEligibility(ctx context.Context, studentID, practicumID int32) error {
	return f(ctx, studentID, practicumID)
}

func token(t *testing.T, studentID int) string {
	t.Helper()
	tok, err := security.CreateStudentToken(&security.StudentIdentity{ID: studentID, UserName: "student"}, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *server) do(t *testing.T, method, path string, studentID int, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if studentID > 0 {
		req.Header.Set("Authorization", "Bearer "+token(t, studentID))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const api = "/api/practitrack/v1.0"

func TestPing(t *testing.T) {
	s := newServer(t)
	w := s.do(t, http.MethodGet, "/ping", 0, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", decode(t, w)["message"])
}

func TestClockInAndOut(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, api+"/attendance/clock-in", 1, `{"practicumId":100,"deviceType":"android"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "2025-03-03", data["date"])
	assert.Equal(t, "open", data["morningState"])
	assert.Equal(t, "present", data["status"])

	s.now = time.Date(2025, 3, 3, 12, 0, 0, 0, pht)
	w = s.do(t, http.MethodPost, api+"/attendance/clock-out", 1, `{"practicumId":100}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data = decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "complete", data["morningState"])
	assert.InDelta(t, 4.0, data["hours"], 0.001)

	w = s.do(t, http.MethodGet, api+"/attendance/today?practicumId=100", 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "complete", decode(t, w)["data"].(map[string]interface{})["morningState"])
}

func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, s *server)
		method  string
		path    string
		student int
		body    string
		status  int
		code    string
	}{
		{
			name:   "missing token",
			method: http.MethodPost, path: api + "/attendance/clock-in", body: `{"practicumId":100}`,
			status: http.StatusUnauthorized,
		},
		{
			name:   "missing practicum",
			method: http.MethodPost, path: api + "/attendance/clock-in", student: 1, body: `{}`,
			status: http.StatusBadRequest, code: "validation",
		},
		{
			name:   "latitude out of range",
			method: http.MethodPost, path: api + "/attendance/clock-in", student: 1, body: `{"practicumId":100,"latitude":120}`,
			status: http.StatusBadRequest, code: "validation",
		},
		{
			name:   "not eligible",
			method: http.MethodPost, path: api + "/attendance/clock-in", student: 2, body: `{"practicumId":100}`,
			status: http.StatusForbidden, code: "not_eligible",
		},
		{
			name:   "clock-out without a record",
			method: http.MethodPost, path: api + "/attendance/clock-out", student: 1, body: `{"practicumId":100}`,
			status: http.StatusNotFound, code: "not_found",
		},
		{
			name: "second clock-in",
			prepare: func(t *testing.T, s *server) {
				s.do(t, http.MethodPost, api+"/attendance/clock-in", 1, `{"practicumId":100}`)
			},
			method: http.MethodPost, path: api + "/attendance/clock-in", student: 1, body: `{"practicumId":100}`,
			status: http.StatusConflict, code: "conflict",
		},
		{
			name:   "no record today",
			method: http.MethodGet, path: api + "/attendance/today?practicumId=100", student: 1,
			status: http.StatusNotFound, code: "not_found",
		},
		{
			name:   "range reversed",
			method: http.MethodGet, path: api + "/attendance?practicumId=100&from=2025-03-05&to=2025-03-01", student: 1,
			status: http.StatusBadRequest,
		},
		{
			name:   "range too long",
			method: http.MethodGet, path: api + "/attendance?practicumId=100&from=2023-01-01&to=2025-03-01", student: 1,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t)
			if tt.prepare != nil {
				tt.prepare(t, s)
			}
			w := s.do(t, tt.method, tt.path, tt.student, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, decode(t, w)["code"])
			}
		})
	}
}

func TestSearchAndExport(t *testing.T) {
	s := newServer(t)
	s.repo.Put(*attendance.NewRecord(attendance.RecordKey{StudentID: 1, PracticumID: 100, Date: utils.MustParseDate("2025-02-28")}, model.StatusLate))
	s.repo.Put(*attendance.NewRecord(attendance.RecordKey{StudentID: 1, PracticumID: 100, Date: utils.MustParseDate("2025-02-27")}, model.StatusAbsent))

	w := s.do(t, http.MethodGet, api+"/attendance?practicumId=100&from=2025-02-28&to=2025-03-03", 1, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	rows := body["data"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, "present", rows[0].(map[string]interface{})["status"])
	assert.EqualValues(t, 1, body["pagination"].(map[string]interface{})["total"])

	w = s.do(t, http.MethodGet, api+"/attendance/export?practicumId=100&from=2025-02-01&to=2025-03-03", 1, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "dtr-1-100-2025-02-01-2025-03-03.xlsx")
	assert.NotZero(t, w.Body.Len())
}

func TestCreateAbsences(t *testing.T) {
	t.Run("defaults to yesterday", func(t *testing.T) {
		s := newServer(t)
		s.now = time.Date(2025, 3, 4, 1, 0, 0, 0, pht)

		w := s.do(t, http.MethodPost, api+"/absences", 1, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := decode(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "2025-03-03", data["date"])
		assert.EqualValues(t, 1, data["created"])

		w = s.do(t, http.MethodPost, api+"/absences", 1, "")
		require.Equal(t, http.StatusOK, w.Code)
		data = decode(t, w)["data"].(map[string]interface{})
		assert.EqualValues(t, 0, data["created"])
		assert.EqualValues(t, 1, data["skipped"])
	})

	t.Run("explicit weekend date", func(t *testing.T) {
		s := newServer(t)
		w := s.do(t, http.MethodPost, api+"/absences", 1, `{"date":"2025-03-01"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := decode(t, w)["data"].(map[string]interface{})
		assert.EqualValues(t, 0, data["created"])
		assert.EqualValues(t, 1, data["skipped"])
		assert.Equal(t, 0, s.repo.Len())
	})

	t.Run("bad date", func(t *testing.T) {
		s := newServer(t)
		w := s.do(t, http.MethodPost, api+"/absences", 1, `{"date":"03/01/2025"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPhotoUpload(t *testing.T) {
	upload := func(t *testing.T, s *server, filename string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("photo", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("not really an image"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, api+"/attendance/photos", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token(t, 1))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	s := newServer(t)
	w := upload(t, s, "selfie.JPG")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ref := decode(t, w)["data"].(map[string]interface{})["photoUrl"].(string)
	assert.True(t, strings.HasPrefix(ref, "s3://photos/attendance/1/"), ref)
	assert.True(t, strings.HasSuffix(ref, ".jpg"), ref)
	require.Len(t, s.photos.keys, 1)

	w = upload(t, s, "notes.pdf")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, s.photos.keys, 1)
}
