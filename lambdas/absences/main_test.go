package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	attendance "practitrack.com/practitrack/attendance/core"
	"practitrack.com/practitrack/attendance/model"
	"practitrack.com/practitrack/utils"
)

func TestEventDays(t *testing.T) {
	tests := []struct {
		name    string
		event   AbsenceEvent
		want    []string
		wantErr string
	}{
		{name: "yesterday by default", event: AbsenceEvent{}, want: []string{""}},
		{name: "single date", event: AbsenceEvent{Date: utils.Ptr("2025-03-03")}, want: []string{"2025-03-03"}},
		{
			name:  "range",
			event: AbsenceEvent{From: utils.Ptr("2025-03-01"), To: utils.Ptr("2025-03-03")},
			want:  []string{"2025-03-01", "2025-03-02", "2025-03-03"},
		},
		{name: "half range", event: AbsenceEvent{From: utils.Ptr("2025-03-01")}, wantErr: "together"},
		{name: "reversed range", event: AbsenceEvent{From: utils.Ptr("2025-03-03"), To: utils.Ptr("2025-03-01")}, wantErr: "after"},
		{name: "bad date", event: AbsenceEvent{Date: utils.Ptr("3/3/2025")}, wantErr: "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, err := tt.event.days()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			got := make([]string, 0, len(days))
			for _, d := range days {
				if d == nil {
					got = append(got, "")
					continue
				}
				got = append(got, d.Format(utils.DateLayout))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunAbsences(t *testing.T) {
	repo := attendance.NewMemoryRepository()
	repo.AddPlacement(model.Practicum{
		ID:        100,
		StudentID: 1,
		AgencyID:  7,
		Status:    model.PracticumActive,
		StartDate: utils.MustParseDate("2025-02-01"),
		EndDate:   utils.MustParseDate("2025-05-31"),
		Agency: &model.Agency{
			ID:            7,
			Name:          "Provincial Health Office",
			OperatingDays: []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
			OpeningTime:   utils.Ptr("08:00"),
			ClosingTime:   utils.Ptr("17:00"),
		},
	})
	pht := time.FixedZone("PHT", 8*60*60)
	scheduler := attendance.NewAbsenceScheduler(attendance.NewStore(repo), zap.NewNop(), attendance.AbsenceOptions{
		Location: pht,
		Now:      func() time.Time { return time.Date(2025, 3, 4, 0, 10, 0, 0, pht) },
	})

	// Friday to Monday: the weekend is skipped.
	results, err := RunAbsences(context.Background(), scheduler, AbsenceEvent{From: utils.Ptr("2025-02-28"), To: utils.Ptr("2025-03-03")})
	require.NoError(t, err)
	require.Len(t, results, 4)
	created := 0
	for _, r := range results {
		created += r.Created
	}
	assert.Equal(t, 2, created)
	assert.Equal(t, 2, repo.Len())

	results, err = RunAbsences(context.Background(), scheduler, AbsenceEvent{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2025-03-03", results[0].Date)
	assert.Equal(t, 0, results[0].Created)
	assert.Equal(t, 1, results[0].Skipped)
}

type fakeSlack struct {
	info, errs []string
	err        error
}

func (f *fakeSlack) Info(ctx context.Context, message string) error {
	f.info = append(f.info, message)
	return f.err
}

func (f *fakeSlack) Error(ctx context.Context, message string) error {
	f.errs = append(f.errs, message)
	return f.err
}

type fakeMailer struct {
	to       []string
	subjects []string
}

func (f *fakeMailer) Send(ctx context.Context, to []string, subject, text string) (string, error) {
	f.to = to
	f.subjects = append(f.subjects, subject)
	return "message-id", nil
}

func TestNotify(t *testing.T) {
	ok := []attendance.AbsenceResult{{Date: "2025-03-03", Created: 3, Total: 3}}
	failed := []attendance.AbsenceResult{{Date: "2025-03-03", Created: 2, Failed: 1, Total: 3}}

	t.Run("success goes to info", func(t *testing.T) {
		slack, mail := &fakeSlack{}, &fakeMailer{}
		Notify(context.Background(), "prod", ok, slack, mail, []string{"ops@example.com"}, zap.NewNop())
		require.Len(t, slack.info, 1)
		assert.Empty(t, slack.errs)
		assert.Contains(t, slack.info[0], "created=3")
		assert.Equal(t, []string{"[PROD] Absence backfill"}, mail.subjects)
		assert.Equal(t, []string{"ops@example.com"}, mail.to)
	})

	t.Run("failures go to the error channel", func(t *testing.T) {
		slack, mail := &fakeSlack{}, &fakeMailer{}
		Notify(context.Background(), "prod", failed, slack, mail, []string{"ops@example.com"}, zap.NewNop())
		assert.Empty(t, slack.info)
		require.Len(t, slack.errs, 1)
		assert.Equal(t, []string{"[PROD] Absence backfill finished with failures"}, mail.subjects)
	})

	t.Run("slack errors are not fatal", func(t *testing.T) {
		slack, mail := &fakeSlack{err: errors.New("channel_not_found")}, &fakeMailer{}
		Notify(context.Background(), "uat", ok, slack, mail, []string{"ops@example.com"}, zap.NewNop())
		assert.Len(t, mail.subjects, 1)
	})

	t.Run("no recipients skips email", func(t *testing.T) {
		mail := &fakeMailer{}
		Notify(context.Background(), "uat", ok, nil, mail, nil, zap.NewNop())
		assert.Empty(t, mail.subjects)
	})
}
