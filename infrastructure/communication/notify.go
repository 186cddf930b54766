package communication

import (
	"context"
	"fmt"
	"strings"

	attendance "practitrack.com/practitrack/attendance/core"
)

// SlackAuditSink posts clock events to the info channel.
type SlackAuditSink struct {
	Slack *Slack
}

func (s SlackAuditSink) Record(ctx context.Context, e attendance.AuditEntry) error {
	return s.Slack.Info(ctx, FormatAuditEntry(e))
}

func FormatAuditEntry(e attendance.AuditEntry) string {
	return fmt.Sprintf(":clock8: student %d %s (%s, %s) at %s, practicum %d",
		e.StudentID, e.Action, e.Session, e.Remark, e.At.Format("2006-01-02 15:04"), e.PracticumID)
}

// FormatAbsenceSummary renders one line per processed day.
func FormatAbsenceSummary(env string, results []attendance.AbsenceResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Absence backfill* (%s)\n", env)
	for _, r := range results {
		b.WriteString("• ")
		b.WriteString(r.String())
		if r.DryRun {
			b.WriteString(" (dry run)")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// HasFailures reports whether any day had placements that could not be processed.
func HasFailures(results []attendance.AbsenceResult) bool {
	for _, r := range results {
		if r.Failed > 0 {
			return true
		}
	}
	return false
}
