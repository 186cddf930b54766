package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	attendance "practitrack.com/practitrack/attendance/core"
	"practitrack.com/practitrack/attendance/store"
	"practitrack.com/practitrack/config"
	"practitrack.com/practitrack/core"
	"practitrack.com/practitrack/infrastructure/communication"
	"practitrack.com/practitrack/infrastructure/devops"
	"practitrack.com/practitrack/utils"
)

// AbsenceEvent is sent by the EventBridge schedule or invoked by hand. With no
// dates the job runs for yesterday.
type AbsenceEvent struct {
	Env    string  `json:"env"`
	Date   *string `json:"date,omitempty"`
	From   *string `json:"from,omitempty"`
	To     *string `json:"to,omitempty"`
	DryRun bool    `json:"dryRun"`
}

// days resolves the event into the dates to process. A nil entry means yesterday.
func (e AbsenceEvent) days() ([]*time.Time, error) {
	if e.From != nil || e.To != nil {
		if e.From == nil || e.To == nil {
			return nil, fmt.Errorf("from and to must be given together")
		}
		from, err := utils.ParseDate(*e.From)
		if err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
		to, err := utils.ParseDate(*e.To)
		if err != nil {
			return nil, fmt.Errorf("to: %w", err)
		}
		if from.After(to) {
			return nil, fmt.Errorf("from %s is after to %s", *e.From, *e.To)
		}
		var out []*time.Time
		for _, d := range utils.DaysBetween(from, to) {
			out = append(out, utils.Ptr(d))
		}
		return out, nil
	}
	if e.Date != nil && *e.Date != "" {
		d, err := utils.ParseDate(*e.Date)
		if err != nil {
			return nil, fmt.Errorf("date: %w", err)
		}
		return []*time.Time{&d}, nil
	}
	return []*time.Time{nil}, nil
}

func RunAbsences(ctx context.Context, scheduler *attendance.AbsenceScheduler, event AbsenceEvent) ([]attendance.AbsenceResult, error) {
	days, err := event.days()
	if err != nil {
		return nil, err
	}
	results := make([]attendance.AbsenceResult, 0, len(days))
	for _, day := range days {
		res, err := scheduler.CreateAbsentRecordsForDate(ctx, day)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

type slackNotifier interface {
	Info(ctx context.Context, message string) error
	Error(ctx context.Context, message string) error
}

type mailer interface {
	Send(ctx context.Context, to []string, subject, text string) (string, error)
}

// Notify posts the summary. Notification failures are logged and never fail the job.
func Notify(ctx context.Context, env string, results []attendance.AbsenceResult, slack slackNotifier, mail mailer, recipients []string, log *zap.Logger) {
	summary := communication.FormatAbsenceSummary(env, results)
	failed := communication.HasFailures(results)

	if slack != nil {
		post := slack.Info
		if failed {
			post = slack.Error
		}
		if err := post(ctx, summary); err != nil {
			log.Warn("failed to post absence summary to slack", zap.Error(err))
		}
	}

	if mail != nil && len(recipients) > 0 {
		subject := fmt.Sprintf("[%s] Absence backfill", strings.ToUpper(env))
		if failed {
			subject += " finished with failures"
		}
		if _, err := mail.Send(ctx, recipients, subject, summary); err != nil {
			log.Warn("failed to email absence summary", zap.Error(err))
		}
	}
}

func run(ctx context.Context, cfg *config.Config, dsn string, event AbsenceEvent, log *zap.Logger) ([]attendance.AbsenceResult, error) {
	dm, err := core.New(core.Options{
		Driver:         cfg.Database.Driver,
		DSN:            dsn,
		MaxConnections: cfg.Database.MaxConnections,
		LogLevel:       core.LogLevelError,
		Logger:         log.Named("gorm"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dm.Close()

	st := attendance.NewStore(store.NewGormRepository(dm.DB))
	scheduler := attendance.NewAbsenceScheduler(st, log, attendance.AbsenceOptions{
		Location: utils.LoadLocation(cfg.Timezone),
		Workers:  cfg.Absence.Workers,
		DryRun:   event.DryRun,
	})
	results, runErr := RunAbsences(ctx, scheduler, event)

	var slack slackNotifier
	if cfg.SlackEnabled() {
		slack = communication.NewSlack(cfg.Slack.Token, communication.SlackOption{
			InfoChannelID:  cfg.Slack.InfoChannelID,
			ErrorChannelID: cfg.Slack.ErrorChannelID,
		})
	}
	var mail mailer
	if cfg.Email.Sender != "" && len(cfg.Email.Recipients) > 0 {
		m, err := communication.NewMailer(ctx, cfg.Email.Sender)
		if err != nil {
			log.Warn("email disabled", zap.Error(err))
		} else {
			mail = m
		}
	}
	if runErr != nil && slack != nil {
		_ = slack.Error(ctx, fmt.Sprintf("*Absence backfill* (%s) failed: %v", event.Env, runErr))
	}
	if len(results) > 0 {
		Notify(ctx, event.Env, results, slack, mail, cfg.Email.Recipients, log)
	}
	return results, runErr
}

func HandleRequest(ctx context.Context, event AbsenceEvent) ([]attendance.AbsenceResult, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := core.NewLogger("lambda", cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer log.Sync()

	event.Env = strings.ToLower(event.Env)
	if event.Env == "" {
		return nil, fmt.Errorf("environment (env) is required")
	}
	log = log.With(zap.String("env", event.Env))

	entry, err := devops.ResolveDSN(ctx, cfg.Database.SSMParameter, event.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database: %w", err)
	}
	cfg.Database.Driver = entry.DriverName()
	log.Info("running absence backfill", zap.Bool("dryRun", event.DryRun))

	return run(ctx, cfg, entry.GetDSN(), event, log)
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(HandleRequest)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}
	log, err := core.NewLogger(cfg.Env, true)
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	results, err := run(context.Background(), cfg, cfg.Database.DSN, AbsenceEvent{Env: cfg.Env, DryRun: true}, log)
	if err != nil {
		log.Error("absence backfill failed", zap.Error(err))
		os.Exit(1)
	}
	resJson, _ := json.MarshalIndent(results, "", "  ")
	fmt.Printf("[SUCCESS] Results:\n%s\n", string(resJson))
}
