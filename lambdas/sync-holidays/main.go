package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"practitrack.com/practitrack/attendance/store"
	"practitrack.com/practitrack/config"
	"practitrack.com/practitrack/core"
	"practitrack.com/practitrack/infrastructure/devops"
	"practitrack.com/practitrack/infrastructure/filesystem"
)

type SyncEvent struct {
	Env    string `json:"env"`
	Bucket string `json:"bucket,omitempty"`
	DryRun bool   `json:"dryRun"`
}

func SyncHolidays(ctx context.Context, cfg *config.Config, dsn, bucket string, dryRun bool, log *zap.Logger) (SyncStats, error) {
	fs, err := filesystem.NewS3(ctx)
	if err != nil {
		return SyncStats{}, err
	}
	holidays, stats, err := LoadHolidays(ctx, fs, bucket, log)
	if err != nil {
		return stats, fmt.Errorf("failed to get holidays: %w", err)
	}
	log.Info("parsed holiday files", zap.Int("files", stats.Files), zap.Int("holidays", stats.Parsed), zap.Int("skipped", stats.Skipped))

	if dryRun || len(holidays) == 0 {
		return stats, nil
	}

	dm, err := core.New(core.Options{
		Driver:         cfg.Database.Driver,
		DSN:            dsn,
		MaxConnections: cfg.Database.MaxConnections,
		LogLevel:       core.LogLevelError,
		Logger:         log.Named("gorm"),
	})
	if err != nil {
		return stats, fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dm.Close()

	err = dm.Exec(ctx, func(db *gorm.DB) error {
		saved, err := store.UpsertHolidays(ctx, db, holidays)
		stats.Saved = saved
		return err
	})
	return stats, err
}

func HandleRequest(ctx context.Context, event SyncEvent) (SyncStats, error) {
	cfg, err := config.Load()
	if err != nil {
		return SyncStats{}, err
	}
	log, err := core.NewLogger("lambda", cfg.Debug)
	if err != nil {
		return SyncStats{}, err
	}
	defer log.Sync()

	env := strings.ToLower(event.Env)
	if env == "" {
		return SyncStats{}, fmt.Errorf("environment (env) is required")
	}
	bucket := event.Bucket
	if bucket == "" {
		bucket = cfg.HolidayBucket
	}
	log = log.With(zap.String("env", env), zap.String("bucket", bucket))

	entry, err := devops.ResolveDSN(ctx, cfg.Database.SSMParameter, env)
	if err != nil {
		return SyncStats{}, fmt.Errorf("failed to resolve database: %w", err)
	}
	cfg.Database.Driver = entry.DriverName()

	return SyncHolidays(ctx, cfg, entry.GetDSN(), bucket, event.DryRun, log)
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

	dryRun := true
	stats, err := SyncHolidays(context.Background(), cfg, cfg.Database.DSN, cfg.HolidayBucket, dryRun, log)
	if err != nil {
		log.Error("holiday sync failed", zap.Error(err))
		os.Exit(1)
	}
	resJson, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Printf("[SUCCESS] Results:\n%s\n", string(resJson))
}
