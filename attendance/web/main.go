package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	attendance "practitrack.com/practitrack/attendance/core"
	"practitrack.com/practitrack/attendance/store"
	common "practitrack.com/practitrack/attendance/web/common"
	"practitrack.com/practitrack/config"
	"practitrack.com/practitrack/core"
	"practitrack.com/practitrack/infrastructure/communication"
	"practitrack.com/practitrack/infrastructure/filesystem"
	"practitrack.com/practitrack/utils"
	"practitrack.com/practitrack/web/handlers"
)

func main() {
	fx.New(
		fx.Provide(
			func() (*config.Config, error) { return config.Load() },
			newLogger,
			func(cfg *config.Config) *time.Location { return utils.LoadLocation(cfg.Timezone) },
			newDatabase,
			newRepository,
			func(repo *store.GormRepository) *attendance.Store { return attendance.NewStore(repo) },
			newAuditSink,
			newProcessor,
			newScheduler,
			newHandler,
			newPhotoStore,
			NewRouter,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Invoke(registerServer, registerAbsenceCron),
	).Run()
}

func newLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	log, err := core.NewLogger(cfg.Env, cfg.Debug)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func() { _ = log.Sync() }))
	return log, nil
}

func newDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*core.DatabaseManager, error) {
	dm, err := core.New(core.Options{
		Driver:         cfg.Database.Driver,
		DSN:            cfg.Database.DSN,
		MaxConnections: cfg.Database.MaxConnections,
		LogLevel:       core.ParseLogLevel(cfg.Database.LogLevel),
		Logger:         log.Named("gorm"),
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(dm.Close))
	return dm, nil
}

func newRepository(dm *core.DatabaseManager) *store.GormRepository {
	return store.NewGormRepository(dm.DB)
}

func newAuditSink(cfg *config.Config, log *zap.Logger) attendance.AuditSink {
	sinks := attendance.MultiAuditSink{attendance.LogAuditSink{Log: log}}
	if cfg.SlackEnabled() {
		slack := communication.NewSlack(cfg.Slack.Token, communication.SlackOption{
			InfoChannelID:  cfg.Slack.InfoChannelID,
			ErrorChannelID: cfg.Slack.ErrorChannelID,
		})
		sinks = append(sinks, attendance.AsyncAuditSink{Next: communication.SlackAuditSink{Slack: slack}, Log: log})
	}
	return sinks
}

func newProcessor(cfg *config.Config, st *attendance.Store, repo *store.GormRepository, dm *core.DatabaseManager, audit attendance.AuditSink, loc *time.Location, log *zap.Logger) *attendance.Processor {
	return attendance.NewProcessor(st, repo, store.NewRequirementGate(dm.DB), audit, log, attendance.ProcessorOptions{
		Location:       loc,
		EarlyThreshold: cfg.EarlyThreshold,
	})
}

func newScheduler(cfg *config.Config, st *attendance.Store, loc *time.Location, log *zap.Logger) *attendance.AbsenceScheduler {
	return attendance.NewAbsenceScheduler(st, log.Named("absences"), attendance.AbsenceOptions{
		Location: loc,
		Workers:  cfg.Absence.Workers,
	})
}

func newHandler(p *attendance.Processor, s *attendance.AbsenceScheduler, repo *store.GormRepository, loc *time.Location, log *zap.Logger) *common.Handler {
	return &common.Handler{Processor: p, Scheduler: s, Repository: repo, Location: loc, Log: log}
}

func newPhotoStore() (handlers.ObjectStore, error) {
	fs, err := filesystem.NewS3(context.Background())
	if err != nil {
		return nil, err
	}
	return fs, nil
}

func registerServer(lc fx.Lifecycle, cfg *config.Config, router *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("listening", zap.String("address", srv.Addr), zap.String("env", cfg.Env))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: srv.Shutdown,
	})
}

func registerAbsenceCron(lc fx.Lifecycle, cfg *config.Config, scheduler *attendance.AbsenceScheduler, loc *time.Location, log *zap.Logger) error {
	clog := cronLogger{log.Named("cron").Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	if _, err := c.AddFunc(cfg.Absence.Cron, func() {
		res, err := scheduler.CreateAbsentRecordsForDate(context.Background(), nil)
		if err != nil {
			log.Error("scheduled absence backfill failed", zap.Error(err))
			return
		}
		log.Info(res.String())
	}); err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			select {
			case <-c.Stop().Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
