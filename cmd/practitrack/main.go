package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"practitrack.com/practitrack/config"
	"practitrack.com/practitrack/core"
)

type app struct {
	envFile string
	cfg     *config.Config
	log     *zap.Logger
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	var files []string
	if a.envFile != "" {
		files = append(files, a.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	log, err := core.NewLogger(cfg.Env, cfg.Debug)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func (a *app) database() (*core.DatabaseManager, error) {
	return core.New(core.Options{
		Driver:         a.cfg.Database.Driver,
		DSN:            a.cfg.Database.DSN,
		MaxConnections: a.cfg.Database.MaxConnections,
		LogLevel:       core.ParseLogLevel(a.cfg.Database.LogLevel),
		Logger:         a.log.Named("gorm"),
	})
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "practitrack",
		Short:             "Practicum attendance maintenance tasks",
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "load settings from this .env file")

	root.AddCommand(
		newMigrateCommand(a),
		newAbsencesCommand(a),
		newTokenCommand(a),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
