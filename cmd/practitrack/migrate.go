package main

import (
	"github.com/spf13/cobra"

	"practitrack.com/practitrack/attendance/store"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the attendance tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			dm, err := a.database()
			if err != nil {
				return err
			}
			defer dm.Close()

			if err := store.Migrate(dm.DB.WithContext(cmd.Context())); err != nil {
				return err
			}
			a.log.Info("migration complete")
			return nil
		},
	}
}
