package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	attendance "practitrack.com/practitrack/attendance/core"
	"practitrack.com/practitrack/attendance/store"
	"practitrack.com/practitrack/utils"
)

type absenceFlags struct {
	date   string
	from   string
	to     string
	dryRun bool
}

// parse returns either a single day (nil meaning yesterday) or a from/to range.
func (f absenceFlags) parse() (day *time.Time, from, to time.Time, ranged bool, err error) {
	if f.from != "" || f.to != "" {
		if f.date != "" {
			return nil, from, to, false, errors.New("--date cannot be combined with --from/--to")
		}
		if f.from == "" || f.to == "" {
			return nil, from, to, false, errors.New("--from and --to must be given together")
		}
		if from, err = utils.ParseDate(f.from); err != nil {
			return nil, from, to, false, err
		}
		if to, err = utils.ParseDate(f.to); err != nil {
			return nil, from, to, false, err
		}
		if from.After(to) {
			return nil, from, to, false, errors.New("--from must not be after --to")
		}
		return nil, from, to, true, nil
	}
	if f.date != "" {
		d, err := utils.ParseDate(f.date)
		if err != nil {
			return nil, from, to, false, err
		}
		return &d, from, to, false, nil
	}
	return nil, from, to, false, nil
}

func newAbsencesCommand(a *app) *cobra.Command {
	var flags absenceFlags
	cmd := &cobra.Command{
		Use:   "absences",
		Short: "Create absent records for placements with no attendance",
		Long:  "Create absent records for one day (yesterday by default) or for every day of a range.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			_, _, _, _, err := flags.parse()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			day, from, to, ranged, _ := flags.parse()

			dm, err := a.database()
			if err != nil {
				return err
			}
			defer dm.Close()

			scheduler := attendance.NewAbsenceScheduler(
				attendance.NewStore(store.NewGormRepository(dm.DB)),
				a.log.Named("absences"),
				attendance.AbsenceOptions{
					Location: utils.LoadLocation(a.cfg.Timezone),
					Workers:  a.cfg.Absence.Workers,
					DryRun:   flags.dryRun,
				})

			var results []attendance.AbsenceResult
			if ranged {
				results, err = scheduler.Backfill(cmd.Context(), from, to)
			} else {
				var res attendance.AbsenceResult
				res, err = scheduler.CreateAbsentRecordsForDate(cmd.Context(), day)
				results = append(results, res)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
	cmd.Flags().StringVar(&flags.date, "date", "", "day to process (yyyy-MM-dd), defaults to yesterday")
	cmd.Flags().StringVar(&flags.from, "from", "", "first day of a range (yyyy-MM-dd)")
	cmd.Flags().StringVar(&flags.to, "to", "", "last day of a range (yyyy-MM-dd)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "count the records that would be created without writing them")
	return cmd
}
