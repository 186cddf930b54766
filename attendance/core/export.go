package core

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/xuri/excelize/v2"
	"practitrack.com/practitrack/attendance/model"
	"practitrack.com/practitrack/utils"
)

const dtrSheet = "DTR"

var dtrHeader = []interface{}{
	"Date", "Day",
	"Morning In", "Morning Out",
	"Afternoon In", "Afternoon Out",
	"Overtime In", "Overtime Out",
	"Hours", "Status", "Approval",
}

func clockCell(s model.Session, t *time.Time, loc *time.Location) string {
	if s.State == model.SessionNullified && t == nil {
		return "--"
	}
	if t == nil {
		return ""
	}
	return t.In(loc).Format("15:04")
}

// WriteDailyTimeRecord renders records as a one-sheet workbook, one row per day.
func WriteDailyTimeRecord(w io.Writer, title string, records []model.AttendanceRecord, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dtrSheet); err != nil {
		return err
	}
	if err := f.SetCellValue(dtrSheet, "A1", title); err != nil {
		return err
	}
	if err := f.SetSheetRow(dtrSheet, "A2", &dtrHeader); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(dtrSheet, 1, 2, bold); err != nil {
		return err
	}

	var total float64
	for i, rec := range records {
		row := []interface{}{rec.DateString(), rec.Day}
		for _, s := range rec.Sessions() {
			row = append(row, clockCell(s, s.TimeIn, loc), clockCell(s, s.TimeOut, loc))
		}
		row = append(row, rec.Hours, model.NormalizeStatus(rec.Status), rec.ApprovalStatus)
		total += rec.Hours

		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(dtrSheet, cell, &row); err != nil {
			return err
		}
	}

	totalRow := len(records) + 3
	if err := f.SetCellValue(dtrSheet, fmt.Sprintf("H%d", totalRow), "Total"); err != nil {
		return err
	}
	if err := f.SetCellValue(dtrSheet, fmt.Sprintf("I%d", totalRow), math.Round(total*100)/100); err != nil {
		return err
	}
	if err := f.SetColWidth(dtrSheet, "A", "K", 14); err != nil {
		return err
	}

	return f.Write(w)
}

// ExportFileName is the download name for a student's DTR over a range.
func ExportFileName(studentID, practicumID int32, from, to time.Time) string {
	return fmt.Sprintf("dtr-%d-%d-%s-%s.xlsx", studentID, practicumID, from.Format(utils.DateLayout), to.Format(utils.DateLayout))
}
