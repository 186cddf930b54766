package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"practitrack.com/practitrack/attendance/model"
	"practitrack.com/practitrack/utils"
)

const sourceMaster = "MASTER"

type SyncStats struct {
	Files   int `json:"files"`
	Parsed  int `json:"parsed"`
	Skipped int `json:"skipped"`
	Saved   int `json:"saved"`
}

type bucketReader interface {
	ListFiles(ctx context.Context, bucket, prefix string) ([]string, error)
	ReadFile(ctx context.Context, bucket, key string, outStream io.Writer) error
}

func parseExcelDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if t, err := utils.ParseDate(dateStr); err == nil {
		return t, nil
	}
	formats := []string{"01-02-06", "1/2/06", "1/2/2006", "01/02/2006", "2006/01/02", "02-Jan-2006", "January 2, 2006", "2006-01-02T15:04:05Z"}
	for _, fmtStr := range formats {
		if t, err := time.Parse(fmtStr, dateStr); err == nil {
			return utils.DateOf(t), nil
		}
	}
	// Numeric cells come through as Excel serial day numbers.
	if serial, err := strconv.ParseFloat(dateStr, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return utils.DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown date format: %s", dateStr)
}

// ParseHolidayRows reads column A as the date, B as the description and the
// optional C as the agency id. Rows whose first cell is not a date, such as a
// header, are skipped. Later rows win when a date and agency repeat.
func ParseHolidayRows(rows [][]string, log *zap.Logger) ([]model.Holiday, int) {
	type key struct {
		date   string
		agency int32
	}
	seen := make(map[key]int)
	var out []model.Holiday
	skipped := 0

	for r, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		date, err := parseExcelDate(row[0])
		if err != nil {
			if r > 0 {
				log.Warn("could not parse date", zap.Int("row", r+1), zap.String("value", row[0]))
			}
			skipped++
			continue
		}

		h := model.Holiday{Date: date, Source: sourceMaster}
		if len(row) > 1 {
			h.Description = strings.TrimSpace(row[1])
		}
		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			id, err := strconv.ParseInt(strings.TrimSpace(row[2]), 10, 32)
			if err != nil || id <= 0 {
				log.Warn("invalid agency id", zap.Int("row", r+1), zap.String("value", row[2]))
				skipped++
				continue
			}
			h.AgencyID = utils.Ptr(int32(id))
		}

		k := key{date: date.Format(utils.DateLayout), agency: utils.Deref(h.AgencyID)}
		if i, dup := seen[k]; dup {
			out[i] = h
			continue
		}
		seen[k] = len(out)
		out = append(out, h)
	}
	return out, skipped
}

// readRows returns the rows of every sheet of a workbook, or of a csv file.
func readRows(key string, r io.Reader) ([][]string, error) {
	if strings.EqualFold(path.Ext(key), ".csv") {
		return utils.ParseCSV(r)
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file %s: %w", key, err)
	}
	defer f.Close()

	var rows [][]string
	for _, sheet := range f.GetSheetList() {
		sheetRows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheet, err)
		}
		rows = append(rows, sheetRows...)
	}
	return rows, nil
}

func holidayFile(key string) bool {
	base := path.Base(key)
	if strings.HasPrefix(base, "_") {
		return false
	}
	switch strings.ToLower(path.Ext(key)) {
	case ".xlsx", ".csv":
		return true
	}
	return false
}

// LoadHolidays parses every holiday file in the bucket. Unreadable files are
// logged and skipped.
func LoadHolidays(ctx context.Context, fs bucketReader, bucket string, log *zap.Logger) ([]model.Holiday, SyncStats, error) {
	var stats SyncStats
	keys, err := fs.ListFiles(ctx, bucket, "")
	if err != nil {
		return nil, stats, fmt.Errorf("failed to list files: %w", err)
	}

	var holidays []model.Holiday
	for _, key := range keys {
		if !holidayFile(key) {
			continue
		}
		log.Info("processing file", zap.String("key", key))

		var buf bytes.Buffer
		if err := fs.ReadFile(ctx, bucket, key, &buf); err != nil {
			log.Error("failed to read file", zap.String("key", key), zap.Error(err))
			continue
		}
		rows, err := readRows(key, &buf)
		if err != nil {
			log.Error("failed to parse file", zap.String("key", key), zap.Error(err))
			continue
		}

		parsed, skipped := ParseHolidayRows(rows, log.With(zap.String("key", key)))
		holidays = append(holidays, parsed...)
		stats.Files++
		stats.Parsed += len(parsed)
		stats.Skipped += skipped
	}
	return holidays, stats, nil
}
