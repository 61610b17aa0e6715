package spreadsheet

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phillip-england/hrconsole/internal/hrapi"
	"github.com/phillip-england/hrconsole/internal/stats"
	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatXLSX   Format = "xlsx"
	FormatJSONXZ Format = "json.xz"

	attendanceSheet = "Attendance"
)

var exportHeadings = []string{"Employee ID", "Employee", "Department", "Date", "Status"}

// ParseFormat accepts "xlsx" or "json.xz" (also "xz"). Empty means xlsx.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "xlsx":
		return FormatXLSX, nil
	case "json.xz", "xz":
		return FormatJSONXZ, nil
	default:
		return "", fmt.Errorf("unknown export format %q", value)
	}
}

func (f Format) ContentType() string {
	if f == FormatJSONXZ {
		return "application/x-xz"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename builds a download name such as attendance_20240115_093000.xlsx.
func (f Format) Filename(now time.Time) string {
	return fmt.Sprintf("attendance_%s.%s", now.Format("20060102_150405"), f)
}

// Snapshot is the JSON document written by the xz export.
type Snapshot struct {
	GeneratedAt string                   `json:"generated_at"`
	Filter      SnapshotFilter           `json:"filter"`
	Summary     stats.Summary            `json:"summary"`
	Records     []hrapi.AttendanceRecord `json:"records"`
}

type SnapshotFilter struct {
	Status    string `json:"status,omitempty"`
	Date      string `json:"date,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Search    string `json:"search,omitempty"`
}

func Export(w io.Writer, format Format, records []hrapi.AttendanceRecord, filter hrapi.AttendanceFilter, now time.Time) error {
	switch format {
	case FormatJSONXZ:
		return ExportJSONXZ(w, records, filter, now)
	default:
		return ExportXLSX(w, records)
	}
}

func ExportXLSX(w io.Writer, records []hrapi.AttendanceRecord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), attendanceSheet); err != nil {
		return err
	}
	for i, h := range exportHeadings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(attendanceSheet, cell, h); err != nil {
			return err
		}
	}
	for i, rec := range records {
		values := []any{rec.EmployeeIDDisplay, rec.EmployeeName, rec.Department, rec.Date, string(rec.Status)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(attendanceSheet, cell, &values); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func ExportJSONXZ(w io.Writer, records []hrapi.AttendanceRecord, filter hrapi.AttendanceFilter, now time.Time) error {
	if records == nil {
		records = []hrapi.AttendanceRecord{}
	}
	snap := Snapshot{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Filter: SnapshotFilter{
			Status:    string(filter.Status),
			Date:      filter.Date,
			StartDate: filter.StartDate,
			EndDate:   filter.EndDate,
			Search:    filter.Search,
		},
		Summary: stats.Summarize(records),
		Records: records,
	}

	zw, err := xz.NewWriter(w)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// ReadSnapshot decodes a snapshot written by ExportJSONXZ.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	zr, err := xz.NewReader(r)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.NewDecoder(zr).Decode(&snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
