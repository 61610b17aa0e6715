// Package stats derives display aggregates from already-fetched attendance
// lists and filters them in memory. Nothing here performs I/O.
package stats

import (
	"math"
	"strings"
	"time"

	"github.com/phillip-england/hrconsole/internal/hrapi"
	"github.com/shopspring/decimal"
)

// Today formats now as a calendar date. Callers read the clock once and pass
// the same value to every comparison on a page.
func Today(now time.Time) string {
	return now.Format(hrapi.DateLayout)
}

func TodayRecords(records []hrapi.AttendanceRecord, today string) []hrapi.AttendanceRecord {
	out := make([]hrapi.AttendanceRecord, 0, len(records))
	for _, r := range records {
		if r.Date == today {
			out = append(out, r)
		}
	}
	return out
}

func CountStatus(records []hrapi.AttendanceRecord, status hrapi.Status) int {
	n := 0
	for _, r := range records {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Rate is present/total as a rounded percentage, 0 when total is 0.
func Rate(present, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

// PreciseRate is present/total as a percentage with one decimal, "0" when total is 0.
func PreciseRate(present, total int) string {
	if total <= 0 {
		return "0"
	}
	return decimal.NewFromInt(int64(present)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(total)), 1).
		StringFixed(1)
}

type Summary struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Rate    int `json:"rate"`
}

func Summarize(records []hrapi.AttendanceRecord) Summary {
	present := CountStatus(records, hrapi.StatusPresent)
	return Summary{
		Total:   len(records),
		Present: present,
		Absent:  CountStatus(records, hrapi.StatusAbsent),
		Rate:    Rate(present, len(records)),
	}
}

type Day struct {
	Date    string
	Records []hrapi.AttendanceRecord
	Summary
}

func ForDay(records []hrapi.AttendanceRecord, today string) Day {
	todays := TodayRecords(records, today)
	return Day{Date: today, Records: todays, Summary: Summarize(todays)}
}

func UniqueEmployees(records []hrapi.AttendanceRecord) int {
	seen := make(map[int64]struct{}, len(records))
	for _, r := range records {
		seen[r.Employee] = struct{}{}
	}
	return len(seen)
}

// MatchRecords keeps records whose employee name or display id contains term,
// ignoring case. A blank term keeps everything.
func MatchRecords(records []hrapi.AttendanceRecord, term string) []hrapi.AttendanceRecord {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return records
	}
	out := make([]hrapi.AttendanceRecord, 0, len(records))
	for _, r := range records {
		if containsFold(r.EmployeeName, needle) || containsFold(r.EmployeeIDDisplay, needle) {
			out = append(out, r)
		}
	}
	return out
}

// MatchEmployees keeps employees whose code, name or email contains term, ignoring case.
func MatchEmployees(employees []hrapi.Employee, term string) []hrapi.Employee {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return employees
	}
	out := make([]hrapi.Employee, 0, len(employees))
	for _, e := range employees {
		if containsFold(e.EmployeeID, needle) || containsFold(e.FullName, needle) || containsFold(e.Email, needle) {
			out = append(out, e)
		}
	}
	return out
}

// FindByEmployeeCode looks up an employee by its human-facing code, ignoring case.
func FindByEmployeeCode(employees []hrapi.Employee, code string) (hrapi.Employee, bool) {
	code = strings.TrimSpace(code)
	for _, e := range employees {
		if strings.EqualFold(e.EmployeeID, code) {
			return e, true
		}
	}
	return hrapi.Employee{}, false
}

func FindByID(employees []hrapi.Employee, id int64) (hrapi.Employee, bool) {
	for _, e := range employees {
		if e.ID == id {
			return e, true
		}
	}
	return hrapi.Employee{}, false
}

func containsFold(value, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(value), lowerNeedle)
}
