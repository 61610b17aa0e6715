package clientapp

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/phillip-england/hrconsole/internal/board"
	"github.com/phillip-england/hrconsole/internal/forms"
	"github.com/phillip-england/hrconsole/internal/hrapi"
	"github.com/phillip-england/hrconsole/internal/logging"
	"github.com/phillip-england/hrconsole/internal/spreadsheet"
	"github.com/phillip-england/hrconsole/internal/stats"
)

const (
	attendancePath       = "/attendance"
	attendanceManagePath = "/attendance/manage"
)

func filterFromQuery(r *http.Request) attendanceFilterView {
	q := r.URL.Query()
	status := strings.ToLower(strings.TrimSpace(q.Get("status")))
	if status == "all" || !hrapi.Status(status).Valid() {
		status = ""
	}
	return attendanceFilterView{
		Search:    strings.TrimSpace(q.Get("search")),
		Status:    status,
		Date:      strings.TrimSpace(q.Get("date")),
		StartDate: strings.TrimSpace(q.Get("start_date")),
		EndDate:   strings.TrimSpace(q.Get("end_date")),
	}
}

func (f attendanceFilterView) api() hrapi.AttendanceFilter {
	return hrapi.AttendanceFilter{
		Status:    hrapi.Status(f.Status),
		Date:      f.Date,
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		Search:    f.Search,
	}
}

func returnPath(raw string) string {
	if strings.TrimSpace(raw) == attendanceManagePath {
		return attendanceManagePath
	}
	return attendancePath
}

func (s *server) listAttendance(r *http.Request, filter hrapi.AttendanceFilter) []hrapi.AttendanceRecord {
	records, err := s.attendance.List(r.Context(), filter)
	if err != nil {
		logging.LogError(s.logger, "clientapp", "listAttendance", "attendance.List", filter, err)
		return []hrapi.AttendanceRecord{}
	}
	return records
}

func (s *server) listEmployees(r *http.Request) []hrapi.Employee {
	employees, err := s.employees.List(r.Context(), hrapi.EmployeeFilter{})
	if err != nil {
		logging.LogError(s.logger, "clientapp", "listEmployees", "employees.List", nil, err)
		return []hrapi.Employee{}
	}
	return employees
}

func (s *server) recordForm(r *http.Request, data *pageData, today string) {
	data.Record = attendanceFormView{Date: today, Status: string(hrapi.StatusPresent)}
	id := parsePositiveInt64(r.URL.Query().Get("edit"))
	if id == 0 {
		return
	}
	record, err := s.attendance.Get(r.Context(), id)
	if err != nil {
		data.Error = hrapi.Message(err, "Failed to load attendance record")
		return
	}
	data.Record = attendanceFormView{
		ID:       record.ID,
		Employee: record.Employee,
		Date:     record.Date,
		Status:   string(record.Status),
	}
}

// attendancePage filters by status and date on the server and by search term locally.
func (s *server) attendancePage(w http.ResponseWriter, r *http.Request) {
	data := s.basePage(r, "Attendance", "attendance")
	filter := filterFromQuery(r)
	filter.StartDate, filter.EndDate = "", ""
	data.Filter = filter
	data.ReturnPath = attendancePath

	serverFilter := hrapi.AttendanceFilter{Status: hrapi.Status(filter.Status), Date: filter.Date}
	records := stats.MatchRecords(s.listAttendance(r, serverFilter), filter.Search)

	today := stats.Today(s.now())
	data.Records = records
	data.Day = stats.ForDay(records, today)
	data.Totals = stats.Summarize(records)
	data.Employees = s.listEmployees(r)
	data.EmployeeOptions = data.Employees
	s.recordForm(r, &data, today)
	s.render(w, s.attendanceTmpl, http.StatusOK, data)
}

func (s *server) attendanceManagePage(w http.ResponseWriter, r *http.Request) {
	data := s.basePage(r, "Attendance Management", "manage")
	filter := filterFromQuery(r)
	data.Filter = filter
	data.ReturnPath = attendanceManagePath

	records := s.listAttendance(r, filter.api())
	today := stats.Today(s.now())
	data.Records = records
	data.Day = stats.ForDay(records, today)
	data.Totals = stats.Summarize(records)
	data.UniqueEmployees = stats.UniqueEmployees(records)

	data.Employees = s.listEmployees(r)
	data.EmployeeSearch = strings.TrimSpace(r.URL.Query().Get("employee_search"))
	data.EmployeeOptions = stats.MatchEmployees(data.Employees, data.EmployeeSearch)
	s.recordForm(r, &data, today)
	s.render(w, s.attendanceManageTmpl, http.StatusOK, data)
}

func (s *server) saveAttendance(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, attendancePath, "error", "Invalid form submission")
		return
	}
	back := returnPath(r.FormValue("return"))
	id := parsePositiveInt64(r.FormValue("id"))
	in := hrapi.AttendanceInput{
		Employee: parsePositiveInt64(r.FormValue("employee")),
		Date:     strings.TrimSpace(r.FormValue("date")),
		Status:   hrapi.Status(strings.ToLower(strings.TrimSpace(r.FormValue("status")))),
	}

	if err := forms.Validate(in); err != nil {
		redirectWith(w, r, back, "error", err.Error())
		return
	}

	if id != 0 {
		if _, err := s.attendance.Update(r.Context(), id, in); err != nil {
			redirectWith(w, r, back, "error", hrapi.Message(err, "Failed to save attendance record"))
			return
		}
		redirectWith(w, r, back, "message", "Attendance record updated successfully")
		return
	}

	created, err := s.attendance.Create(r.Context(), in)
	if err != nil {
		redirectWith(w, r, back, "error", hrapi.Message(err, "Failed to save attendance record"))
		return
	}
	name := "Employee"
	if created != nil && strings.TrimSpace(created.EmployeeName) != "" {
		name = created.EmployeeName
	}
	redirectWith(w, r, back, "message", "Attendance marked for "+name)
}

func (s *server) quickMarkAttendance(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, attendanceManagePath, "error", "Invalid form submission")
		return
	}
	status := hrapi.Status(strings.ToLower(strings.TrimSpace(r.FormValue("status"))))
	if !status.Valid() {
		status = hrapi.StatusPresent
	}
	code := r.FormValue("employee_code")

	var employees []hrapi.Employee
	if strings.TrimSpace(code) != "" {
		employees = s.listEmployees(r)
	}
	employee, in, err := board.ResolveQuickMark(employees, code, status, stats.Today(s.now()))
	if err != nil {
		redirectWith(w, r, attendanceManagePath, "error", err.Error())
		return
	}
	if _, err := s.attendance.Create(r.Context(), in); err != nil {
		redirectWith(w, r, attendanceManagePath, "error", board.QuickMarkFailure(err))
		return
	}
	redirectWith(w, r, attendanceManagePath, "message", board.QuickMarkSuccess(employee, status))
}

func (s *server) deleteAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, attendancePath, "error", "Invalid form submission")
		return
	}
	back := returnPath(r.FormValue("return"))
	if err := s.attendance.Delete(r.Context(), id); err != nil {
		redirectWith(w, r, back, "error", "Failed to delete record")
		return
	}
	if back == attendanceManagePath {
		redirectWith(w, r, back, "message", "Attendance record deleted successfully")
		return
	}
	redirectWith(w, r, back, "message", "Record deleted successfully")
}

func (s *server) exportAttendance(w http.ResponseWriter, r *http.Request) {
	format, err := spreadsheet.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	filter := filterFromQuery(r).api()
	records, err := s.attendance.List(r.Context(), filter)
	if err != nil {
		redirectWith(w, r, attendanceManagePath, "error", hrapi.Message(err, "Failed to export attendance"))
		return
	}

	now := s.now()
	var buf bytes.Buffer
	if err := spreadsheet.Export(&buf, format, records, filter, now); err != nil {
		logging.LogError(s.logger, "clientapp", "exportAttendance", string(format), filter, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(now)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}
