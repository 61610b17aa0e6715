package clientapp

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/phillip-england/hrconsole/internal/forms"
	"github.com/phillip-england/hrconsole/internal/hrapi"
	"github.com/phillip-england/hrconsole/internal/logging"
	"github.com/phillip-england/hrconsole/internal/spreadsheet"
	"github.com/phillip-england/hrconsole/internal/stats"
)

const maxImportFailuresShown = 5

func (s *server) employeesPage(w http.ResponseWriter, r *http.Request) {
	data := s.basePage(r, "Employees", "employees")
	data.Search = strings.TrimSpace(r.URL.Query().Get("search"))

	var (
		list []hrapi.Employee
		err  error
	)
	if data.Search != "" {
		list, err = s.employees.Search(r.Context(), data.Search)
		if err != nil {
			data.Error = hrapi.Message(err, "Failed to search employees")
		}
	} else {
		list, err = s.employees.List(r.Context(), hrapi.EmployeeFilter{})
		if err != nil {
			data.Error = hrapi.Message(err, "Failed to load employees")
		}
	}
	if list == nil {
		list = []hrapi.Employee{}
	}
	data.Employees = list
	s.render(w, s.employeesTmpl, http.StatusOK, data)
}

func (s *server) newEmployeePage(w http.ResponseWriter, r *http.Request) {
	data := s.basePage(r, "Add Employee", "employees")
	data.FormAction = "/employees"
	s.render(w, s.employeeFormTmpl, http.StatusOK, data)
}

func employeeInputFromForm(r *http.Request) hrapi.EmployeeInput {
	return hrapi.EmployeeInput{
		EmployeeID: strings.TrimSpace(r.FormValue("employee_id")),
		FullName:   strings.TrimSpace(r.FormValue("full_name")),
		Email:      strings.TrimSpace(r.FormValue("email")),
		Department: strings.TrimSpace(r.FormValue("department")),
	}
}

func (s *server) createEmployee(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/employees/new", "error", "Invalid form submission")
		return
	}
	in := employeeInputFromForm(r)

	data := s.basePage(r, "Add Employee", "employees")
	data.FormAction = "/employees"
	data.Form = in

	if err := forms.Validate(in); err != nil {
		data.Error = err.Error()
		s.render(w, s.employeeFormTmpl, http.StatusUnprocessableEntity, data)
		return
	}
	if _, err := s.employees.Create(r.Context(), in); err != nil {
		data.Error = hrapi.Message(err, "Failed to add employee")
		s.render(w, s.employeeFormTmpl, statusForError(err), data)
		return
	}
	redirectWith(w, r, "/employees", "message", "Employee added successfully!")
}

func (s *server) employeeDetailPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data := s.basePage(r, "Employee Details", "employees")

	employee, err := s.employees.Get(r.Context(), id)
	if err != nil {
		data.Error = hrapi.Message(err, "Failed to load employee details")
		s.render(w, s.employeeDetailTmpl, statusForError(err), data)
		return
	}
	data.Employee = employee
	data.Title = employee.FullName

	records, err := s.employees.Attendance(r.Context(), id, hrapi.AttendanceFilter{})
	if err != nil {
		logging.LogError(s.logger, "clientapp", "employeeDetailPage", "employees.Attendance", id, err)
		records = []hrapi.AttendanceRecord{}
	}
	data.Records = records
	data.Summary = stats.Summarize(records)
	data.PreciseRate = stats.PreciseRate(data.Summary.Present, data.Summary.Total)
	s.render(w, s.employeeDetailTmpl, http.StatusOK, data)
}

func (s *server) editEmployeePage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data := s.basePage(r, "Edit Employee", "employees")
	data.FormAction = "/employees/" + strconv.FormatInt(id, 10)

	employee, err := s.employees.Get(r.Context(), id)
	if err != nil {
		data.Error = hrapi.Message(err, "Failed to load employee details")
		s.render(w, s.employeeFormTmpl, statusForError(err), data)
		return
	}
	data.Employee = employee
	data.Form = hrapi.EmployeeInput{
		EmployeeID: employee.EmployeeID,
		FullName:   employee.FullName,
		Email:      employee.Email,
		Department: employee.Department,
	}
	s.render(w, s.employeeFormTmpl, http.StatusOK, data)
}

// updateEmployee ignores any submitted employee_id and resends the stored one.
func (s *server) updateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	editPath := "/employees/" + strconv.FormatInt(id, 10) + "/edit"
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, editPath, "error", "Invalid form submission")
		return
	}

	data := s.basePage(r, "Edit Employee", "employees")
	data.FormAction = "/employees/" + strconv.FormatInt(id, 10)

	current, err := s.employees.Get(r.Context(), id)
	if err != nil {
		data.Error = hrapi.Message(err, "Failed to update employee")
		s.render(w, s.employeeFormTmpl, statusForError(err), data)
		return
	}
	in := employeeInputFromForm(r)
	in.EmployeeID = current.EmployeeID
	data.Employee = current
	data.Form = in

	if err := forms.Validate(in); err != nil {
		data.Error = err.Error()
		s.render(w, s.employeeFormTmpl, http.StatusUnprocessableEntity, data)
		return
	}
	if _, err := s.employees.Update(r.Context(), id, in); err != nil {
		data.Error = hrapi.Message(err, "Failed to update employee")
		s.render(w, s.employeeFormTmpl, statusForError(err), data)
		return
	}
	redirectWith(w, r, "/employees", "message", "Employee updated successfully!")
}

func (s *server) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := s.employees.Delete(r.Context(), id); err != nil {
		redirectWith(w, r, "/employees", "error", hrapi.Message(err, "Failed to delete employee"))
		return
	}
	redirectWith(w, r, "/employees", "message", "Employee deleted successfully")
}

func (s *server) importEmployees(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		redirectWith(w, r, "/employees", "error", "Invalid upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		redirectWith(w, r, "/employees", "error", "Employee spreadsheet is required")
		return
	}
	defer file.Close()

	result, err := spreadsheet.ImportEmployees(r.Context(), s.employees, file, header.Filename)
	if err != nil {
		logging.LogError(s.logger, "clientapp", "importEmployees", header.Filename, nil, err)
		redirectWith(w, r, "/employees", "error", "Unable to import spreadsheet: "+err.Error())
		return
	}
	if len(result.Failed) == 0 {
		redirectWith(w, r, "/employees", "message", result.Summary())
		return
	}

	parts := make([]string, 0, maxImportFailuresShown)
	for i, failure := range result.Failed {
		if i == maxImportFailuresShown {
			parts = append(parts, fmt.Sprintf("and %d more", len(result.Failed)-i))
			break
		}
		parts = append(parts, fmt.Sprintf("row %d: %s", failure.Row, failure.Message))
	}
	redirectWith(w, r, "/employees?message="+url.QueryEscape(result.Summary()), "error", strings.Join(parts, "; "))
}

func statusForError(err error) int {
	apiErr, ok := hrapi.AsError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch apiErr.Kind {
	case hrapi.KindRejected:
		if apiErr.Status >= 400 && apiErr.Status < 600 {
			return apiErr.Status
		}
		return http.StatusUnprocessableEntity
	case hrapi.KindUnreachable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
