package clientapp

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phillip-england/hrconsole/internal/hrapi"
	"github.com/phillip-england/hrconsole/internal/logging"
)

const staffJSON = `{"success":true,"data":[
	{"id":1,"employee_id":"EMP001","full_name":"Jane Doe","email":"jane@example.com","department":"Engineering","total_present_days":3},
	{"id":2,"employee_id":"EMP002","full_name":"John Roe","email":"john@example.com","department":"Sales","total_present_days":1}
]}`

const recordsJSON = `{"success":true,"data":[
	{"id":10,"employee":1,"employee_name":"Jane Doe","employee_id_display":"EMP001","department":"Engineering","date":"2024-01-15","status":"present"},
	{"id":11,"employee":2,"employee_name":"John Roe","employee_id_display":"EMP002","department":"Sales","date":"2024-01-15","status":"absent"}
]}`

type backendCall struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

type fakeBackend struct {
	mu     sync.Mutex
	calls  []backendCall
	routes map[string]func(w http.ResponseWriter)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := backendCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &call.Body)
	}
	b.mu.Lock()
	b.calls = append(b.calls, call)
	route, ok := b.routes[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"message":"not found"}`)
		return
	}
	route(w)
}

func (b *fakeBackend) find(method, path string) (backendCall, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if c.Method == method && c.Path == path {
			return c, true
		}
	}
	return backendCall{}, false
}

func respond(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func newTestConsole(t *testing.T, routes map[string]func(w http.ResponseWriter)) (http.Handler, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{routes: routes}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return NewHandler(Config{
		API: hrapi.Config{
			BaseURL: srv.URL + "/api",
			Timeout: 2 * time.Second,
		},
		Logger: logging.Discard(),
		Now: func() time.Time {
			return time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
		},
	}), backend
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func redirectQuery(t *testing.T, rec *httptest.ResponseRecorder) (string, url.Values) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	return loc.Path, loc.Query()
}

func TestDashboardRendersStats(t *testing.T) {
	h, _ := newTestConsole(t, map[string]func(http.ResponseWriter){
		"GET /api/dashboard/stats/": respond(http.StatusOK, `{"success":true,"data":{
			"total_employees":7,
			"total_attendance_records":42,
			"today_stats":{"present":3,"absent":1,"total":4,"date":"2024-01-15"},
			"departments":[{"department":"Engineering","count":1}],
			"recent_attendance":[]
		}}`),
	})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`id="total-employees">7<`, "75% attendance rate", "1 employee"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in dashboard body", want)
		}
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("expected security headers on pages")
	}
}

func TestDashboardShowsUnreachableBanner(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	base := dead.URL + "/api"
	dead.Close()

	h := NewHandler(Config{
		API:    hrapi.Config{BaseURL: base, Timeout: time.Second},
		Logger: logging.Discard(),
	})
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Cannot connect to server. Please check if backend is running at "+base) {
		t.Fatalf("expected unreachable banner, got %s", rec.Body.String())
	}
}

func TestEmployeesPageSearchesBackend(t *testing.T) {
	h, backend := newTestConsole(t, map[string]func(http.ResponseWriter){
		"GET /api/employees/": respond(http.StatusOK, staffJSON),
	})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/employees?search=jane", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	call, ok := backend.find(http.MethodGet, "/api/employees/")
	if !ok || call.Query != "search=jane" {
		t.Fatalf("expected search query, got %+v", call)
	}
	if !strings.Contains(rec.Body.String(), "Jane Doe") {
		t.Fatalf("expected employee row in body")
	}
}

func TestCreateEmployeeValidationFailureSkipsBackend(t *testing.T) {
	h, backend := newTestConsole(t, nil)

	rec := serve(h, postForm("/employees", url.Values{
		"employee_id": {"EMP009"},
		"full_name":   {"New Hire"},
		"department":  {"Ops"},
	}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if _, called := backend.find(http.MethodPost, "/api/employees/"); called {
		t.Fatalf("backend should not be called for invalid input")
	}
	if !strings.Contains(rec.Body.String(), `value="New Hire"`) {
		t.Fatalf("expected form to keep submitted values")
	}
}

func TestCreateEmployeeRejectedKeepsBackendMessage(t *testing.T) {
	h, _ := newTestConsole(t, map[string]func(http.ResponseWriter){
		"POST /api/employees/": respond(http.StatusBadRequest, `{"success":false,"message":"Employee with this ID already exists"}`),
	})

	rec := serve(h, postForm("/employees", url.Values{
		"employee_id": {"EMP001"},
		"full_name":   {"Jane Doe"},
		"email":       {"jane@example.com"},
		"department":  {"Engineering"},
	}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Employee with this ID already exists") {
		t.Fatalf("expected backend message in body")
	}
}

func TestUpdateEmployeeSendsStoredEmployeeID(t *testing.T) {
	h, backend := newTestConsole(t, map[string]func(http.ResponseWriter){
		"GET /api/employees/1/": respond(http.StatusOK, `{"success":true,"data":{"id":1,"employee_id":"EMP001","full_name":"Jane Doe","email":"jane@example.com","department":"Engineering"}}`),
		"PUT /api/employees/1/": respond(http.StatusOK, `{"success":true,"data":{"id":1,"employee_id":"EMP001","full_name":"Jane Smith","email":"jane@example.com","department":"Engineering"}}`),
	})

	rec := serve(h, postForm("/employees/1", url.Values{
		"employee_id": {"HACKED"},
		"full_name":   {"Jane Smith"},
		"email":       {"jane@example.com"},
		"department":  {"Engineering"},
	}))
	path, q := redirectQuery(t, rec)
	if path != "/employees" || q.Get("message") != "Employee updated successfully!" {
		t.Fatalf("unexpected redirect %s %v", path, q)
	}
	call, ok := backend.find(http.MethodPut, "/api/employees/1/")
	if !ok {
		t.Fatalf("expected PUT to backend")
	}
	if call.Body["employee_id"] != "EMP001" || call.Body["full_name"] != "Jane Smith" {
		t.Fatalf("unexpected update body %+v", call.Body)
	}
}

func TestDeleteEmployeeRedirectsWithMessage(t *testing.T) {
	h, _ := newTestConsole(t, map[string]func(http.ResponseWriter){
		"DELETE /api/employees/2/": respond(http.StatusNoContent, ""),
	})

	path, q := redirectQuery(t, serve(h, postForm("/employees/2/delete", nil)))
	if path != "/employees" || q.Get("message") != "Employee deleted successfully" {
		t.Fatalf("unexpected redirect %s %v", path, q)
	}
}

func TestAttendancePageSearchesLocally(t *testing.T) {
	h, backend := newTestConsole(t, map[string]func(http.ResponseWriter){
		"GET /api/attendance/": respond(http.StatusOK, recordsJSON),
		"GET /api/employees/":  respond(http.StatusOK, staffJSON),
	})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/attendance?search=jane&status=all", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	call, ok := backend.find(http.MethodGet, "/api/attendance/")
	if !ok || call.Query != "" {
		t.Fatalf("expected unfiltered backend list, got %+v", call)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Showing 1 record") {
		t.Fatalf("expected one matching record in body")
	}
	if strings.Contains(body, "<td>John Roe</td>") {
		t.Fatalf("non-matching record should be filtered out")
	}
}

func TestAttendanceManageSendsAllFilters(t *testing.T) {
	h, backend := newTestConsole(t, map[string]func(http.ResponseWriter){
		"GET /api/attendance/": respond(http.StatusOK, recordsJSON),
		"GET /api/employees/":  respond(http.StatusOK, staffJSON),
	})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/attendance/manage?status=present&start_date=2024-01-01&end_date=2024-01-31&search=emp", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	call, _ := backend.find(http.MethodGet, "/api/attendance/")
	want := "status=present&start_date=2024-01-01&end_date=2024-01-31&search=emp"
	if call.Query != want {
		t.Fatalf("expected query %q, got %q", want, call.Query)
	}
	if !strings.Contains(rec.Body.String(), "/attendance/export?end_date=2024-01-31&amp;format=xlsx") {
		t.Fatalf("expected export link to carry the filter")
	}
}

func TestSaveAttendanceCreateUsesReturnedName(t *testing.T) {
	h, backend := newTestConsole(t, map[string]func(http.ResponseWriter){
		"POST /api/attendance/": respond(http.StatusCreated, `{"success":true,"data":{"id":12,"employee":1,"employee_name":"Jane Doe","date":"2024-01-15","status":"present"}}`),
	})

	path, q := redirectQuery(t, serve(h, postForm("/attendance", url.Values{
		"employee": {"1"},
		"date":     {"2024-01-15"},
		"status":   {"present"},
		"return":   {"/attendance/manage"},
	})))
	if path != "/attendance/manage" || q.Get("message") != "Attendance marked for Jane Doe" {
		t.Fatalf("unexpected redirect %s %v", path, q)
	}
	call, _ := backend.find(http.MethodPost, "/api/attendance/")
	if call.Body["employee"] != float64(1) || call.Body["status"] != "present" {
		t.Fatalf("unexpected create body %+v", call.Body)
	}
}

func TestSaveAttendanceInvalidStaysOnPage(t *testing.T) {
	h, backend := newTestConsole(t, nil)

	path, q := redirectQuery(t, serve(h, postForm("/attendance", url.Values{
		"date":   {"2024-01-15"},
		"status": {"present"},
		"return": {"https://elsewhere.example"},
	})))
	if path != "/attendance" || q.Get("error") == "" {
		t.Fatalf("unexpected redirect %s %v", path, q)
	}
	if _, called := backend.find(http.MethodPost, "/api/attendance/"); called {
		t.Fatalf("backend should not be called for invalid input")
	}
}

func TestQuickMarkMessages(t *testing.T) {
	h, _ := newTestConsole(t, map[string]func(http.ResponseWriter){
		"GET /api/employees/":   respond(http.StatusOK, staffJSON),
		"POST /api/attendance/": respond(http.StatusBadRequest, `{"success":false,"errors":{"non_field_errors":["The fields employee, date must make a unique set. already exists"]}}`),
	})

	cases := []struct {
		code, key, want string
	}{
		{"", "error", "Please enter Employee ID"},
		{"EMP404", "error", `Employee with ID "EMP404" not found`},
		{"emp001", "error", "Attendance already marked for this employee today"},
	}
	for _, tc := range cases {
		path, q := redirectQuery(t, serve(h, postForm("/attendance/quick", url.Values{
			"employee_code": {tc.code},
			"status":        {"present"},
		})))
		if path != "/attendance/manage" || q.Get(tc.key) != tc.want {
			t.Fatalf("code %q: unexpected redirect %s %v", tc.code, path, q)
		}
	}
}

func TestQuickMarkSuccess(t *testing.T) {
	h, backend := newTestConsole(t, map[string]func(http.ResponseWriter){
		"GET /api/employees/":   respond(http.StatusOK, staffJSON),
		"POST /api/attendance/": respond(http.StatusCreated, `{"success":true,"data":{"id":13,"employee":2,"date":"2024-01-15","status":"absent"}}`),
	})

	_, q := redirectQuery(t, serve(h, postForm("/attendance/quick", url.Values{
		"employee_code": {"EMP002"},
		"status":        {"absent"},
	})))
	if q.Get("message") != "Attendance marked for John Roe as absent" {
		t.Fatalf("unexpected message %v", q)
	}
	call, _ := backend.find(http.MethodPost, "/api/attendance/")
	if call.Body["date"] != "2024-01-15" || call.Body["employee"] != float64(2) {
		t.Fatalf("unexpected quick mark body %+v", call.Body)
	}
}

func TestDeleteAttendanceMessagesPerView(t *testing.T) {
	h, _ := newTestConsole(t, map[string]func(http.ResponseWriter){
		"DELETE /api/attendance/10/": respond(http.StatusNoContent, ""),
	})

	_, q := redirectQuery(t, serve(h, postForm("/attendance/10/delete", url.Values{"return": {"/attendance"}})))
	if q.Get("message") != "Record deleted successfully" {
		t.Fatalf("unexpected basic view message %v", q)
	}
	_, q = redirectQuery(t, serve(h, postForm("/attendance/10/delete", url.Values{"return": {"/attendance/manage"}})))
	if q.Get("message") != "Attendance record deleted successfully" {
		t.Fatalf("unexpected management view message %v", q)
	}
	_, q = redirectQuery(t, serve(h, postForm("/attendance/99/delete", nil)))
	if q.Get("error") != "Failed to delete record" {
		t.Fatalf("unexpected failure message %v", q)
	}
}

func TestExportAttendanceXLSX(t *testing.T) {
	h, backend := newTestConsole(t, map[string]func(http.ResponseWriter){
		"GET /api/attendance/": respond(http.StatusOK, recordsJSON),
	})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/attendance/export?format=xlsx&status=absent", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "attendance_20240115_093000.xlsx") {
		t.Fatalf("unexpected disposition %q", got)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected workbook bytes")
	}
	call, _ := backend.find(http.MethodGet, "/api/attendance/")
	if call.Query != "status=absent" {
		t.Fatalf("expected filter to reach backend, got %q", call.Query)
	}
}

func TestExportAttendanceRejectsUnknownFormat(t *testing.T) {
	h, _ := newTestConsole(t, nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/attendance/export?format=pdf", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStatusForError(t *testing.T) {
	if got := statusForError(&hrapi.Error{Kind: hrapi.KindRejected, Status: 409}); got != 409 {
		t.Fatalf("expected 409, got %d", got)
	}
	if got := statusForError(&hrapi.Error{Kind: hrapi.KindRejected}); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", got)
	}
	if got := statusForError(&hrapi.Error{Kind: hrapi.KindUnreachable}); got != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", got)
	}
}
