package clientapp

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/phillip-england/hrconsole/internal/debounce"
	"github.com/phillip-england/hrconsole/internal/envutil"
	"github.com/phillip-england/hrconsole/internal/hrapi"
	"github.com/phillip-england/hrconsole/internal/logging"
	"github.com/phillip-england/hrconsole/internal/middleware"
	"github.com/phillip-england/hrconsole/internal/stats"
	"github.com/phillip-england/hrconsole/internal/tokenstore"
	"github.com/sirupsen/logrus"
)

const maxUploadBytes = 20 << 20

type Config struct {
	Addr         string
	API          hrapi.Config
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *logrus.Logger
	Now          func() time.Time
}

type pageData struct {
	Title      string
	Nav        string
	Error      string
	Message    string
	BaseURL    string
	DebounceMS int64

	Stats     *hrapi.DashboardStats
	TodayRate int

	Search      string
	Employees   []hrapi.Employee
	Employee    *hrapi.Employee
	Form        hrapi.EmployeeInput
	FormAction  string
	Summary     stats.Summary
	PreciseRate string

	Records         []hrapi.AttendanceRecord
	Filter          attendanceFilterView
	Day             stats.Day
	Totals          stats.Summary
	UniqueEmployees int
	Record          attendanceFormView
	EmployeeOptions []hrapi.Employee
	EmployeeSearch  string
	ReturnPath      string
}

type attendanceFilterView struct {
	Search    string
	Status    string
	Date      string
	StartDate string
	EndDate   string
}

func (f attendanceFilterView) IsZero() bool {
	return f == attendanceFilterView{}
}

func (f attendanceFilterView) ExportURL(format string) template.URL {
	v := url.Values{}
	v.Set("format", format)
	for key, value := range map[string]string{
		"search":     f.Search,
		"status":     f.Status,
		"date":       f.Date,
		"start_date": f.StartDate,
		"end_date":   f.EndDate,
	} {
		if value != "" {
			v.Set(key, value)
		}
	}
	return template.URL("/attendance/export?" + v.Encode())
}

type attendanceFormView struct {
	ID       int64
	Employee int64
	Date     string
	Status   string
}

//go:embed templates/*.html assets/app.css
var templatesFS embed.FS

type server struct {
	api        *hrapi.Client
	employees  *hrapi.EmployeeClient
	attendance *hrapi.AttendanceClient
	dashboard  *hrapi.DashboardClient
	logger     *logrus.Logger
	now        func() time.Time

	dashboardTmpl        *template.Template
	employeesTmpl        *template.Template
	employeeFormTmpl     *template.Template
	employeeDetailTmpl   *template.Template
	attendanceTmpl       *template.Template
	attendanceManageTmpl *template.Template
}

func DefaultConfigFromEnv() Config {
	api := hrapi.DefaultConfigFromEnv()
	store := tokenstore.Open(envutil.OrDefault("HR_TOKEN_PATH", "hrconsole-state.json"))
	api.Token = hrapi.StoredToken(store, tokenstore.TokenKey)
	return Config{
		Addr:         envutil.OrDefault("CLIENT_ADDR", ":3000"),
		API:          api,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2 * hrapi.DefaultTimeout,
	}
}

func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(cfg),
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr": cfg.Addr,
			"api":  cfg.API.BaseURL,
		}).Info("console listening on http://localhost" + cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func NewHandler(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	if cfg.API.Logger == nil {
		cfg.API.Logger = logger
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	api := hrapi.New(cfg.API)
	s := &server{
		api:        api,
		employees:  api.Employees(),
		attendance: api.Attendance(),
		dashboard:  api.Dashboard(),
		logger:     logger,
		now:        now,

		dashboardTmpl:        parsePage("dashboard.html"),
		employeesTmpl:        parsePage("employees.html"),
		employeeFormTmpl:     parsePage("employee_form.html"),
		employeeDetailTmpl:   parsePage("employee_detail.html"),
		attendanceTmpl:       parsePage("attendance.html"),
		attendanceManageTmpl: parsePage("attendance_manage.html"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.dashboardPage)
	mux.HandleFunc("GET /employees", s.employeesPage)
	mux.HandleFunc("GET /employees/new", s.newEmployeePage)
	mux.HandleFunc("POST /employees", s.createEmployee)
	mux.HandleFunc("POST /employees/import", s.importEmployees)
	mux.HandleFunc("GET /employees/{id}", s.employeeDetailPage)
	mux.HandleFunc("GET /employees/{id}/edit", s.editEmployeePage)
	mux.HandleFunc("POST /employees/{id}", s.updateEmployee)
	mux.HandleFunc("POST /employees/{id}/delete", s.deleteEmployee)
	mux.HandleFunc("GET /attendance", s.attendancePage)
	mux.HandleFunc("GET /attendance/manage", s.attendanceManagePage)
	mux.HandleFunc("GET /attendance/export", s.exportAttendance)
	mux.HandleFunc("POST /attendance", s.saveAttendance)
	mux.HandleFunc("POST /attendance/quick", s.quickMarkAttendance)
	mux.HandleFunc("POST /attendance/{id}/delete", s.deleteAttendance)
	mux.HandleFunc("GET /assets/app.css", s.appCSSFile)

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"script-src 'self' 'unsafe-inline'",
		"connect-src 'self'",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		mux,
		middleware.Recover(logger),
		middleware.RequestLogger(logger),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
	)
}

var templateFuncs = template.FuncMap{
	"badge": func(status hrapi.Status) string {
		if status == hrapi.StatusPresent {
			return "badge badge-success"
		}
		return "badge badge-error"
	},
	"plural": func(n int, singular, plural string) string {
		if n == 1 {
			return strconv.Itoa(n) + " " + singular
		}
		return strconv.Itoa(n) + " " + plural
	},
}

func parsePage(name string) *template.Template {
	return template.Must(template.New(name).Funcs(templateFuncs).ParseFS(templatesFS, "templates/layout.html", "templates/record_form.html", "templates/"+name))
}

func (s *server) basePage(r *http.Request, title, nav string) pageData {
	q := r.URL.Query()
	return pageData{
		Title:      title,
		Nav:        nav,
		Error:      strings.TrimSpace(q.Get("error")),
		Message:    strings.TrimSpace(q.Get("message")),
		BaseURL:    s.api.BaseURL(),
		DebounceMS: debounce.DefaultDelay.Milliseconds(),
	}
}

func (s *server) render(w http.ResponseWriter, tmpl *template.Template, status int, data pageData) {
	if err := renderHTMLTemplate(w, tmpl, status, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		logging.LogError(s.logger, "clientapp", "render", tmpl.Name(), nil, err)
	}
}

func (s *server) dashboardPage(w http.ResponseWriter, r *http.Request) {
	data := s.basePage(r, "Dashboard", "dashboard")
	dash, err := s.dashboard.Stats(r.Context())
	if err != nil {
		data.Error = hrapi.Message(err, "Failed to load dashboard statistics")
		s.render(w, s.dashboardTmpl, http.StatusOK, data)
		return
	}
	data.Stats = dash
	data.TodayRate = stats.Rate(dash.TodayStats.Present, dash.TodayStats.Total)
	s.render(w, s.dashboardTmpl, http.StatusOK, data)
}

func (s *server) appCSSFile(w http.ResponseWriter, r *http.Request) {
	data, err := templatesFS.ReadFile("assets/app.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data)
}

func renderHTMLTemplate(w http.ResponseWriter, tmpl *template.Template, status int, data pageData) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

func redirectWith(w http.ResponseWriter, r *http.Request, path, key, text string) {
	target := path
	if text != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target += sep + key + "=" + url.QueryEscape(text)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parsePositiveInt64(raw string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || value <= 0 {
		return 0
	}
	return value
}
