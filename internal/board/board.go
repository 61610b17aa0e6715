// Package board holds the state of the attendance management view: the
// fetched list, the active filters, transient banners and derived stats.
// Filter edits re-fetch after a quiet period and late responses from
// superseded requests are dropped.
package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/phillip-england/hrconsole/internal/debounce"
	"github.com/phillip-england/hrconsole/internal/forms"
	"github.com/phillip-england/hrconsole/internal/hrapi"
	"github.com/phillip-england/hrconsole/internal/logging"
	"github.com/phillip-england/hrconsole/internal/stats"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSuccessTTL    = 3 * time.Second
	DefaultErrorTTL      = 5 * time.Second
	DefaultShortErrorTTL = 3 * time.Second
)

type AttendanceService interface {
	List(ctx context.Context, filter hrapi.AttendanceFilter) ([]hrapi.AttendanceRecord, error)
	Create(ctx context.Context, in hrapi.AttendanceInput) (*hrapi.AttendanceRecord, error)
	Update(ctx context.Context, id int64, in hrapi.AttendanceInput) (*hrapi.AttendanceRecord, error)
	Delete(ctx context.Context, id int64) error
}

type EmployeeLister interface {
	List(ctx context.Context, filter hrapi.EmployeeFilter) ([]hrapi.Employee, error)
}

type Options struct {
	Delay         time.Duration
	SuccessTTL    time.Duration
	ErrorTTL      time.Duration
	ShortErrorTTL time.Duration
	Now           func() time.Time
	// OnChange receives a snapshot after every state change. It runs outside the board lock.
	OnChange func(Snapshot)
	Logger   *logrus.Logger
}

// Filters are the server-side query parameters of the management view. An
// empty Status means all statuses.
type Filters struct {
	Search    string
	Status    hrapi.Status
	Date      string
	StartDate string
	EndDate   string
}

func (f Filters) query() hrapi.AttendanceFilter {
	return hrapi.AttendanceFilter{
		Status:    f.Status,
		Date:      f.Date,
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		Search:    f.Search,
	}
}

type Snapshot struct {
	Filters         Filters
	Records         []hrapi.AttendanceRecord
	Employees       []hrapi.Employee
	Today           stats.Day
	Totals          stats.Summary
	UniqueEmployees int
	Loading         bool
	Success         string
	Error           string
}

type Board struct {
	attendance AttendanceService
	employees  EmployeeLister
	opts       Options
	logger     *logrus.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	debouncer *debounce.Debouncer
	seq       debounce.Sequencer

	mu           sync.Mutex
	filters      Filters
	records      []hrapi.AttendanceRecord
	employeeList []hrapi.Employee
	loading      int
	success      string
	errMsg       string
	successGen   uint64
	errGen       uint64
}

func New(attendance AttendanceService, employees EmployeeLister, opts Options) *Board {
	if opts.SuccessTTL <= 0 {
		opts.SuccessTTL = DefaultSuccessTTL
	}
	if opts.ErrorTTL <= 0 {
		opts.ErrorTTL = DefaultErrorTTL
	}
	if opts.ShortErrorTTL <= 0 {
		opts.ShortErrorTTL = DefaultShortErrorTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Board{
		attendance: attendance,
		employees:  employees,
		opts:       opts,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		debouncer:  debounce.New(opts.Delay),
	}
}

func (b *Board) Close() {
	b.debouncer.Stop()
	b.cancel()
}

// Load fetches the employee list, degrading to empty on failure, then the attendance list.
func (b *Board) Load(ctx context.Context) {
	b.begin()
	b.refreshEmployees(ctx)
	b.refresh(ctx)
	b.end()
}

func (b *Board) refreshEmployees(ctx context.Context) {
	list, err := b.employees.List(ctx, hrapi.EmployeeFilter{})
	if err != nil {
		logging.LogError(b.logger, "board", "refreshEmployees", "employees.List", nil, err)
		list = []hrapi.Employee{}
	}
	b.mu.Lock()
	b.employeeList = list
	b.mu.Unlock()
}

// Refresh re-fetches attendance for the current filters right away. A failed
// fetch empties the list and is only logged.
func (b *Board) Refresh(ctx context.Context) {
	b.begin()
	b.refresh(ctx)
	b.end()
}

func (b *Board) refresh(ctx context.Context) {
	seq := b.seq.Next()
	b.mu.Lock()
	filters := b.filters
	b.mu.Unlock()

	records, err := b.attendance.List(ctx, filters.query())
	if err != nil {
		if !b.seq.IsLatest(seq) {
			return
		}
		logging.LogError(b.logger, "board", "refresh", "attendance.List", filters, err)
		records = []hrapi.AttendanceRecord{}
	}
	if b.store(seq, records) {
		b.notify()
	}
}

// store keeps records only if seq is still the newest issued fetch.
func (b *Board) store(seq uint64, records []hrapi.AttendanceRecord) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.seq.IsLatest(seq) {
		return false
	}
	b.records = records
	return true
}

func (b *Board) SetSearch(term string) {
	b.updateFilters(func(f *Filters) { f.Search = strings.TrimSpace(term) })
}

// SetStatus accepts "present", "absent", or "" / "all" for no status filter.
func (b *Board) SetStatus(status string) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "all" {
		status = ""
	}
	b.updateFilters(func(f *Filters) { f.Status = hrapi.Status(status) })
}

func (b *Board) SetDate(date string) {
	b.updateFilters(func(f *Filters) { f.Date = strings.TrimSpace(date) })
}

func (b *Board) SetRange(start, end string) {
	b.updateFilters(func(f *Filters) {
		f.StartDate = strings.TrimSpace(start)
		f.EndDate = strings.TrimSpace(end)
	})
}

func (b *Board) ClearFilters() {
	b.updateFilters(func(f *Filters) { *f = Filters{} })
}

func (b *Board) updateFilters(apply func(*Filters)) {
	b.mu.Lock()
	apply(&b.filters)
	b.mu.Unlock()
	b.notify()
	b.debouncer.Trigger(func() {
		b.Refresh(b.ctx)
	})
}

func (b *Board) Submit(ctx context.Context, id int64, in hrapi.AttendanceInput) error {
	b.begin()
	defer b.end()

	if err := forms.Validate(in); err != nil {
		b.setError(err.Error(), b.opts.ErrorTTL)
		return err
	}

	var err error
	if id != 0 {
		_, err = b.attendance.Update(ctx, id, in)
	} else {
		_, err = b.attendance.Create(ctx, in)
	}
	if err != nil {
		b.setError(hrapi.Message(err, "Failed to save attendance record"), b.opts.ErrorTTL)
		return err
	}

	if id != 0 {
		b.setSuccess("Attendance record updated successfully")
	} else {
		b.setSuccess("Attendance marked for " + b.employeeName(in.Employee))
	}
	b.refresh(ctx)
	return nil
}

func (b *Board) QuickMark(ctx context.Context, code string, status hrapi.Status) error {
	b.mu.Lock()
	employees := b.employeeList
	b.mu.Unlock()

	employee, in, err := ResolveQuickMark(employees, code, status, stats.Today(b.opts.Now()))
	if err != nil {
		b.setError(err.Error(), b.opts.ShortErrorTTL)
		return err
	}

	b.begin()
	defer b.end()

	if _, err := b.attendance.Create(ctx, in); err != nil {
		b.setError(QuickMarkFailure(err), b.opts.ShortErrorTTL)
		return err
	}

	b.setSuccess(QuickMarkSuccess(employee, status))
	b.refresh(ctx)
	return nil
}

// ResolveQuickMark looks up code (case-insensitive) and builds the record for today.
func ResolveQuickMark(employees []hrapi.Employee, code string, status hrapi.Status, today string) (hrapi.Employee, hrapi.AttendanceInput, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return hrapi.Employee{}, hrapi.AttendanceInput{}, errors.New("Please enter Employee ID")
	}
	employee, ok := stats.FindByEmployeeCode(employees, code)
	if !ok {
		return hrapi.Employee{}, hrapi.AttendanceInput{}, fmt.Errorf("Employee with ID %q not found", code)
	}
	return employee, hrapi.AttendanceInput{Employee: employee.ID, Date: today, Status: status}, nil
}

func QuickMarkFailure(err error) string {
	if hrapi.IsAlreadyExists(err) {
		return "Attendance already marked for this employee today"
	}
	return "Failed to mark attendance"
}

func QuickMarkSuccess(employee hrapi.Employee, status hrapi.Status) string {
	return fmt.Sprintf("Attendance marked for %s as %s", employee.FullName, status)
}

func (b *Board) Delete(ctx context.Context, id int64) error {
	b.begin()
	defer b.end()

	if err := b.attendance.Delete(ctx, id); err != nil {
		b.setError("Failed to delete record", b.opts.ShortErrorTTL)
		return err
	}
	b.setSuccess("Attendance record deleted successfully")
	b.refresh(ctx)
	return nil
}

func (b *Board) MatchEmployees(term string) []hrapi.Employee {
	b.mu.Lock()
	defer b.mu.Unlock()
	return stats.MatchEmployees(b.employeeList, term)
}

func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Board) snapshotLocked() Snapshot {
	today := stats.Today(b.opts.Now())
	records := append([]hrapi.AttendanceRecord(nil), b.records...)
	return Snapshot{
		Filters:         b.filters,
		Records:         records,
		Employees:       append([]hrapi.Employee(nil), b.employeeList...),
		Today:           stats.ForDay(records, today),
		Totals:          stats.Summarize(records),
		UniqueEmployees: stats.UniqueEmployees(records),
		Loading:         b.loading > 0,
		Success:         b.success,
		Error:           b.errMsg,
	}
}

func (b *Board) employeeName(id int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := stats.FindByID(b.employeeList, id); ok && e.FullName != "" {
		return e.FullName
	}
	return "Employee"
}

func (b *Board) begin() {
	b.mu.Lock()
	b.loading++
	b.mu.Unlock()
	b.notify()
}

func (b *Board) end() {
	b.mu.Lock()
	if b.loading > 0 {
		b.loading--
	}
	b.mu.Unlock()
	b.notify()
}

func (b *Board) setSuccess(text string) {
	b.mu.Lock()
	b.successGen++
	gen := b.successGen
	b.success = text
	b.mu.Unlock()
	b.notify()

	time.AfterFunc(b.opts.SuccessTTL, func() {
		b.mu.Lock()
		cleared := b.successGen == gen
		if cleared {
			b.success = ""
		}
		b.mu.Unlock()
		if cleared {
			b.notify()
		}
	})
}

func (b *Board) setError(text string, ttl time.Duration) {
	b.mu.Lock()
	b.errGen++
	gen := b.errGen
	b.errMsg = text
	b.mu.Unlock()
	b.notify()

	time.AfterFunc(ttl, func() {
		b.mu.Lock()
		cleared := b.errGen == gen
		if cleared {
			b.errMsg = ""
		}
		b.mu.Unlock()
		if cleared {
			b.notify()
		}
	})
}

func (b *Board) DismissError() {
	b.mu.Lock()
	b.errGen++
	b.errMsg = ""
	b.mu.Unlock()
	b.notify()
}

func (b *Board) notify() {
	if b.opts.OnChange == nil {
		return
	}
	b.opts.OnChange(b.Snapshot())
}
