package hrapi

// DateLayout is the calendar-date layout the backend uses for attendance dates.
const DateLayout = "2006-01-02"

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

type Employee struct {
	ID               int64  `json:"id"`
	EmployeeID       string `json:"employee_id"`
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
	Department       string `json:"department"`
	TotalPresentDays int    `json:"total_present_days"`
}

// EmployeeInput is the create/update payload. EmployeeID is immutable after create.
type EmployeeInput struct {
	EmployeeID string `json:"employee_id" validate:"required,max=50"`
	FullName   string `json:"full_name" validate:"required,max=200"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department" validate:"required,max=100"`
}

type AttendanceRecord struct {
	ID                int64  `json:"id"`
	Employee          int64  `json:"employee"`
	EmployeeName      string `json:"employee_name"`
	EmployeeIDDisplay string `json:"employee_id_display"`
	Department        string `json:"department"`
	Date              string `json:"date"`
	Status            Status `json:"status"`
}

type AttendanceInput struct {
	Employee int64  `json:"employee" validate:"required,gt=0"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Status   Status `json:"status" validate:"required,oneof=present absent"`
}

type TodayStats struct {
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
	Total   int    `json:"total"`
	Date    string `json:"date"`
}

type DepartmentCount struct {
	Department string `json:"department"`
	Count      int    `json:"count"`
}

type DashboardStats struct {
	TotalEmployees         int                `json:"total_employees"`
	TotalAttendanceRecords int                `json:"total_attendance_records"`
	TodayStats             TodayStats         `json:"today_stats"`
	Departments            []DepartmentCount  `json:"departments"`
	RecentAttendance       []AttendanceRecord `json:"recent_attendance"`
}

type EmployeeFilter struct {
	Search string
}

func (f EmployeeFilter) params() Params {
	var p Params
	return p.Add("search", f.Search)
}

// AttendanceFilter maps to the /attendance/ query parameters. Empty fields are omitted.
type AttendanceFilter struct {
	Status    Status
	Date      string
	StartDate string
	EndDate   string
	Search    string
}

func (f AttendanceFilter) Params() Params {
	var p Params
	return p.
		Add("status", string(f.Status)).
		Add("date", f.Date).
		Add("start_date", f.StartDate).
		Add("end_date", f.EndDate).
		Add("search", f.Search)
}

func (f AttendanceFilter) IsZero() bool {
	return f == AttendanceFilter{}
}
