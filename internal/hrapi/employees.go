package hrapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

type EmployeeClient struct {
	c *Client
}

func employeePath(id int64) string {
	return "/employees/" + strconv.FormatInt(id, 10) + "/"
}

func (e *EmployeeClient) List(ctx context.Context, filter EmployeeFilter) ([]Employee, error) {
	raw, err := e.c.Do(ctx, http.MethodGet, "/employees/", filter.params(), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Employee](raw)
}

// Search delegates matching on id, name and email to the backend.
func (e *EmployeeClient) Search(ctx context.Context, query string) ([]Employee, error) {
	return e.List(ctx, EmployeeFilter{Search: query})
}

func (e *EmployeeClient) Get(ctx context.Context, id int64) (*Employee, error) {
	raw, err := e.c.Do(ctx, http.MethodGet, employeePath(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var out Employee
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *EmployeeClient) Create(ctx context.Context, in EmployeeInput) (*Employee, error) {
	raw, err := e.c.Do(ctx, http.MethodPost, "/employees/", nil, in)
	if err != nil {
		return nil, err
	}
	var out Employee
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *EmployeeClient) Update(ctx context.Context, id int64, in EmployeeInput) (*Employee, error) {
	raw, err := e.c.Do(ctx, http.MethodPut, employeePath(id), nil, in)
	if err != nil {
		return nil, err
	}
	var out Employee
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *EmployeeClient) Delete(ctx context.Context, id int64) error {
	_, err := e.c.Do(ctx, http.MethodDelete, employeePath(id), nil, nil)
	return err
}

// Attendance returns one employee's attendance history. The backend answers
// with either a bare list or an object carrying an "attendance" list.
func (e *EmployeeClient) Attendance(ctx context.Context, id int64, filter AttendanceFilter) ([]AttendanceRecord, error) {
	raw, err := e.c.Do(ctx, http.MethodGet, employeePath(id)+"attendance/", filter.Params(), nil)
	if err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Attendance json.RawMessage `json:"attendance"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, unexpected(err)
		}
		return decodeList[AttendanceRecord](wrapped.Attendance)
	}
	return decodeList[AttendanceRecord](raw)
}
