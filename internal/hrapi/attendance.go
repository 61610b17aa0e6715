package hrapi

import (
	"context"
	"net/http"
	"strconv"
)

type AttendanceClient struct {
	c *Client
}

func attendancePath(id int64) string {
	return "/attendance/" + strconv.FormatInt(id, 10) + "/"
}

func (a *AttendanceClient) List(ctx context.Context, filter AttendanceFilter) ([]AttendanceRecord, error) {
	raw, err := a.c.Do(ctx, http.MethodGet, "/attendance/", filter.Params(), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[AttendanceRecord](raw)
}

func (a *AttendanceClient) Get(ctx context.Context, id int64) (*AttendanceRecord, error) {
	raw, err := a.c.Do(ctx, http.MethodGet, attendancePath(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var out AttendanceRecord
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AttendanceClient) Create(ctx context.Context, in AttendanceInput) (*AttendanceRecord, error) {
	raw, err := a.c.Do(ctx, http.MethodPost, "/attendance/", nil, in)
	if err != nil {
		return nil, err
	}
	var out AttendanceRecord
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AttendanceClient) Update(ctx context.Context, id int64, in AttendanceInput) (*AttendanceRecord, error) {
	raw, err := a.c.Do(ctx, http.MethodPut, attendancePath(id), nil, in)
	if err != nil {
		return nil, err
	}
	var out AttendanceRecord
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AttendanceClient) Delete(ctx context.Context, id int64) error {
	_, err := a.c.Do(ctx, http.MethodDelete, attendancePath(id), nil, nil)
	return err
}
