package hrapi

import (
	"context"
	"net/http"
)

type DashboardClient struct {
	c *Client
}

func (d *DashboardClient) Stats(ctx context.Context) (*DashboardStats, error) {
	raw, err := d.c.Do(ctx, http.MethodGet, "/dashboard/stats/", nil, nil)
	if err != nil {
		return nil, err
	}
	var out DashboardStats
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
