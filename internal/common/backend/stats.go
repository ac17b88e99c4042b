// internal/common/backend/stats.go
package backend

import (
	"context"
	"net/http"

	"cif-onboarding/internal/models"
)

func (c *Client) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	err := c.doJSON(ctx, request{method: http.MethodGet, route: "/stats/dashboard", path: "/stats/dashboard"}, &stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
