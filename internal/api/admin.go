package api

import (
	"context"
	"net/http"

	"github.com/joltcab/console/internal/model"
)

// StatsService reads dashboard aggregates.
type StatsService struct {
	client *Client
}

// NewStatsService creates the stats facade.
func NewStatsService(c *Client) *StatsService {
	return &StatsService{client: c}
}

// Drivers returns the driver fleet summary.
func (s *StatsService) Drivers(ctx context.Context) (*model.DriverStats, error) {
	return fetchOne[model.DriverStats](ctx, s.client, http.MethodGet, "/stats/drivers", nil, "stats")
}

// Dashboard returns today's headline numbers.
func (s *StatsService) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	return fetchOne[model.DashboardStats](ctx, s.client, http.MethodGet, "/stats/dashboard", nil, "stats")
}

// UserService is the admin user directory.
type UserService struct {
	*Resource[model.User]
}

// NewUserService creates the users facade.
func NewUserService(c *Client) *UserService {
	return &UserService{Resource: NewResource[model.User](c, "/users", "users", "user")}
}

// ByRole lists users with the given role.
func (s *UserService) ByRole(ctx context.Context, role string) ([]model.User, error) {
	return s.List(ctx, Params{"role": role})
}

// SetStatus activates or suspends a user.
func (s *UserService) SetStatus(ctx context.Context, id, status string) (*model.User, error) {
	return fetchOne[model.User](ctx, s.client, http.MethodPatch,
		s.itemPath(id)+"/status", map[string]string{"status": status}, "user")
}
