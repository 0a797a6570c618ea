package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/joltcab/console/internal/model"
)

// SettingsService reads and writes remote configuration entries.
type SettingsService struct {
	client *Client
}

// NewSettingsService creates the settings facade.
func NewSettingsService(c *Client) *SettingsService {
	return &SettingsService{client: c}
}

// All lists every setting, optionally restricted to a category.
func (s *SettingsService) All(ctx context.Context, category string) ([]model.Setting, error) {
	var params Params
	if category != "" {
		params = Params{"category": category}
	}
	return fetchList[model.Setting](ctx, s.client, "/settings", "settings", params)
}

// Get returns one setting by key.
func (s *SettingsService) Get(ctx context.Context, key string) (*model.Setting, error) {
	return fetchOne[model.Setting](ctx, s.client, http.MethodGet,
		"/settings/"+url.PathEscape(key), nil, "setting")
}

// Update stores value under key and returns the stored setting.
func (s *SettingsService) Update(
	ctx context.Context,
	key string,
	value interface{},
) (*model.Setting, error) {
	return fetchOne[model.Setting](ctx, s.client, http.MethodPut,
		"/settings/"+url.PathEscape(key), map[string]interface{}{"value": value}, "setting")
}

// MapsStatus reports which map services the backend has credentials for.
func (s *SettingsService) MapsStatus(ctx context.Context) (*model.MapsStatus, error) {
	return fetchOne[model.MapsStatus](ctx, s.client, http.MethodGet,
		"/settings/maps/status", nil, "status")
}

// MapConfig reads the two map settings. A setting that was never created
// (404) reads as its zero value; any other failure is returned.
func (s *SettingsService) MapConfig(ctx context.Context) (model.MapSettings, error) {
	var cfg model.MapSettings

	primary, err := s.optional(ctx, model.SettingMapboxPrimary)
	if err != nil {
		return cfg, err
	}
	token, err := s.optional(ctx, model.SettingMapboxToken)
	if err != nil {
		return cfg, err
	}

	cfg.MapboxPrimary = primary.Bool()
	cfg.MapboxToken = token.String()
	return cfg, nil
}

func (s *SettingsService) optional(ctx context.Context, key string) (model.Setting, error) {
	setting, err := s.Get(ctx, key)
	if err != nil {
		if IsNotFound(err) {
			return model.Setting{Key: key}, nil
		}
		return model.Setting{}, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return *setting, nil
}

// SetupService drives the admin setup wizard.
type SetupService struct {
	client *Client
}

// NewSetupService creates the setup facade.
func NewSetupService(c *Client) *SetupService {
	return &SetupService{client: c}
}

// Status returns the wizard progress.
func (s *SetupService) Status(ctx context.Context) (*model.SetupStatus, error) {
	return fetchOne[model.SetupStatus](ctx, s.client, http.MethodGet, "/setup/status", nil, "setup")
}

// SaveStep stores the values of one wizard step.
func (s *SetupService) SaveStep(
	ctx context.Context,
	step string,
	values map[string]interface{},
) (*model.SetupStatus, error) {
	return fetchOne[model.SetupStatus](ctx, s.client, http.MethodPost,
		"/setup/steps/"+url.PathEscape(step), values, "setup")
}

// Complete marks the wizard as finished.
func (s *SetupService) Complete(ctx context.Context) error {
	_, err := call(ctx, s.client, http.MethodPost, "/setup/complete", nil)
	return err
}

// ErrTestFailed is wrapped by the integration checks when the backend ran
// the check and reported a delivery failure.
var ErrTestFailed = errors.New("integration check failed")

// TestService runs admin integration checks against configured providers.
type TestService struct {
	client *Client
}

// NewTestService creates the integration check facade.
func NewTestService(c *Client) *TestService {
	return &TestService{client: c}
}

// Email sends a test message to address.
func (s *TestService) Email(ctx context.Context, address string) (*model.TestResult, error) {
	return s.run(ctx, "/test/email", map[string]string{"to": address})
}

// SMS sends a test text to phone.
func (s *TestService) SMS(ctx context.Context, phone string) (*model.TestResult, error) {
	return s.run(ctx, "/test/sms", map[string]string{"to": phone})
}

// PaymentGateway checks the configured gateway credentials.
func (s *TestService) PaymentGateway(ctx context.Context) (*model.TestResult, error) {
	return s.run(ctx, "/test/payment-gateway", nil)
}

func (s *TestService) run(ctx context.Context, path string, body interface{}) (*model.TestResult, error) {
	result, err := fetchOne[model.TestResult](ctx, s.client, http.MethodPost, path, body, "result")
	if err != nil {
		return nil, err
	}
	if !result.Delivered {
		return result, fmt.Errorf("%w: %s", ErrTestFailed, result.Message)
	}
	return result, nil
}
