package maps

import (
	"context"
	"fmt"
	"strings"

	"github.com/joltcab/console/internal/model"
)

// Provider is the map service the client renders with.
type Provider string

const (
	ProviderMapbox Provider = "mapbox"
	ProviderGoogle Provider = "google"

	// ProviderNone means no map service is configured; callers render a
	// placeholder.
	ProviderNone Provider = "none"
)

// Config is the input of Select.
type Config struct {
	MapboxPrimary    bool
	MapboxToken      string
	GoogleConfigured bool
}

// Select picks the map provider:
//  1. Mapbox when it is flagged primary and has a token.
//  2. Google when the backend reports it configured.
//  3. Mapbox when any token exists.
//  4. None otherwise.
func Select(cfg Config) Provider {
	hasToken := strings.TrimSpace(cfg.MapboxToken) != ""

	switch {
	case cfg.MapboxPrimary && hasToken:
		return ProviderMapbox
	case cfg.GoogleConfigured:
		return ProviderGoogle
	case hasToken:
		return ProviderMapbox
	default:
		return ProviderNone
	}
}

// SettingsReader performs the two configuration reads Resolve needs.
type SettingsReader interface {
	MapConfig(ctx context.Context) (model.MapSettings, error)
	MapsStatus(ctx context.Context) (*model.MapsStatus, error)
}

// Resolve reads the remote map settings and applies Select.
func Resolve(ctx context.Context, settings SettingsReader) (Provider, Config, error) {
	ms, err := settings.MapConfig(ctx)
	if err != nil {
		return ProviderNone, Config{}, fmt.Errorf("reading map settings: %w", err)
	}

	status, err := settings.MapsStatus(ctx)
	if err != nil {
		return ProviderNone, Config{}, fmt.Errorf("reading maps status: %w", err)
	}

	cfg := Config{
		MapboxPrimary:    ms.MapboxPrimary,
		MapboxToken:      ms.MapboxToken,
		GoogleConfigured: status.GoogleConfigured,
	}
	return Select(cfg), cfg, nil
}
