package maps

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joltcab/console/internal/model"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want Provider
	}{
		{
			name: "mapbox primary with token",
			cfg:  Config{MapboxPrimary: true, MapboxToken: "x", GoogleConfigured: true},
			want: ProviderMapbox,
		},
		{
			name: "google when no token",
			cfg:  Config{GoogleConfigured: true},
			want: ProviderGoogle,
		},
		{
			name: "mapbox token without primary flag",
			cfg:  Config{MapboxToken: "x"},
			want: ProviderMapbox,
		},
		{
			name: "google beats non-primary mapbox",
			cfg:  Config{MapboxToken: "x", GoogleConfigured: true},
			want: ProviderGoogle,
		},
		{
			name: "primary flag without token",
			cfg:  Config{MapboxPrimary: true},
			want: ProviderNone,
		},
		{
			name: "blank token",
			cfg:  Config{MapboxPrimary: true, MapboxToken: "  "},
			want: ProviderNone,
		},
		{
			name: "nothing configured",
			cfg:  Config{},
			want: ProviderNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Select(tt.cfg))
		})
	}
}

type fakeSettings struct {
	cfg       model.MapSettings
	status    model.MapsStatus
	cfgErr    error
	statusErr error
}

func (f fakeSettings) MapConfig(ctx context.Context) (model.MapSettings, error) {
	return f.cfg, f.cfgErr
}

func (f fakeSettings) MapsStatus(ctx context.Context) (*model.MapsStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &f.status, nil
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	p, cfg, err := Resolve(ctx, fakeSettings{
		cfg:    model.MapSettings{MapboxToken: "pk.abc"},
		status: model.MapsStatus{GoogleConfigured: true},
	})
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, p)
	assert.Equal(t, "pk.abc", cfg.MapboxToken)

	boom := errors.New("boom")
	_, _, err = Resolve(ctx, fakeSettings{statusErr: boom})
	require.ErrorIs(t, err, boom)

	p, _, err = Resolve(ctx, fakeSettings{cfgErr: boom})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, ProviderNone, p)
}
