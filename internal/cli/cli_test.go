package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joltcab/console/internal/config"
	"github.com/joltcab/console/internal/model"
	"github.com/joltcab/console/internal/testutil"
)

var rider = model.User{
	ID:       "u-1",
	Email:    "rider@joltcab.com",
	FullName: "Rider One",
	Role:     model.RolePassenger,
}

// writeConfig points a config file at b with a throwaway SQLite token
// store and returns its path.
func writeConfig(t *testing.T, b *testutil.Backend) string {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.API.BaseURL = b.URL()
	cfg.Storage.Backend = config.BackendSQLite
	cfg.Storage.Path = filepath.Join(dir, "joltcab.db")
	cfg.Realtime.Disabled = true

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(strings.NewReader(""), &out, &errOut)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSessionPersistsAcrossInvocations(t *testing.T) {
	b := testutil.NewBackend(t)
	b.AddUser(rider, "s3cret")
	cfgPath := writeConfig(t, b)

	out, err := run(t, cfgPath, "login", "--email", rider.Email, "--password", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as rider@joltcab.com (passenger).")

	out, err = run(t, cfgPath, "me", "-o", "json")
	require.NoError(t, err)
	var u model.User
	require.NoError(t, json.Unmarshal([]byte(out), &u))
	assert.Equal(t, rider.ID, u.ID)

	req, ok := b.LastRequest(http.MethodGet, "/auth/me")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(req.Header.Get("Authorization"), "Bearer "))

	out, err = run(t, cfgPath, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out.")

	_, err = run(t, cfgPath, "me")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")
}

func TestLoginWrongPassword(t *testing.T) {
	b := testutil.NewBackend(t)
	b.AddUser(rider, "s3cret")
	cfgPath := writeConfig(t, b)

	_, err := run(t, cfgPath, "login", "--email", rider.Email, "--password", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")
}

func TestTripsList(t *testing.T) {
	b := testutil.NewBackend(t)
	b.AddUser(rider, "s3cret")
	b.Respond(http.MethodGet, "/trips", http.StatusOK, testutil.OK(map[string]interface{}{
		"trips": []model.Trip{{
			ID:          "t-1",
			Status:      model.TripCompleted,
			Pickup:      model.Location{Address: "Airport"},
			Dropoff:     model.Location{Address: "Downtown"},
			Fare:        1250.75,
			Currency:    "egp",
			CreatedDate: time.Now().Add(-2 * time.Hour),
		}},
	}))
	cfgPath := writeConfig(t, b)

	_, err := run(t, cfgPath, "login", "--email", rider.Email, "--password", "s3cret")
	require.NoError(t, err)

	out, err := run(t, cfgPath, "trips", "list", "--status", "completed", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "t-1")
	assert.Contains(t, out, "Airport")
	assert.Contains(t, out, "1,250.75 EGP")

	req, ok := b.LastRequest(http.MethodGet, "/trips")
	require.True(t, ok)
	assert.Contains(t, req.Query, "status=completed")

	out, err = run(t, cfgPath, "trips", "list", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "id: t-1")
}

func TestUnknownOutputFormat(t *testing.T) {
	b := testutil.NewBackend(t)
	cfgPath := writeConfig(t, b)

	_, err := run(t, cfgPath, "me", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, path, "config", "init", "--base-url", "http://localhost:4000/api", "--storage", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	_, err = run(t, path, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, err = run(t, path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "base_url: http://localhost:4000/api")
	assert.Contains(t, out, "backend: memory")
}

func TestConfigInitRejectsBadStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	_, err := run(t, path, "config", "init", "--storage", "floppy")
	require.Error(t, err)
}

func TestParseLocation(t *testing.T) {
	loc, err := parseLocation("30.0444, 31.2357, Tahrir Square")
	require.NoError(t, err)
	assert.Equal(t, 30.0444, loc.Lat)
	assert.Equal(t, 31.2357, loc.Lng)
	assert.Equal(t, "Tahrir Square", loc.Address)

	loc, err = parseLocation("1,2")
	require.NoError(t, err)
	assert.Empty(t, loc.Address)

	for _, bad := range []string{"", "30.1", "north,31", "30,east", "91,0", "0,181"} {
		_, err := parseLocation(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseSettingValue(t *testing.T) {
	assert.Equal(t, true, parseSettingValue("true"))
	assert.Equal(t, 2.5, parseSettingValue("2.5"))
	assert.Equal(t, "mapbox", parseSettingValue("mapbox"))
}
