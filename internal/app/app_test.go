package app

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joltcab/console/internal/api"
	"github.com/joltcab/console/internal/model"
	"github.com/joltcab/console/internal/realtime"
	"github.com/joltcab/console/internal/session"
	"github.com/joltcab/console/internal/ui/detail"
	"github.com/joltcab/console/internal/ui/trips"
)

type tokenSession string

func (s tokenSession) Token() string { return string(s) }

func newTestModel(t *testing.T, token string) Model {
	t.Helper()
	a := api.New(api.Options{BaseURL: "http://127.0.0.1:1/api"}, session.New(nil), api.OAuthOptions{}, nil)
	mgr := realtime.New(realtime.Options{Disabled: true})
	t.Cleanup(func() { _ = mgr.Close() })

	return New(Deps{API: a, Session: tokenSession(token), Realtime: mgr})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func TestNewPicksInitialView(t *testing.T) {
	assert.Equal(t, ViewLogin, newTestModel(t, "").currentView)
	assert.Equal(t, ViewTrips, newTestModel(t, "tok").currentView)
}

func TestViewBeforeWindowSize(t *testing.T) {
	assert.Equal(t, "Loading...", newTestModel(t, "tok").View())
}

func TestOpenAndCloseTripDetail(t *testing.T) {
	m := newTestModel(t, "tok")
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = update(t, m, trips.TripsLoadedMsg{Trips: []model.Trip{{
		ID:      "t-7",
		Status:  model.TripCompleted,
		Pickup:  model.Location{Address: "Airport"},
		Dropoff: model.Location{Address: "Downtown"},
	}}})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewTripDetail, m.currentView)
	assert.Contains(t, m.View(), "Trip t-7")

	m = update(t, m, detail.BackMsg{})
	assert.Equal(t, ViewTrips, m.currentView)
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel(t, "tok")
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Equal(t, ViewHelp, m.currentView)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewTrips, m.currentView)
}

func TestTripLoadErrorShownInStatusBar(t *testing.T) {
	m := newTestModel(t, "tok")
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = update(t, m, trips.TripsLoadedMsg{Err: assert.AnError})
	assert.Equal(t, assert.AnError.Error(), m.statusErr)
}
