package detail

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joltcab/console/internal/keys"
	"github.com/joltcab/console/internal/model"
)

func TestViewWithoutTrip(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 60, 10)
	assert.Contains(t, m.View(), "No trip selected")

	_, ok := m.Trip()
	assert.False(t, ok)
}

func TestSetTripRendersFields(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	m.SetTrip(model.Trip{
		ID:          "t-42",
		Status:      model.TripCompleted,
		Pickup:      model.Location{Address: "Airport"},
		Dropoff:     model.Location{Lat: 30.0444, Lng: 31.2357},
		VehicleType: "economy",
		Fare:        87.5,
		Currency:    "usd",
		DistanceKm:  12.34,
		Rating:      4,
		CreatedDate: time.Now().Add(-time.Hour),
	})

	view := m.View()
	assert.Contains(t, view, "Trip t-42")
	assert.Contains(t, view, "Airport")
	assert.Contains(t, view, "30.04440, 31.23570")
	assert.Contains(t, view, "87.5 USD")
	assert.Contains(t, view, "12.3 km")
	assert.Contains(t, view, "****")

	trip, ok := m.Trip()
	require.True(t, ok)
	assert.Equal(t, "t-42", trip.ID)
}

func TestBackKeyEmitsBackMsg(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 60, 10)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, BackMsg{}, cmd())
}
