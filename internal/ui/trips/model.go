package trips

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joltcab/console/internal/api"
	"github.com/joltcab/console/internal/keys"
	"github.com/joltcab/console/internal/model"
	"github.com/joltcab/console/internal/theme"
)

const loadTimeout = 30 * time.Second

// Service is the subset of the trip facade the view needs.
type Service interface {
	List(ctx context.Context, params api.Params) ([]model.Trip, error)
	Cancel(ctx context.Context, id, reason string) (*model.Trip, error)
}

// TripsLoadedMsg is sent when the trip list has been fetched.
type TripsLoadedMsg struct {
	Trips []model.Trip
	Err   error
}

// TripCancelledMsg is sent after a cancel request finishes.
type TripCancelledMsg struct {
	Trip *model.Trip
	Err  error
}

// Model is the trip history view.
type Model struct {
	list    list.Model
	service Service
	keys    *keys.KeyMap
	loading bool
	width   int
	height  int
}

// New creates a new trip list model.
func New(s Service, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height)
	l.Title = "Trips"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:    l,
		service: s,
		keys:    k,
		width:   width,
		height:  height,
	}
}

// Update handles messages for the trip view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TripsLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			return m, nil
		}
		items := make([]list.Item, len(msg.Trips))
		for i, t := range msg.Trips {
			items[i] = TripItem{Trip: t}
		}
		return m, m.list.SetItems(items)

	case TripCancelledMsg:
		if msg.Err != nil || msg.Trip == nil {
			return m, nil
		}
		for i, it := range m.list.Items() {
			if ti, ok := it.(TripItem); ok && ti.Trip.ID == msg.Trip.ID {
				return m, m.list.SetItem(i, TripItem{Trip: *msg.Trip})
			}
		}
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() != list.Filtering &&
			key.Matches(msg, m.keys.CancelTrip) {
			return m, m.cancelSelected()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Filtering reports whether the list is capturing keys for its filter.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Selected returns the focused trip.
func (m Model) Selected() (model.Trip, bool) {
	ti, ok := m.list.SelectedItem().(TripItem)
	if !ok {
		return model.Trip{}, false
	}
	return ti.Trip, true
}

// View renders the trip list.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.loading {
		return style.Render("Loading trips...")
	}
	return style.Render("No trips yet.\n\nPress r to refresh.")
}

// Load returns a command that fetches the trip list.
func (m *Model) Load() tea.Cmd {
	m.loading = true
	s := m.service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		trips, err := s.List(ctx, nil)
		return TripsLoadedMsg{Trips: trips, Err: err}
	}
}

// cancelSelected cancels the focused trip unless it already finished.
func (m Model) cancelSelected() tea.Cmd {
	trip, ok := m.Selected()
	if !ok {
		return nil
	}
	switch trip.Status {
	case model.TripCompleted, model.TripCancelled:
		return nil
	}

	s := m.service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		updated, err := s.Cancel(ctx, trip.ID, "cancelled from console")
		return TripCancelledMsg{Trip: updated, Err: err}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
