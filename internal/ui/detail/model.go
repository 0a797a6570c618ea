package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/joltcab/console/internal/keys"
	"github.com/joltcab/console/internal/model"
	"github.com/joltcab/console/internal/theme"
	"github.com/joltcab/console/internal/ui/trips"
)

// BackMsg signals the parent to navigate back to the trip list.
type BackMsg struct{}

// Model is the trip detail view component.
type Model struct {
	trip     *model.Trip
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
		return m, func() tea.Msg {
			return BackMsg{}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.trip == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No trip selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.trip == nil {
		return ""
	}

	t := m.trip
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render("Trip "+t.ID))

	badges := []string{theme.TripStatusStyle(t.Status).Render(t.Status)}
	if t.VehicleType != "" {
		badges = append(badges, "  ", theme.MutedStyle.Render(strings.ToUpper(t.VehicleType)))
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, badges...))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(11)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, metaStyle.Render(label+":")+valStyle.Render(value))
	}

	row("From", place(t.Pickup))
	row("To", place(t.Dropoff))
	row("Fare", trips.FormatFare(t.Fare, t.Currency))
	if t.DistanceKm > 0 {
		row("Distance", humanize.FtoaWithDigits(t.DistanceKm, 1)+" km")
	}
	if t.DurationMin > 0 {
		row("Duration", humanize.FtoaWithDigits(t.DurationMin, 0)+" min")
	}
	row("Payment", t.PaymentMethod)
	row("Driver", t.DriverID)
	if t.Rating > 0 {
		row("Rating", strings.Repeat("*", t.Rating))
	}
	if t.ScheduledAt != nil {
		row("Scheduled", t.ScheduledAt.Local().Format("2006-01-02 15:04"))
	}
	if !t.CreatedDate.IsZero() {
		row("Created", fmt.Sprintf("%s (%s)",
			t.CreatedDate.Local().Format("2006-01-02 15:04"), humanize.Time(t.CreatedDate)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func place(l model.Location) string {
	if l.Address != "" {
		return l.Address
	}
	if l.Lat == 0 && l.Lng == 0 {
		return ""
	}
	return fmt.Sprintf("%.5f, %.5f", l.Lat, l.Lng)
}

// SetTrip updates the trip being displayed and re-renders the content.
func (m *Model) SetTrip(t model.Trip) {
	m.trip = &t
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Trip returns the displayed trip, if any.
func (m Model) Trip() (model.Trip, bool) {
	if m.trip == nil {
		return model.Trip{}, false
	}
	return *m.trip, true
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
}
