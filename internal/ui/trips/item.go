package trips

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/joltcab/console/internal/model"
	"github.com/joltcab/console/internal/theme"
)

// TripItem wraps a model.Trip so it can be used in a bubbles/list.
type TripItem struct {
	Trip model.Trip
}

// FilterValue returns the string used for fuzzy filtering.
func (i TripItem) FilterValue() string {
	return i.Trip.Pickup.Address + " " + i.Trip.Dropoff.Address
}

// Title returns the route for the list.
func (i TripItem) Title() string { return route(i.Trip) }

// Description returns a short summary line for the list.
func (i TripItem) Description() string {
	parts := []string{
		i.Trip.Status,
		FormatFare(i.Trip.Fare, i.Trip.Currency),
		humanizeTime(i.Trip),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering trips.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single trip line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TripItem)
	if !ok {
		return
	}
	trip := ti.Trip

	statusBadge := theme.TripStatusStyle(trip.Status).Render(trip.Status)

	fare := lipgloss.NewStyle().
		Foreground(theme.ColorGreen).
		Render(FormatFare(trip.Fare, trip.Currency))

	vehicle := ""
	if trip.VehicleType != "" {
		vehicle = lipgloss.NewStyle().
			Foreground(theme.ColorMagenta).
			Render(" [" + trip.VehicleType + "]")
	}

	when := theme.MutedStyle.Render(humanizeTime(trip))

	line := fmt.Sprintf("● %s %s%s  %s  %s", statusBadge, route(trip), vehicle, fare, when)

	switch trip.Status {
	case model.TripCompleted, model.TripCancelled:
		line = theme.DimmedStyle.Render(line)
	}

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// FormatFare renders an amount with thousands separators and the
// currency code, e.g. "1,250.50 USD".
func FormatFare(amount float64, currency string) string {
	s := humanize.CommafWithDigits(amount, 2)
	if currency != "" {
		s += " " + strings.ToUpper(currency)
	}
	return s
}

func route(t model.Trip) string {
	from := t.Pickup.Address
	if from == "" {
		from = "?"
	}
	to := t.Dropoff.Address
	if to == "" {
		to = "?"
	}
	return from + " → " + to
}

// humanizeTime prefers the scheduled pickup for future trips.
func humanizeTime(t model.Trip) string {
	if t.ScheduledAt != nil && !t.ScheduledAt.IsZero() {
		return "pickup " + humanize.Time(*t.ScheduledAt)
	}
	if t.CreatedDate.IsZero() {
		return ""
	}
	return humanize.Time(t.CreatedDate)
}
