package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/goccy/go-yaml"

	"github.com/joltcab/console/internal/model"
	"github.com/joltcab/console/internal/theme"
	"github.com/joltcab/console/internal/ui/trips"
)

// Output formats accepted by --output.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// printer renders command results in the selected format.
type printer struct {
	format string
	out    io.Writer
}

func newPrinter(format string, out io.Writer) (printer, error) {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return printer{format: format, out: out}, nil
	default:
		return printer{}, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// print writes v as JSON or YAML, or calls render for the table format.
func (p printer) print(v interface{}, render func() string) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		b, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		_, err = p.out.Write(b)
		return err
	default:
		_, err := fmt.Fprintln(p.out, render())
		return err
	}
}

// message prints a human line in table mode and nothing otherwise, so
// machine-readable output stays parseable.
func (p printer) message(format string, args ...interface{}) {
	if p.format != formatTable {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(headers...)
}

func userTable(u *model.User) string {
	t := newTable("FIELD", "VALUE")
	t.Row("id", u.ID)
	t.Row("name", u.FullName)
	t.Row("email", u.Email)
	t.Row("role", u.Role)
	if u.Phone != "" {
		t.Row("phone", u.Phone)
	}
	t.Row("verified", fmt.Sprintf("%t", u.Verified))
	if !u.CreatedDate.IsZero() {
		t.Row("member since", humanize.Time(u.CreatedDate))
	}
	return t.String()
}

func tripsTable(ts []model.Trip) string {
	if len(ts) == 0 {
		return "No trips."
	}
	t := newTable("ID", "STATUS", "FROM", "TO", "FARE", "CREATED")
	for _, tr := range ts {
		t.Row(tr.ID, tr.Status, tr.Pickup.Address, tr.Dropoff.Address,
			money(tr.Fare, tr.Currency), ago(tr.CreatedDate))
	}
	return t.String()
}

func tripTable(tr *model.Trip) string {
	t := newTable("FIELD", "VALUE")
	t.Row("id", tr.ID)
	t.Row("status", tr.Status)
	t.Row("pickup", tr.Pickup.Address)
	t.Row("dropoff", tr.Dropoff.Address)
	t.Row("vehicle", tr.VehicleType)
	t.Row("fare", money(tr.Fare, tr.Currency))
	t.Row("distance", fmt.Sprintf("%s km", humanize.FtoaWithDigits(tr.DistanceKm, 1)))
	t.Row("duration", fmt.Sprintf("%s min", humanize.FtoaWithDigits(tr.DurationMin, 0)))
	if tr.DriverID != "" {
		t.Row("driver", tr.DriverID)
	}
	if tr.ScheduledAt != nil {
		t.Row("scheduled", tr.ScheduledAt.Format(time.RFC1123))
	}
	t.Row("created", ago(tr.CreatedDate))
	return t.String()
}

func fareTable(f *model.FareEstimate) string {
	t := newTable("FIELD", "VALUE")
	t.Row("amount", money(f.Amount, f.Currency))
	t.Row("distance", fmt.Sprintf("%s km", humanize.FtoaWithDigits(f.DistanceKm, 1)))
	t.Row("duration", fmt.Sprintf("%s min", humanize.FtoaWithDigits(f.DurationMin, 0)))
	if f.SurgeMultiplier > 0 {
		t.Row("surge", fmt.Sprintf("x%s", humanize.FtoaWithDigits(f.SurgeMultiplier, 2)))
	}
	names := make([]string, 0, len(f.Breakdown))
	for name := range f.Breakdown {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t.Row("  "+name, money(f.Breakdown[name], f.Currency))
	}
	return t.String()
}

func notificationsTable(ns []model.Notification) string {
	if len(ns) == 0 {
		return "No notifications."
	}
	t := newTable("", "ID", "TITLE", "MESSAGE", "WHEN")
	for _, n := range ns {
		mark := "*"
		if n.Read {
			mark = ""
		}
		t.Row(mark, n.ID, n.Title, n.Message, ago(n.CreatedDate))
	}
	return t.String()
}

// notificationLine is the one-line form used by watch.
func notificationLine(n model.Notification) string {
	parts := []string{time.Now().Format(time.Kitchen)}
	if n.Type != "" {
		parts = append(parts, "["+n.Type+"]")
	}
	if n.Title != "" {
		parts = append(parts, n.Title+":")
	}
	parts = append(parts, n.Message)
	return strings.Join(parts, " ")
}

func money(amount float64, currency string) string {
	return trips.FormatFare(amount, currency)
}

func ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}
