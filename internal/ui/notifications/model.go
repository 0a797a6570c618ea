package notifications

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/joltcab/console/internal/keys"
	"github.com/joltcab/console/internal/model"
	"github.com/joltcab/console/internal/theme"
)

// Feed is the notification buffer the view renders and mutates.
type Feed interface {
	Notifications() []model.Notification
	MarkRead(id string) bool
	MarkAllRead()
}

// ReadMsg reports that notifications were marked read locally. An empty
// ID means all of them. The root model mirrors the change to the backend.
type ReadMsg struct {
	ID string
}

type item struct {
	n model.Notification
}

func (i item) FilterValue() string { return i.n.Title + " " + i.n.Message }

type delegate struct{}

func (d delegate) Height() int { return 2 }

func (d delegate) Spacing() int { return 0 }

func (d delegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d delegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(item)
	if !ok {
		return
	}
	n := it.n

	marker := lipgloss.NewStyle().Foreground(theme.ColorYellow).Render("●")
	if n.Read {
		marker = " "
	}

	title := n.Title
	if title == "" {
		title = n.Type
	}
	when := ""
	if !n.CreatedDate.IsZero() {
		when = theme.MutedStyle.Render(humanize.Time(n.CreatedDate))
	}

	line := fmt.Sprintf("%s %s  %s\n  %s", marker, title, when, n.Message)
	if n.Read {
		line = theme.DimmedStyle.Render(line)
	}

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}
	fmt.Fprint(w, line)
}

// Model is the notification feed view.
type Model struct {
	list   list.Model
	feed   Feed
	keys   *keys.KeyMap
	width  int
	height int
}

// New creates the feed view over feed.
func New(feed Feed, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, delegate{}, width, height)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{list: l, feed: feed, keys: k, width: width, height: height}
}

// Sync reloads the list from the feed, newest first.
func (m *Model) Sync() tea.Cmd {
	all := m.feed.Notifications()
	items := make([]list.Item, len(all))
	for i, n := range all {
		items[i] = item{n: n}
	}
	return m.list.SetItems(items)
}

// Update handles messages for the feed view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.MarkRead), key.Matches(msg, m.keys.Select):
			it, ok := m.list.SelectedItem().(item)
			if !ok || it.n.Read {
				return m, nil
			}
			m.feed.MarkRead(it.n.ID)
			id := it.n.ID
			return m, tea.Batch(m.Sync(), func() tea.Msg { return ReadMsg{ID: id} })

		case key.Matches(msg, m.keys.MarkAllRead):
			m.feed.MarkAllRead()
			return m, tea.Batch(m.Sync(), func() tea.Msg { return ReadMsg{} })
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the feed.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No notifications.")
	}
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
