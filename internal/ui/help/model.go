package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joltcab/console/internal/keys"
	"github.com/joltcab/console/internal/theme"
)

// twoColumnWidth is the narrowest overlay that fits sections side by side.
const twoColumnWidth = 64

type section struct {
	title    string
	bindings []key.Binding
}

// Model is the help overlay, listing shortcuts grouped by the view they
// act on.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Update is a no-op; the root model closes the overlay.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func (m Model) sections() []section {
	k := m.keys
	return []section{
		{title: "Navigation", bindings: []key.Binding{k.Up, k.Down, k.Trips, k.Notifications, k.NextView, k.Back}},
		{title: "Trips", bindings: []key.Binding{k.Select, k.CancelTrip, k.Refresh}},
		{title: "Notifications", bindings: []key.Binding{k.MarkRead, k.MarkAllRead}},
		{title: "Session", bindings: []key.Binding{k.Logout, k.Help, k.Quit}},
	}
}

func (m Model) renderSection(s section) string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Render(s.title)
	body := m.help.FullHelpView([][]key.Binding{s.bindings})
	return lipgloss.NewStyle().
		MarginRight(4).
		MarginBottom(1).
		Render(lipgloss.JoinVertical(lipgloss.Left, heading, body))
}

// View renders the help overlay. Sections sit in two columns when the
// terminal is wide enough.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("JoltCab console shortcuts")

	var blocks []string
	for _, s := range m.sections() {
		blocks = append(blocks, m.renderSection(s))
	}

	var body string
	if m.width >= twoColumnWidth {
		left := lipgloss.JoinVertical(lipgloss.Left, blocks[0], blocks[1])
		right := lipgloss.JoinVertical(lipgloss.Left, blocks[2], blocks[3])
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, blocks...)
	}

	hint := theme.MutedStyle.Render("In the trip list, / filters by route or status.")
	content := lipgloss.JoinVertical(lipgloss.Left, title, body, hint)

	return theme.PanelStyle.
		Width(max(m.width-4, 0)).
		Height(max(m.height-4, 0)).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
