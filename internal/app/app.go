package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joltcab/console/internal/api"
	"github.com/joltcab/console/internal/keys"
	"github.com/joltcab/console/internal/logger"
	"github.com/joltcab/console/internal/maps"
	"github.com/joltcab/console/internal/model"
	"github.com/joltcab/console/internal/realtime"
	appsync "github.com/joltcab/console/internal/sync"
	"github.com/joltcab/console/internal/theme"
	"github.com/joltcab/console/internal/ui"
	"github.com/joltcab/console/internal/ui/detail"
	helpview "github.com/joltcab/console/internal/ui/help"
	"github.com/joltcab/console/internal/ui/login"
	"github.com/joltcab/console/internal/ui/notifications"
	"github.com/joltcab/console/internal/ui/trips"
)

const (
	requestTimeout = 30 * time.Second
	tickInterval   = time.Second
	noteBacklog    = 64
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewTrips
	ViewTripDetail
	ViewNotifications
	ViewHelp
)

// Session is the token holder the console reads its login state from.
type Session interface {
	Token() string
}

// Deps carries the long-lived services the console drives.
type Deps struct {
	API      *api.API
	Session  Session
	Realtime *realtime.Manager

	// Poller is the REST fallback used when the realtime entry guard
	// blocks. May be nil.
	Poller *appsync.Poller

	Logger *logger.Logger
}

type meLoadedMsg struct {
	user *model.User
	err  error
}

type loginResultMsg struct {
	result *api.AuthResult
	err    error
}

type mapsResolvedMsg struct {
	provider maps.Provider
	err      error
}

type notificationMsg struct {
	n model.Notification
}

type realtimeDoneMsg struct {
	err error
}

type remoteReadMsg struct {
	err error
}

type logoutDoneMsg struct{}

type startLoginMsg struct{}

type tickMsg time.Time

// feed holds the cancel func of the running realtime session. It lives
// on the heap so that copies of Model share it.
type feed struct {
	cancel context.CancelFunc
	notes  chan model.Notification
	unsub  func()
}

// Model is the root Bubble Tea model that manages view routing, layout
// and the session lifecycle.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	deps         Deps
	log          *logger.Logger
	keys         *keys.KeyMap
	login        login.Model
	trips        trips.Model
	detailView   detail.Model
	feedView     notifications.Model
	helpView     helpview.Model
	feed         *feed
	user         *model.User
	mapProvider  maps.Provider
	statusErr    string
	ready        bool
}

// New creates the root console model.
func New(deps Deps) Model {
	k := keys.DefaultKeyMap()

	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}

	f := &feed{notes: make(chan model.Notification, noteBacklog)}
	f.unsub = deps.Realtime.Subscribe(func(n model.Notification) {
		select {
		case f.notes <- n:
		default:
			// The view re-reads the whole buffer on the next message.
		}
	})

	view := ViewLogin
	if deps.Session.Token() != "" {
		view = ViewTrips
	}

	return Model{
		currentView: view,
		deps:        deps,
		log:         log.WithComponent("console"),
		keys:        k,
		login:       login.New(80, 24),
		trips:       trips.New(deps.API.Trips, k, 80, 24),
		detailView:  detail.New(k, 80, 24),
		feedView:    notifications.New(deps.Realtime, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		feed:        f,
		mapProvider: maps.ProviderNone,
	}
}

// Init restores an existing session or shows the login form.
func (m Model) Init() tea.Cmd {
	if m.currentView == ViewTrips {
		return tea.Batch(m.loadMe(), tick())
	}
	return tea.Batch(
		func() tea.Msg { return startLoginMsg{} },
		tick(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.login.SetSize(w, h)
		m.trips.SetSize(w, h)
		m.detailView.SetSize(w, h)
		m.feedView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		return m.updateActiveView(msg)

	case tickMsg:
		return m, tick()

	case startLoginMsg:
		return m, m.login.Start("")

	case login.SubmitMsg:
		return m, m.submitLogin(msg.Email, msg.Password)

	case login.CancelMsg:
		m.shutdown()
		return m, tea.Quit

	case loginResultMsg:
		if msg.err != nil {
			return m, m.login.Start(msg.err.Error())
		}
		return m.signedIn(msg.result.User)

	case meLoadedMsg:
		if msg.err != nil {
			if api.IsUnauthorized(msg.err) {
				m.currentView = ViewLogin
				return m, tea.Batch(
					m.clearLocalSession(),
					m.login.Start("Session expired, please sign in again"),
				)
			}
			m.statusErr = msg.err.Error()
		}
		return m.signedIn(msg.user)

	case mapsResolvedMsg:
		if msg.err != nil {
			m.log.Warn("resolving map provider", slog.String("error", msg.err.Error()))
		}
		m.mapProvider = msg.provider
		return m, nil

	case notificationMsg:
		return m, tea.Batch(m.feedView.Sync(), m.waitForNotification())

	case realtimeDoneMsg:
		if errors.Is(msg.err, realtime.ErrGaveUp) {
			m.statusErr = "Live updates unavailable, press r to poll"
		}
		return m, nil

	case appsync.SyncResultMsg:
		switch {
		case msg.AuthError != nil:
			m.statusErr = msg.AuthError.Message
		case msg.Error != nil:
			m.statusErr = msg.Error.Error()
		default:
			m.statusErr = ""
		}
		return m, tea.Batch(m.feedView.Sync(), m.deps.Poller.WaitForNextResult())

	case trips.TripsLoadedMsg:
		if msg.Err != nil {
			m.statusErr = msg.Err.Error()
		}
		var cmd tea.Cmd
		m.trips, cmd = m.trips.Update(msg)
		return m, cmd

	case trips.TripCancelledMsg:
		if msg.Err != nil {
			m.statusErr = msg.Err.Error()
		} else if shown, ok := m.detailView.Trip(); ok && msg.Trip != nil && shown.ID == msg.Trip.ID {
			m.detailView.SetTrip(*msg.Trip)
		}
		var cmd tea.Cmd
		m.trips, cmd = m.trips.Update(msg)
		return m, cmd

	case detail.BackMsg:
		m.currentView = ViewTrips
		return m, nil

	case notifications.ReadMsg:
		return m, m.markReadRemote(msg.ID)

	case remoteReadMsg:
		if msg.err != nil {
			m.statusErr = msg.err.Error()
		}
		return m, nil

	case logoutDoneMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.shutdown()
			return m, tea.Quit
		}
		if m.currentView == ViewLogin || m.trips.Filtering() {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.shutdown()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case key.Matches(msg, m.keys.Back):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}

		case m.currentView == ViewTrips && key.Matches(msg, m.keys.Select):
			if t, ok := m.trips.Selected(); ok {
				m.detailView.SetTrip(t)
				m.currentView = ViewTripDetail
			}
			return m, nil

		case m.currentView == ViewTripDetail && key.Matches(msg, m.keys.CancelTrip):
			// The list selection still points at the open trip.
			var cmd tea.Cmd
			m.trips, cmd = m.trips.Update(msg)
			return m, cmd

		case key.Matches(msg, m.keys.Trips):
			m.currentView = ViewTrips
			return m, nil

		case key.Matches(msg, m.keys.Notifications):
			m.currentView = ViewNotifications
			return m, m.feedView.Sync()

		case key.Matches(msg, m.keys.NextView):
			if m.currentView == ViewTrips {
				m.currentView = ViewNotifications
				return m, m.feedView.Sync()
			}
			m.currentView = ViewTrips
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			m.statusErr = ""
			return m, tea.Batch(m.trips.Load(), m.refreshFeed())

		case key.Matches(msg, m.keys.Logout):
			return m, m.logout()
		}
	}

	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.login, cmd = m.login.Update(msg)
	case ViewTrips:
		m.trips, cmd = m.trips.Update(msg)
	case ViewTripDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case ViewNotifications:
		m.feedView, cmd = m.feedView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.title(), m.headerSegments()...)
	content := m.renderContent()

	var statusBar string
	if m.statusErr != "" {
		statusBar = m.layout.RenderStatusBar(theme.ErrorBarStyle, m.statusErr)
	} else {
		statusBar = m.layout.RenderStatusBar(theme.StatusBarStyle, m.keyHints())
	}

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.login.View()
	case ViewTrips:
		return m.trips.View()
	case ViewTripDetail:
		return m.detailView.View()
	case ViewNotifications:
		return m.feedView.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

func (m Model) title() string {
	if m.user == nil {
		return "JoltCab"
	}
	name := m.user.FullName
	if name == "" {
		name = m.user.Email
	}
	return fmt.Sprintf("JoltCab | %s (%s)", name, m.user.Role)
}

// headerSegments renders connection state, unread count and map provider.
func (m Model) headerSegments() []string {
	if m.user == nil {
		return nil
	}

	var conn string
	if m.deps.Realtime.Enabled() {
		state := string(m.deps.Realtime.State())
		conn = theme.ConnectionStyle(state).Render("live: " + state)
	} else if m.deps.Poller != nil {
		conn = theme.HeaderStyle.Render("polling: " + m.deps.Poller.Status().State.String())
	} else {
		conn = theme.HeaderStyle.Render("offline")
	}

	segments := []string{conn}
	if n := m.deps.Realtime.UnreadCount(); n > 0 {
		segments = append(segments, theme.HeaderStyle.Render(fmt.Sprintf("%d unread", n)))
	}
	segments = append(segments, theme.HeaderStyle.Render("map: "+string(m.mapProvider)))
	return segments
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewLogin:
		return "enter submit | esc quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewTripDetail:
		return "x cancel trip | esc back | j/k scroll | ? help | q quit"
	case ViewNotifications:
		return "m mark read | M mark all read | tab trips | r refresh | ? help | q quit"
	default:
		return "enter details | x cancel trip | / filter | tab notifications | r refresh | L log out | ? help | q quit"
	}
}

// signedIn switches to the main views and starts the live feed.
func (m Model) signedIn(user *model.User) (tea.Model, tea.Cmd) {
	m.user = user
	m.currentView = ViewTrips
	return m, tea.Batch(
		m.trips.Load(),
		m.resolveMaps(),
		m.startFeed(),
	)
}

// startFeed runs the realtime manager or, when the entry guard blocks,
// the polling fallback.
func (m Model) startFeed() tea.Cmd {
	if m.deps.Realtime.Enabled() {
		ctx, cancel := context.WithCancel(context.Background())
		m.feed.cancel = cancel
		mgr := m.deps.Realtime
		return tea.Batch(
			func() tea.Msg { return realtimeDoneMsg{err: mgr.Run(ctx)} },
			m.waitForNotification(),
		)
	}
	if m.deps.Poller != nil {
		return m.deps.Poller.Start()
	}
	return nil
}

// refreshFeed triggers a poll, or restarts the socket after the
// reconnect ceiling was reached.
func (m Model) refreshFeed() tea.Cmd {
	if m.deps.Realtime.Enabled() {
		if m.deps.Realtime.State() == realtime.StateTerminated {
			return m.startFeed()
		}
		return nil
	}
	if m.deps.Poller != nil {
		return m.deps.Poller.Refresh()
	}
	return nil
}

func (m Model) waitForNotification() tea.Cmd {
	notes := m.feed.notes
	return func() tea.Msg {
		return notificationMsg{n: <-notes}
	}
}

func (m Model) submitLogin(email, password string) tea.Cmd {
	auth := m.deps.API.Auth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		res, err := auth.Login(ctx, email, password)
		return loginResultMsg{result: res, err: err}
	}
}

func (m Model) loadMe() tea.Cmd {
	auth := m.deps.API.Auth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		user, err := auth.Me(ctx)
		return meLoadedMsg{user: user, err: err}
	}
}

func (m Model) resolveMaps() tea.Cmd {
	settings := m.deps.API.Settings
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		provider, _, err := maps.Resolve(ctx, settings)
		return mapsResolvedMsg{provider: provider, err: err}
	}
}

func (m Model) markReadRemote(id string) tea.Cmd {
	svc := m.deps.API.Notifications
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if id == "" {
			return remoteReadMsg{err: svc.MarkAllRead(ctx)}
		}
		return remoteReadMsg{err: svc.MarkRead(ctx, id)}
	}
}

func (m Model) clearLocalSession() tea.Cmd {
	auth := m.deps.API.Auth
	return func() tea.Msg {
		if err := auth.LogoutLocal(context.Background()); err != nil {
			return remoteReadMsg{err: err}
		}
		return nil
	}
}

// logout ends the session on both sides and exits the console.
func (m Model) logout() tea.Cmd {
	m.shutdown()
	auth := m.deps.API.Auth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		_ = auth.Logout(ctx)
		return logoutDoneMsg{}
	}
}

// shutdown stops the live feed and the poller.
func (m Model) shutdown() {
	if m.feed.cancel != nil {
		m.feed.cancel()
		m.feed.cancel = nil
	}
	if m.feed.unsub != nil {
		m.feed.unsub()
		m.feed.unsub = nil
	}
	if m.deps.Poller != nil {
		m.deps.Poller.Stop()
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}
