package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/joltcab/console/internal/logger"
	"github.com/joltcab/console/internal/metrics"
	"github.com/joltcab/console/internal/model"
)

// State is the connection state of the manager.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
	StateTerminated State = "terminated"
)

var allStates = []string{
	string(StateIdle),
	string(StateConnecting),
	string(StateOpen),
	string(StateClosed),
	string(StateTerminated),
}

// BufferSize is the number of notifications kept, newest first.
const BufferSize = 50

// Notification origins, used for metrics.
const (
	OriginSocket = "socket"
	OriginPoll   = "poll"
)

var (
	// ErrRealtimeDisabled is returned by Run when realtime is switched off
	// or the API points at a local development host.
	ErrRealtimeDisabled = errors.New("realtime is disabled")

	// ErrGaveUp is returned by Run once the reconnect ceiling is reached.
	ErrGaveUp = errors.New("realtime gave up reconnecting")
)

// TokenSource supplies the bearer token for the auth frame.
type TokenSource interface {
	Token() string
}

// IdentityFunc returns the email of the logged-in user.
type IdentityFunc func(ctx context.Context) (string, error)

// DesktopNotifier mirrors notifications to the operating system.
type DesktopNotifier interface {
	Permitted() bool
	Notify(n model.Notification) error
}

// Options configures a Manager.
type Options struct {
	URL string

	// Disabled and LocalHost both keep the manager idle.
	Disabled  bool
	LocalHost bool

	// MaxReconnectAttempts is the backoff ceiling. Zero means
	// DefaultMaxReconnectAttempts.
	MaxReconnectAttempts int

	Tokens   TokenSource
	Identity IdentityFunc
	Dialer   Dialer
	Notifier DesktopNotifier
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
}

// authFrame is the first frame sent on every new connection.
type authFrame struct {
	Type      string `json:"type"`
	Token     string `json:"token"`
	UserEmail string `json:"user_email"`
}

type inboundFrame struct {
	Type         string          `json:"type"`
	Notification json.RawMessage `json:"notification,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// Manager owns a single realtime socket: it authenticates it, buffers
// inbound notifications and reconnects with exponential backoff up to a
// bounded number of attempts.
type Manager struct {
	url         string
	blocked     bool
	maxAttempts int
	tokens      TokenSource
	identity    IdentityFunc
	dialer      Dialer
	notifier    DesktopNotifier
	log         *logger.Logger
	metrics     *metrics.Metrics

	// after is swapped in tests to run the backoff without waiting.
	after func(time.Duration) <-chan time.Time

	// onSchedule observes every scheduled reconnect.
	onSchedule func(attempt int, delay time.Duration)

	mu            sync.Mutex
	state         State
	attempt       int
	running       bool
	conn          Conn
	notifications []model.Notification
	subscribers   map[int]func(model.Notification)
	nextSub       int

	closeOnce sync.Once
	closeCh   chan struct{}
}

// New creates a manager in the idle state.
func New(opts Options) *Manager {
	maxAttempts := opts.MaxReconnectAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxReconnectAttempts
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = WebSocketDialer{HandshakeTimeout: 10 * time.Second}
	}

	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	m := &Manager{
		url:         opts.URL,
		blocked:     opts.Disabled || opts.LocalHost,
		maxAttempts: maxAttempts,
		tokens:      opts.Tokens,
		identity:    opts.Identity,
		dialer:      dialer,
		notifier:    opts.Notifier,
		log:         log.WithComponent("realtime"),
		metrics:     opts.Metrics,
		after:       time.After,
		state:       StateIdle,
		subscribers: make(map[int]func(model.Notification)),
		closeCh:     make(chan struct{}),
	}
	m.metrics.SetRealtimeState(string(StateIdle), allStates)
	return m
}

// Enabled reports whether Run would dial at all.
func (m *Manager) Enabled() bool {
	return !m.blocked && m.url != ""
}

// Run connects and keeps the connection alive until ctx is cancelled,
// Close is called or the reconnect ceiling is reached. It returns
// ErrRealtimeDisabled without dialing when the entry guard blocks.
func (m *Manager) Run(ctx context.Context) error {
	if m.blocked {
		m.log.Info("realtime disabled, staying idle")
		return ErrRealtimeDisabled
	}
	if m.url == "" {
		return fmt.Errorf("%w: no realtime url configured", ErrRealtimeDisabled)
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("realtime manager already running")
	}
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	for {
		if m.stopped(ctx) {
			m.setState(StateClosed)
			return ctx.Err()
		}

		m.setState(StateConnecting)
		err := m.connect(ctx)

		m.setState(StateClosed)
		if m.stopped(ctx) {
			return ctx.Err()
		}
		if err != nil {
			m.log.Warn("realtime connection closed", slog.String("error", err.Error()))
		}

		m.mu.Lock()
		attempt := m.attempt
		if attempt >= m.maxAttempts {
			m.mu.Unlock()
			m.log.Warn("giving up on realtime after max reconnect attempts",
				slog.Int("attempts", attempt))
			m.setState(StateTerminated)
			return ErrGaveUp
		}
		m.attempt++
		m.mu.Unlock()

		delay := DelayFor(attempt)
		m.metrics.ReconnectScheduled()
		if m.onSchedule != nil {
			m.onSchedule(attempt+1, delay)
		}
		m.log.Info("reconnect scheduled",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.closeCh:
			return nil
		case <-m.after(delay):
		}
	}
}

// stopped reports whether ctx is done or Close was called.
func (m *Manager) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-m.closeCh:
		return true
	default:
		return false
	}
}

// connect dials, authenticates and reads frames until the socket fails.
func (m *Manager) connect(ctx context.Context) error {
	conn, err := m.dialer.Dial(ctx, m.url)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", m.url, err)
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	done := make(chan struct{})
	defer func() {
		close(done)
		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()
		conn.Close()
	}()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-m.closeCh:
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(m.authFrame(ctx)); err != nil {
		return fmt.Errorf("sending auth frame: %w", err)
	}

	m.mu.Lock()
	m.attempt = 0
	m.mu.Unlock()
	m.setState(StateOpen)
	m.log.Info("realtime connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("reading frame: %w", err)
		}
		m.handleFrame(data)
	}
}

func (m *Manager) authFrame(ctx context.Context) authFrame {
	frame := authFrame{Type: "auth"}
	if m.tokens != nil {
		frame.Token = m.tokens.Token()
	}
	if m.identity != nil {
		email, err := m.identity(ctx)
		if err != nil {
			m.log.Warn("resolving identity for auth frame", slog.String("error", err.Error()))
		}
		frame.UserEmail = email
	}
	return frame
}

// handleFrame parses one inbound frame. Bad frames are logged and
// dropped; they never close the connection.
func (m *Manager) handleFrame(data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		m.log.Error("parsing realtime frame", slog.String("error", err.Error()))
		return
	}
	if frame.Type != "notification" {
		m.log.Debug("ignoring realtime frame", slog.String("type", frame.Type))
		return
	}

	payload := json.RawMessage(data)
	if len(frame.Notification) > 0 {
		payload = frame.Notification
	} else if len(frame.Data) > 0 {
		payload = frame.Data
	}

	var n model.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		m.log.Error("parsing notification frame", slog.String("error", err.Error()))
		return
	}
	m.add(n, OriginSocket)
}

// Push adds a notification obtained outside the socket, e.g. by the REST
// poller. It reports false when a notification with the same id is
// already buffered.
func (m *Manager) Push(n model.Notification) bool {
	return m.add(n, OriginPoll)
}

func (m *Manager) add(n model.Notification, origin string) bool {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedDate.IsZero() {
		n.CreatedDate = time.Now()
	}

	m.mu.Lock()
	for _, existing := range m.notifications {
		if existing.ID == n.ID {
			m.mu.Unlock()
			return false
		}
	}
	buf := make([]model.Notification, 0, BufferSize)
	buf = append(buf, n)
	buf = append(buf, m.notifications...)
	if len(buf) > BufferSize {
		buf = buf[:BufferSize]
	}
	m.notifications = buf

	subs := make([]func(model.Notification), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	m.metrics.NotificationReceived(origin)

	if m.notifier != nil && m.notifier.Permitted() {
		if err := m.notifier.Notify(n); err != nil {
			m.log.Debug("desktop notification failed", slog.String("error", err.Error()))
		}
	}

	for _, fn := range subs {
		fn(n)
	}
	return true
}

// Subscribe registers fn for every new notification and returns a
// function that removes it.
func (m *Manager) Subscribe(fn func(model.Notification)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// Notifications returns a copy of the buffer, newest first.
func (m *Manager) Notifications() []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}

// UnreadCount returns the number of unread buffered notifications.
func (m *Manager) UnreadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead marks notification id as read. It reports whether it was
// found.
func (m *Manager) MarkRead(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id {
			m.notifications[i].Read = true
			return true
		}
	}
	return false
}

// MarkAllRead marks every buffered notification as read.
func (m *Manager) MarkAllRead() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		m.notifications[i].Read = true
	}
}

// Clear empties the buffer.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = nil
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempt returns the reconnect attempt counter.
func (m *Manager) Attempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

// Close tears the manager down: the socket is closed and no reconnect
// is scheduled afterwards.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.closeCh)
	})

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.metrics.SetRealtimeState(string(s), allStates)
}
