package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joltcab/console/internal/model"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type fakeConn struct {
	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	written []interface{}
}

// newFakeConn delivers frames and then reports a dropped connection.
func newFakeConn(frames ...string) *fakeConn {
	c := &fakeConn{
		frames: make(chan []byte, len(frames)),
		closed: make(chan struct{}),
	}
	for _, f := range frames {
		c.frames <- []byte(f)
	}
	close(c.frames)
	return c
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case <-c.closed:
		return 0, nil, errors.New("use of closed connection")
	default:
	}
	f, ok := <-c.frames
	if !ok {
		return 0, nil, errors.New("connection reset by peer")
	}
	return websocket.TextMessage, f, nil
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials int
}

// script queues dial outcomes: nil means a failed dial.
func (d *fakeDialer) script(conns ...*fakeConn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.conns = append(d.conns, conns...)
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.conns) == 0 {
		return nil, errors.New("connection refused")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	if c == nil {
		return nil, errors.New("connection refused")
	}
	return c, nil
}

type scheduled struct {
	attempt int
	delay   time.Duration
}

func newTestManager(opts Options) (*Manager, *[]scheduled) {
	if opts.URL == "" {
		opts.URL = "wss://api.joltcab.com/api/realtime"
	}
	m := New(opts)

	var schedule []scheduled
	m.after = func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
	m.onSchedule = func(attempt int, delay time.Duration) {
		schedule = append(schedule, scheduled{attempt: attempt, delay: delay})
	}
	return m, &schedule
}

func delaysOf(s []scheduled) []time.Duration {
	out := make([]time.Duration, len(s))
	for i, v := range s {
		out[i] = v.delay
	}
	return out
}

func TestDelayFor(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{-1, time.Second},
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{6, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt %d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.want, DelayFor(tt.attempt))
		})
	}
}

func TestBackoffIsMonotonicAndStopsAtCeiling(t *testing.T) {
	dialer := &fakeDialer{}
	m, schedule := newTestManager(Options{Dialer: dialer})

	err := m.Run(context.Background())
	require.ErrorIs(t, err, ErrGaveUp)

	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}, delaysOf(*schedule))

	for i, s := range *schedule {
		assert.Equal(t, i+1, s.attempt)
	}

	assert.Equal(t, DefaultMaxReconnectAttempts, m.Attempt())
	assert.Equal(t, StateTerminated, m.State())
	assert.Equal(t, DefaultMaxReconnectAttempts+1, dialer.dials)
}

func TestBackoffCapsAtThirtySeconds(t *testing.T) {
	dialer := &fakeDialer{}
	m, schedule := newTestManager(Options{Dialer: dialer, MaxReconnectAttempts: 8})

	require.ErrorIs(t, m.Run(context.Background()), ErrGaveUp)

	delays := delaysOf(*schedule)
	require.Len(t, delays, 8)
	for i := 1; i < len(delays); i++ {
		assert.GreaterOrEqual(t, delays[i], delays[i-1])
	}
	assert.Equal(t, 30*time.Second, delays[7])
}

func TestReconnectResetsAfterOpen(t *testing.T) {
	dialer := &fakeDialer{}
	dialer.script(nil, nil, newFakeConn())
	m, schedule := newTestManager(Options{Dialer: dialer})

	require.ErrorIs(t, m.Run(context.Background()), ErrGaveUp)

	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}, delaysOf(*schedule))

	attempts := make([]int, len(*schedule))
	for i, s := range *schedule {
		attempts[i] = s.attempt
	}
	assert.Equal(t, []int{1, 2, 1, 2, 3, 4, 5}, attempts)
}

func TestAuthFrameSentFirst(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{}
	dialer.script(conn)

	m, _ := newTestManager(Options{
		Dialer: dialer,
		Tokens: staticToken("tok"),
		Identity: func(ctx context.Context) (string, error) {
			return "rider@joltcab.com", nil
		},
	})
	require.ErrorIs(t, m.Run(context.Background()), ErrGaveUp)

	require.NotEmpty(t, conn.written)
	assert.Equal(t, authFrame{Type: "auth", Token: "tok", UserEmail: "rider@joltcab.com"}, conn.written[0])
}

func TestAuthFrameWithoutIdentity(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{}
	dialer.script(conn)

	m, _ := newTestManager(Options{
		Dialer: dialer,
		Tokens: staticToken("tok"),
		Identity: func(ctx context.Context) (string, error) {
			return "", errors.New("Unauthorized")
		},
	})
	require.ErrorIs(t, m.Run(context.Background()), ErrGaveUp)

	require.NotEmpty(t, conn.written)
	assert.Equal(t, authFrame{Type: "auth", Token: "tok"}, conn.written[0])
}

func TestNotificationBufferCap(t *testing.T) {
	frames := make([]string, 60)
	for i := range frames {
		frames[i] = fmt.Sprintf(`{"type":"notification","data":{"id":"n-%d","title":"Trip update","message":"m%d"}}`, i, i)
	}

	dialer := &fakeDialer{}
	dialer.script(newFakeConn(frames...))
	m, _ := newTestManager(Options{Dialer: dialer})

	require.ErrorIs(t, m.Run(context.Background()), ErrGaveUp)

	got := m.Notifications()
	require.Len(t, got, BufferSize)
	assert.Equal(t, "n-59", got[0].ID)
	assert.Equal(t, "n-10", got[BufferSize-1].ID)
	assert.Equal(t, BufferSize, m.UnreadCount())
}

func TestParseFailureKeepsConnection(t *testing.T) {
	dialer := &fakeDialer{}
	dialer.script(newFakeConn(
		`{"type":"notification","notification":{"id":"a","title":"Driver arriving"}}`,
		`{not json`,
		`{"type":"presence","data":{"online":3}}`,
		`{"type":"notification","id":"b","title":"Trip completed","message":"Thanks for riding"}`,
	))
	m, _ := newTestManager(Options{Dialer: dialer, MaxReconnectAttempts: 1})

	require.ErrorIs(t, m.Run(context.Background()), ErrGaveUp)

	got := m.Notifications()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "Thanks for riding", got[0].Message)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, 2, dialer.dials)
}

func TestNotificationFrameShapes(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		id      string
		created time.Time
	}{
		{
			name:    "zone-less timestamp",
			frame:   `{"type":"notification","data":{"id":"a","title":"Driver assigned","created_date":"2024-01-15T10:00:00.000000"}}`,
			id:      "a",
			created: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "numeric id",
			frame:   `{"type":"notification","notification":{"id":42,"title":"Payment received","created_date":"2024-01-15T10:00:00Z"}}`,
			id:      "42",
			created: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "offset timestamp",
			frame:   `{"type":"notification","id":"c","title":"Trip completed","created_date":"2024-01-15T12:00:00+02:00"}`,
			id:      "c",
			created: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialer := &fakeDialer{}
			dialer.script(newFakeConn(tt.frame))
			m, _ := newTestManager(Options{Dialer: dialer, MaxReconnectAttempts: 1})

			require.ErrorIs(t, m.Run(context.Background()), ErrGaveUp)

			got := m.Notifications()
			require.Len(t, got, 1)
			assert.Equal(t, tt.id, got[0].ID)
			assert.True(t, tt.created.Equal(got[0].CreatedDate), got[0].CreatedDate)
		})
	}
}

func TestEntryGuard(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "disabled", opts: Options{Disabled: true}},
		{name: "local host", opts: Options{LocalHost: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialer := &fakeDialer{}
			tt.opts.Dialer = dialer
			m, schedule := newTestManager(tt.opts)

			require.ErrorIs(t, m.Run(context.Background()), ErrRealtimeDisabled)
			assert.Zero(t, dialer.dials)
			assert.Empty(t, *schedule)
			assert.Equal(t, StateIdle, m.State())
			assert.False(t, m.Enabled())
		})
	}
}

type recordingNotifier struct {
	permitted bool
	got       []model.Notification
}

func (n *recordingNotifier) Permitted() bool { return n.permitted }

func (n *recordingNotifier) Notify(note model.Notification) error {
	n.got = append(n.got, note)
	return nil
}

func TestBufferOperations(t *testing.T) {
	notifier := &recordingNotifier{permitted: true}
	m := New(Options{URL: "ws://example.test/api/realtime", Notifier: notifier})

	var seen []string
	unsubscribe := m.Subscribe(func(n model.Notification) {
		seen = append(seen, n.ID)
	})

	assert.True(t, m.Push(model.Notification{ID: "1", Title: "one"}))
	assert.True(t, m.Push(model.Notification{ID: "2", Title: "two"}))
	assert.False(t, m.Push(model.Notification{ID: "1", Title: "dup"}))
	assert.Equal(t, []string{"1", "2"}, seen)
	assert.Len(t, notifier.got, 2)

	unsubscribe()
	assert.True(t, m.Push(model.Notification{Title: "no id"}))
	assert.Equal(t, []string{"1", "2"}, seen)

	got := m.Notifications()
	require.Len(t, got, 3)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].CreatedDate.IsZero())

	assert.Equal(t, 3, m.UnreadCount())
	assert.True(t, m.MarkRead("2"))
	assert.False(t, m.MarkRead("missing"))
	assert.Equal(t, 2, m.UnreadCount())

	m.MarkAllRead()
	assert.Zero(t, m.UnreadCount())

	m.Clear()
	assert.Empty(t, m.Notifications())
}

func TestDesktopNotifierWithoutPermission(t *testing.T) {
	notifier := &recordingNotifier{}
	m := New(Options{URL: "ws://example.test/api/realtime", Notifier: notifier})

	m.Push(model.Notification{ID: "1"})
	assert.Empty(t, notifier.got)
	assert.Len(t, m.Notifications(), 1)
}

// newSocketServer starts a realtime endpoint that records the auth frame,
// pushes frames and then holds the connection open until the client
// leaves.
func newSocketServer(t *testing.T, frames ...string) (string, <-chan authFrame) {
	t.Helper()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	auths := make(chan authFrame, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var auth authFrame
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		auths <- auth

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/realtime", auths
}

func TestWebSocketSessionAndCancellation(t *testing.T) {
	url, auths := newSocketServer(t,
		`{"type":"notification","data":{"id":"n-1","title":"Driver assigned"}}`,
		`{"type":"notification","data":{"id":"n-2","title":"Driver arriving"}}`,
	)

	m, schedule := newTestManager(Options{
		URL:    url,
		Dialer: WebSocketDialer{HandshakeTimeout: 5 * time.Second},
		Tokens: staticToken("tok"),
		Identity: func(ctx context.Context) (string, error) {
			return "rider@joltcab.com", nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()

	select {
	case auth := <-auths:
		assert.Equal(t, "auth", auth.Type)
		assert.Equal(t, "tok", auth.Token)
		assert.Equal(t, "rider@joltcab.com", auth.UserEmail)
	case <-time.After(5 * time.Second):
		t.Fatal("no auth frame received")
	}

	require.Eventually(t, func() bool {
		return len(m.Notifications()) == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, StateOpen, m.State())
	assert.Zero(t, m.Attempt())

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Empty(t, *schedule)
	assert.Equal(t, StateClosed, m.State())
}

func TestCloseStopsRun(t *testing.T) {
	url, auths := newSocketServer(t)

	m, schedule := newTestManager(Options{
		URL:    url,
		Dialer: WebSocketDialer{HandshakeTimeout: 5 * time.Second},
	})

	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(context.Background()) }()

	select {
	case <-auths:
	case <-time.After(5 * time.Second):
		t.Fatal("no auth frame received")
	}
	require.Eventually(t, func() bool {
		return m.State() == StateOpen
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Close())

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.Empty(t, *schedule)
}

func TestPermittedNotifierMirrorsFrames(t *testing.T) {
	notifier := &recordingNotifier{permitted: true}
	dialer := &fakeDialer{}
	dialer.script(newFakeConn(
		`{"type":"notification","data":{"id":"n-1","title":"Driver arriving","message":"Blue sedan, 2 min"}}`,
	))
	m, _ := newTestManager(Options{Dialer: dialer, Notifier: notifier, MaxReconnectAttempts: 1})

	require.ErrorIs(t, m.Run(context.Background()), ErrGaveUp)

	require.Len(t, notifier.got, 1)
	assert.Equal(t, "n-1", notifier.got[0].ID)
	assert.Equal(t, "Blue sedan, 2 min", notifier.got[0].Message)
}

func TestTerminalNotifier(t *testing.T) {
	var buf strings.Builder
	n := NewTerminalNotifier(&buf, true)
	require.True(t, n.Permitted())

	require.NoError(t, n.Notify(model.Notification{Title: "Trip; update", Message: "Driver\x1b]arrived\n"}))
	assert.Equal(t, "\x1b]777;notify;Trip, update;Driver ]arrived\x1b\\", buf.String())

	buf.Reset()
	require.NoError(t, n.Notify(model.Notification{Message: "hello"}))
	assert.Equal(t, "\x1b]777;notify;JoltCab;hello\x1b\\", buf.String())

	assert.False(t, NewTerminalNotifier(&buf, false).Permitted())
}

func TestDisabledTerminalNotifierStaysSilent(t *testing.T) {
	var buf strings.Builder
	m := New(Options{
		URL:      "ws://example.test/api/realtime",
		Notifier: NewTerminalNotifier(&buf, false),
	})

	m.Push(model.Notification{ID: "1", Title: "Trip booked"})
	assert.Empty(t, buf.String())
}
