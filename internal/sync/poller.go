package sync

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joltcab/console/internal/api"
	"github.com/joltcab/console/internal/logger"
	"github.com/joltcab/console/internal/model"
)

// SyncState represents the current state of the poller.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// SyncStatus is a snapshot of the poller.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a poll completes.
type SyncResultMsg struct {
	NewCount  int
	Error     error
	AuthError *AuthErrorMsg
}

// AuthErrorMsg is a tea.Msg sent when the backend rejects the session.
type AuthErrorMsg struct {
	Message string
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// defaultInterval is used when no poll interval is configured.
const defaultInterval = 30 * time.Second

// Lister fetches notifications over REST.
type Lister interface {
	List(ctx context.Context, params api.Params) ([]model.Notification, error)
}

// Sink receives notifications not seen before. Push reports whether the
// notification was added.
type Sink interface {
	Push(n model.Notification) bool
}

// Poller periodically fetches the notification list and feeds unseen
// records into the sink. It is the fallback when realtime is disabled.
type Poller struct {
	lister   Lister
	sink     Sink
	interval time.Duration
	log      *logger.Logger

	resultCh  chan SyncResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      gosync.Mutex
	running bool
	status  SyncStatus
	seen    map[string]bool
}

// New creates a Poller.
func New(
	lister Lister,
	sink Sink,
	interval time.Duration,
	log *logger.Logger,
) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Poller{
		lister:    lister,
		sink:      sink,
		interval:  interval,
		log:       log.WithComponent("poller"),
		resultCh:  make(chan SyncResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		seen:      make(map[string]bool),
	}
}

// Start returns a tea.Cmd that starts the polling goroutine and waits
// for the first result.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop(context.Background())

	return p.waitForResult()
}

// Run polls until ctx is cancelled or Stop is called.
func (p *Poller) Run(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	p.loop(ctx)
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Refresh triggers an immediate poll.
func (p *Poller) Refresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A refresh is already pending.
	}
	return nil
}

// Status returns the current poller status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Results exposes the result channel for non-TUI callers.
func (p *Poller) Results() <-chan SyncResultMsg {
	return p.resultCh
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.poll(ctx)
		case <-p.triggerCh:
			p.poll(ctx)
		}
	}
}

// poll performs a single fetch, pushes unseen notifications oldest first
// so the newest ends up on top, and sends a SyncResultMsg.
func (p *Poller) poll(ctx context.Context) {
	p.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	notes, err := p.lister.List(ctx, nil)
	if err != nil {
		p.setStatus(SyncError, err)
		p.log.Warn("notification poll failed", slog.String("error", err.Error()))

		if api.IsUnauthorized(err) {
			p.sendResult(SyncResultMsg{
				Error: err,
				AuthError: &AuthErrorMsg{
					Message: "session expired. Run 'joltcab login' to sign in again.",
				},
			})
			return
		}

		p.sendResult(SyncResultMsg{Error: err})
		return
	}

	newCount := 0
	for i := len(notes) - 1; i >= 0; i-- {
		n := notes[i]

		p.mu.Lock()
		known := n.ID != "" && p.seen[n.ID]
		if n.ID != "" {
			p.seen[n.ID] = true
		}
		p.mu.Unlock()

		if known {
			continue
		}
		if p.sink.Push(n) {
			newCount++
		}
	}

	p.setStatus(SyncIdle, nil)
	p.sendResult(SyncResultMsg{NewCount: newCount})
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// waitForResult returns a tea.Cmd that waits for the next result from
// the result channel.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll result.
// Call it after handling a SyncResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
