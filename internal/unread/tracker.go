// Package unread keeps the unread-message badge count of the logged-in user.
//
// The count has two writers: a full refresh that recomputes it from the
// backend's conversation list, and the chat socket, which increments it for
// every counterpart message. Both go through the Tracker's mutex as pure
// functions of the previous value.
package unread

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/resort/internal/auth"
	"github.com/matheus3301/resort/internal/bus"
	"github.com/matheus3301/resort/internal/chat"
	"github.com/matheus3301/resort/internal/status"
	"go.uber.org/zap"
)

// ErrNoSession is returned when the badge is used without a logged-in user.
var ErrNoSession = errors.New("unread: no active session")

// Fetcher loads every conversation of a user.
type Fetcher interface {
	UserChats(ctx context.Context, userID string) ([]chat.Conversation, error)
}

// Transport is the live chat connection. Connect returns nil once the
// connection is joined.
type Transport interface {
	Connect(ctx context.Context, userID string, role chat.Role) error
	Disconnect()
	OnMessage(fn func(chat.LiveMessage)) (unsubscribe func())
	OnMessageRead(fn func()) (unsubscribe func())
	OnConnectionChange(fn func(up bool)) (unsubscribe func())
}

// Options tunes the background work of a session.
type Options struct {
	// RefreshInterval triggers a periodic full refresh. Zero disables it.
	RefreshInterval time.Duration
	// ConnectBackoff is the first retry delay after a failed connect.
	ConnectBackoff time.Duration
	// ConnectBackoffMax caps the retry delay.
	ConnectBackoffMax time.Duration
}

const (
	defaultConnectBackoff    = time.Second
	defaultConnectBackoffMax = 30 * time.Second
)

// Tracker owns the unread count for at most one session at a time.
type Tracker struct {
	fetcher   Fetcher
	transport Transport
	machine   *status.Machine
	bus       *bus.Bus
	logger    *zap.Logger
	opts      Options

	// lifecycle serializes Login and Logout across their transport teardown,
	// so a Disconnect of an ended session never lands on its successor.
	lifecycle sync.Mutex

	mu   sync.Mutex
	sess *session
}

// session is the per-login state. Work started for a session checks that it
// is still the tracker's current session before writing anything.
type session struct {
	id      auth.Identity
	ctx     context.Context
	cancel  context.CancelFunc
	started time.Time

	count      int
	refreshed  bool
	subscribed bool
	unsubs     []func()
}

// NewTracker creates a tracker. transport may be nil, in which case sessions
// run on refreshes alone.
func NewTracker(fetcher Fetcher, transport Transport, machine *status.Machine, b *bus.Bus, logger *zap.Logger, opts Options) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ConnectBackoff <= 0 {
		opts.ConnectBackoff = defaultConnectBackoff
	}
	if opts.ConnectBackoffMax < opts.ConnectBackoff {
		opts.ConnectBackoffMax = max(defaultConnectBackoffMax, opts.ConnectBackoff)
	}
	return &Tracker{
		fetcher:   fetcher,
		transport: transport,
		machine:   machine,
		bus:       b,
		logger:    logger,
		opts:      opts,
	}
}

// Login starts a session for id: one initial refresh and, concurrently, the
// live subscription. Logging in as the identity that is already active is a
// no-op; any other active session is ended first.
func (t *Tracker) Login(id auth.Identity) error {
	if id.UserID == "" {
		return fmt.Errorf("unread: user id is required")
	}
	if id.Role == "" {
		id.Role = chat.RoleCustomer
	}
	if !id.Role.Valid() {
		return fmt.Errorf("unread: invalid role %q", id.Role)
	}

	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.mu.Lock()
	var cleanup func()
	if t.sess != nil {
		if t.sess.id == id {
			t.mu.Unlock()
			return nil
		}
		cleanup = t.endLocked()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{id: id, ctx: ctx, cancel: cancel, started: time.Now()}
	t.sess = s
	_ = t.machine.Transition(status.Syncing)
	if t.transport != nil {
		s.unsubs = []func(){
			t.transport.OnMessage(func(m chat.LiveMessage) { t.onMessage(s, m) }),
			t.transport.OnMessageRead(func() { t.onRead(s) }),
			t.transport.OnConnectionChange(func(up bool) { t.onConnectionChange(s, up) }),
		}
	}
	t.mu.Unlock()

	if cleanup != nil {
		cleanup()
	}

	t.logger.Info("unread session started",
		zap.String("user_id", id.UserID),
		zap.String("role", string(id.Role)))

	go func() { _ = t.refresh(ctx, s, "initial") }()
	if t.transport != nil {
		go t.connect(s)
	} else {
		t.mu.Lock()
		if t.sess == s {
			t.machine.TransitionIf(status.Degraded, status.Syncing)
		}
		t.mu.Unlock()
	}
	if t.opts.RefreshInterval > 0 {
		go t.poll(s)
	}
	return nil
}

// Logout ends the active session: handlers are removed, in-flight work is
// cancelled and the count is discarded. It is a no-op without a session.
func (t *Tracker) Logout() {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.mu.Lock()
	if t.sess == nil {
		t.mu.Unlock()
		return
	}
	cleanup := t.endLocked()
	t.mu.Unlock()
	cleanup()
}

// endLocked detaches the current session and returns the part of the
// teardown that must run without t.mu held.
func (t *Tracker) endLocked() func() {
	s := t.sess
	t.sess = nil
	s.cancel()
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	if s.count != 0 {
		t.publishChange(s, s.count, 0, CauseLogout)
	}
	s.count = 0
	t.machine.Reset()

	t.logger.Info("unread session ended", zap.String("user_id", s.id.UserID))
	return func() {
		if t.transport != nil {
			t.transport.Disconnect()
		}
	}
}

// Count returns the current count, or 0 without a session. It never blocks
// on network work.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess == nil {
		return 0
	}
	return t.sess.count
}

// State returns the lifecycle state of the current session.
func (t *Tracker) State() status.State {
	return t.machine.Current()
}

// Identity returns the identity of the active session.
func (t *Tracker) Identity() (auth.Identity, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess == nil {
		return auth.Identity{}, false
	}
	return t.sess.id, true
}

// Since returns when the active session started.
func (t *Tracker) Since() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess == nil {
		return time.Time{}, false
	}
	return t.sess.started, true
}

// Session returns a handle bound to the active session.
func (t *Tracker) Session() (*Badge, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess == nil {
		return nil, ErrNoSession
	}
	return &Badge{t: t, s: t.sess}, nil
}

// update applies fn to the count of s. It reports false when s has ended.
func (t *Tracker) update(s *session, fn func(prev int) int, cause Cause) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess != s {
		return false
	}
	prev := s.count
	next := max(fn(prev), 0)
	s.count = next
	if next != prev {
		t.publishChange(s, prev, next, cause)
	}
	return true
}

// refresh recomputes the count of s from the backend. The result is dropped
// when s has ended by the time the fetch resolves; on failure the count is
// left unchanged.
func (t *Tracker) refresh(ctx context.Context, s *session, reason string) error {
	convs, err := t.fetcher.UserChats(ctx, s.id.UserID)
	if err != nil {
		if ctx.Err() == nil {
			t.logger.Warn("unread refresh failed",
				zap.String("user_id", s.id.UserID),
				zap.String("reason", reason),
				zap.Error(err))
		}
		return err
	}
	total := chat.TotalUnread(convs, s.id.Role.Counterpart())

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess != s {
		t.logger.Debug("discarding refresh of ended session", zap.String("user_id", s.id.UserID))
		return ErrNoSession
	}
	prev := s.count
	s.count = total
	s.refreshed = true
	t.maybeLiveLocked(s)

	if t.bus != nil {
		t.bus.Publish(bus.Event{
			Kind: bus.KindUnreadRefreshed,
			Payload: Snapshot{
				UserID:        s.id.UserID,
				Role:          s.id.Role,
				Conversations: convs,
				Count:         total,
				At:            time.Now(),
			},
		})
	}
	if total != prev {
		t.publishChange(s, prev, total, CauseRefresh)
	}
	t.logger.Debug("unread refreshed",
		zap.String("user_id", s.id.UserID),
		zap.String("reason", reason),
		zap.Int("conversations", len(convs)),
		zap.Int("count", total))
	return nil
}

// connect joins the live transport, retrying with exponential backoff until
// it succeeds or the session ends. Failures leave the session DEGRADED.
func (t *Tracker) connect(s *session) {
	wait := t.opts.ConnectBackoff
	for {
		err := t.transport.Connect(s.ctx, s.id.UserID, s.id.Role)
		if err == nil {
			break
		}
		if s.ctx.Err() != nil {
			return
		}
		t.logger.Warn("chat socket unavailable, running on refreshes",
			zap.String("user_id", s.id.UserID),
			zap.Duration("retry_in", wait),
			zap.Error(err))
		t.mu.Lock()
		if t.sess == s {
			t.machine.TransitionIf(status.Degraded, status.Syncing)
		}
		t.mu.Unlock()

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(wait):
		}
		wait = min(wait*2, t.opts.ConnectBackoffMax)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess != s {
		return
	}
	s.subscribed = true
	t.maybeLiveLocked(s)
}

func (t *Tracker) poll(s *session) {
	ticker := time.NewTicker(t.opts.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.ctx.Err() != nil {
				return
			}
			_ = t.refresh(s.ctx, s, "periodic")
		}
	}
}

// maybeLiveLocked moves to LIVE once s has both refreshed and subscribed.
func (t *Tracker) maybeLiveLocked(s *session) {
	if s.refreshed && s.subscribed {
		t.machine.TransitionIf(status.Live, status.Syncing, status.Degraded)
	}
}

func (t *Tracker) onMessage(s *session, m chat.LiveMessage) {
	t.mu.Lock()
	active := t.sess == s
	t.mu.Unlock()
	if !active {
		return
	}
	if t.bus != nil {
		t.bus.Publish(bus.Event{
			Kind:    bus.KindUnreadMessage,
			Payload: LiveEvent{UserID: s.id.UserID, Role: s.id.Role, Message: m},
		})
	}
	if m.Sender != s.id.Role.Counterpart() {
		return
	}
	t.update(s, func(n int) int { return n + 1 }, CauseLiveMessage)
}

func (t *Tracker) onRead(s *session) {
	go func() { _ = t.refresh(s.ctx, s, "read_receipt") }()
}

func (t *Tracker) onConnectionChange(s *session, up bool) {
	t.mu.Lock()
	if t.sess != s {
		t.mu.Unlock()
		return
	}
	s.subscribed = up
	if up {
		t.maybeLiveLocked(s)
	} else {
		t.machine.TransitionIf(status.Degraded, status.Live, status.Syncing)
	}
	t.mu.Unlock()

	if up {
		// Messages may have arrived while the socket was down.
		go func() { _ = t.refresh(s.ctx, s, "reconnect") }()
	}
}

func (t *Tracker) publishChange(s *session, from, to int, cause Cause) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(bus.Event{
		Kind: bus.KindUnreadChanged,
		Payload: CountChange{
			UserID: s.id.UserID,
			From:   from,
			To:     to,
			Cause:  cause,
		},
	})
}
