package chatsock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/matheus3301/resort/internal/chat"
	"go.uber.org/zap"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 90 * time.Second
	heartbeatInterval = 30 * time.Second
	handshakeTimeout  = 10 * time.Second
	maxMessageSize    = 64 * 1024

	defaultMinBackoff = time.Second
	defaultMaxBackoff = 30 * time.Second
)

// ErrClosed is returned by Connect after Close.
var ErrClosed = errors.New("chatsock: client closed")

// Client is a reconnecting chat socket client. Handlers run sequentially on
// the read goroutine, in frame order.
type Client struct {
	url       string
	header    http.Header
	dialer    *websocket.Dialer
	logger    *zap.Logger
	heartbeat time.Duration
	minWait   time.Duration
	maxWait   time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	cancel   context.CancelFunc
	closed   bool
	nextID   int
	onMsg    map[int]func(chat.LiveMessage)
	onRead   map[int]func()
	onChange map[int]func(bool)

	writeMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends the bearer token on the websocket handshake.
func WithToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// SetToken replaces the bearer token sent on later handshakes.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.header = http.Header{}
	if token != "" {
		c.header.Set("Authorization", "Bearer "+token)
	}
}

// WithBackoff overrides the reconnect backoff bounds.
func WithBackoff(minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.minWait = minWait
		c.maxWait = maxWait
	}
}

// WithHeartbeat overrides the heartbeat interval.
func WithHeartbeat(d time.Duration) Option {
	return func(c *Client) { c.heartbeat = d }
}

// New creates a client for the socket at url (ws:// or wss://).
func New(url string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		url:       url,
		header:    http.Header{},
		dialer:    &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		logger:    logger,
		heartbeat: heartbeatInterval,
		minWait:   defaultMinBackoff,
		maxWait:   defaultMaxBackoff,
		onMsg:     make(map[int]func(chat.LiveMessage)),
		onRead:    make(map[int]func()),
		onChange:  make(map[int]func(bool)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the socket and joins as userID/role. It returns once the
// server acknowledged the join. A previous connection is replaced.
func (c *Client) Connect(ctx context.Context, userID string, role chat.Role) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	conn, err := c.join(ctx, userID, role)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		_ = conn.Close()
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		c.mu.Unlock()
		cancel()
		_ = conn.Close()
		return err
	}
	if c.cancel != nil {
		c.cancel()
	}
	old := c.conn
	c.conn = conn
	c.cancel = cancel
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	go c.run(runCtx, conn, userID, role)
	return nil
}

// connected reports whether a joined connection is currently up.
func (c *Client) connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// OnMessage registers a handler for incoming messages.
func (c *Client) OnMessage(fn func(chat.LiveMessage)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.onMsg[id] = fn
	return c.remover(func() { delete(c.onMsg, id) })
}

// OnMessageRead registers a handler for read receipts.
func (c *Client) OnMessageRead(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.onRead[id] = fn
	return c.remover(func() { delete(c.onRead, id) })
}

// OnConnectionChange registers a handler called with false when an
// established connection drops and with true once it has been re-joined.
func (c *Client) OnConnectionChange(fn func(up bool)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.onChange[id] = fn
	return c.remover(func() { delete(c.onChange, id) })
}

func (c *Client) remover(del func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			del()
			c.mu.Unlock()
		})
	}
}

// Disconnect drops the current connection without closing the client.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn, cancel := c.conn, c.cancel
	c.conn, c.cancel = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		c.closeConn(conn)
	}
}

// Close disconnects and makes further Connect calls fail.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.Disconnect()
	return nil
}

func (c *Client) closeConn(conn *websocket.Conn) {
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()
	_ = conn.Close()
}

// join dials and performs the join handshake.
func (c *Client) join(ctx context.Context, userID string, role chat.Role) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	c.mu.Lock()
	header := c.header
	c.mu.Unlock()
	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial chat socket: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial chat socket: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	conn.SetReadLimit(maxMessageSize)
	connID := uuid.NewString()
	evt, err := newEvent(OpJoin, JoinData{UserID: userID, Role: string(role), ConnectionID: connID})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := c.write(conn, evt); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send join: %w", err)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			if ctx.Err() != nil {
				return nil, fmt.Errorf("join handshake: %w", ctx.Err())
			}
			return nil, fmt.Errorf("join handshake: %w", err)
		}
		var in Event
		if err := json.Unmarshal(raw, &in); err != nil {
			continue
		}
		switch in.Op {
		case OpReady:
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			c.logger.Info("chat socket joined",
				zap.String("user_id", userID),
				zap.String("role", string(role)),
				zap.String("connection_id", connID))
			return conn, nil
		case OpJoinError:
			var data JoinErrorData
			_ = json.Unmarshal(in.Data, &data)
			_ = conn.Close()
			return nil, fmt.Errorf("join rejected: %s", data.Reason)
		}
	}
}

// run serves conn and re-joins after unexpected drops until ctx is cancelled.
func (c *Client) run(ctx context.Context, conn *websocket.Conn, userID string, role chat.Role) {
	wait := c.minWait
	for {
		err := c.serve(ctx, conn)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("chat socket dropped", zap.Error(err))
		c.swapConn(conn, nil)
		c.notifyChange(false)

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			next, err := c.join(ctx, userID, role)
			if err != nil {
				c.logger.Warn("chat socket reconnect failed", zap.Error(err), zap.Duration("backoff", wait))
				wait = min(wait*2, c.maxWait)
				continue
			}
			if ctx.Err() != nil {
				_ = next.Close()
				return
			}
			conn = next
			wait = c.minWait
			c.swapConn(nil, conn)
			c.notifyChange(true)
			break
		}
	}
}

func (c *Client) swapConn(old, next *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == old {
		c.conn = next
	}
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go c.heartbeatLoop(conn, done)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			c.logger.Warn("invalid chat socket frame", zap.Error(err))
			continue
		}
		c.dispatch(evt)
	}
}

func (c *Client) heartbeatLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.write(conn, Event{Op: OpHeartbeat}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (c *Client) write(conn *websocket.Conn, evt Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(evt)
}

func (c *Client) dispatch(evt Event) {
	switch evt.Op {
	case OpNewMessage:
		var data MessageData
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			c.logger.Warn("invalid new_message payload", zap.Error(err))
			return
		}
		msg := data.live()
		for _, fn := range c.messageHandlers() {
			fn(msg)
		}
	case OpMessagesRead:
		for _, fn := range c.readHandlers() {
			fn()
		}
	case OpHeartbeatAck, OpReady:
	default:
		c.logger.Debug("unknown chat socket op", zap.String("op", evt.Op))
	}
}

func (c *Client) messageHandlers() []func(chat.LiveMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]func(chat.LiveMessage), 0, len(c.onMsg))
	for _, fn := range c.onMsg {
		out = append(out, fn)
	}
	return out
}

func (c *Client) readHandlers() []func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]func(), 0, len(c.onRead))
	for _, fn := range c.onRead {
		out = append(out, fn)
	}
	return out
}

func (c *Client) notifyChange(up bool) {
	c.mu.Lock()
	fns := make([]func(bool), 0, len(c.onChange))
	for _, fn := range c.onChange {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(up)
	}
}
