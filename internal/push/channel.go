// Package push keeps a persistent WebSocket connection to the board service
// and hands change notifications to a consumer. The connection lifecycle is
// an explicit state machine: Connecting -> Open -> Closed -> Connecting, with
// a fixed delay before every reconnect.
package push

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/taskboard/internal/model"
)

// State is the lifecycle state of a Channel.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DefaultReconnectDelay is the fixed wait between a close and the next
// connection attempt.
const DefaultReconnectDelay = 3 * time.Second

// Handler receives parsed push notifications.
type Handler func(model.PushEvent)

// Conn is the subset of a WebSocket connection the channel reads from.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	Close() error
}

// Dialer opens a Conn to a socket URL.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. It exists so reconnect timing can be driven
// deterministically in tests.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Channel is a self-healing push connection. It is safe for concurrent use.
type Channel struct {
	url    string
	dialer Dialer
	clock  Clock
	delay  time.Duration
	log    logrus.FieldLogger

	stateCh chan State

	// deliverMu is held while a notification is handed to the handler.
	deliverMu sync.Mutex

	mu      sync.Mutex
	state   State
	handler Handler
	conn    Conn
	timer   Timer
	active  bool
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures a Channel.
type Option func(*Channel)

// WithDialer replaces the WebSocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Channel) { c.dialer = d }
}

// WithClock replaces the scheduler used for reconnect delays.
func WithClock(clk Clock) Option {
	return func(c *Channel) { c.clock = clk }
}

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Channel) { c.log = l }
}

// New creates a channel for the socket at url. It does not connect until
// Start is called.
func New(url string, opts ...Option) *Channel {
	l := logrus.New()
	l.SetOutput(io.Discard)

	c := &Channel{
		url:     url,
		dialer:  NewWebsocketDialer(nil),
		clock:   realClock{},
		delay:   DefaultReconnectDelay,
		log:     l,
		stateCh: make(chan State, 16),
		state:   StateConnecting,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "push")
	return c
}

// SetHandler registers the notification handler. The most recently set
// handler receives every later notification, including those on
// connections opened after a reconnect.
func (c *Channel) SetHandler(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StateChanges returns a channel of state transitions. Transitions are
// dropped when the reader falls behind; State always reports the latest.
func (c *Channel) StateChanges() <-chan State {
	return c.stateCh
}

// Start begins the connect loop. Calling Start more than once, or after
// Close, has no effect.
func (c *Channel) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.active = true
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	go c.connect()
}

// Close tears the channel down. It waits for a notification being
// delivered to return; no reconnect is attempted and no notification is
// delivered afterwards. Closing twice is a no-op. The handler must not
// call Close.
func (c *Channel) Close() error {
	c.mu.Lock()
	if !c.active {
		c.started = true
		c.mu.Unlock()
		return nil
	}
	c.active = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	conn := c.conn
	c.conn = nil
	c.setState(StateClosed)
	c.mu.Unlock()

	c.deliverMu.Lock()
	c.deliverMu.Unlock()

	c.log.Debug("push channel torn down")
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// connect performs one connection attempt and, on success, reads until the
// connection fails.
func (c *Channel) connect() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.setState(StateConnecting)
	ctx := c.ctx
	c.mu.Unlock()

	conn, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		c.log.WithError(err).WithField("url", c.url).Debug("push dial failed")
		c.closed(nil)
		return
	}

	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.setState(StateOpen)
	c.mu.Unlock()

	c.log.WithField("url", c.url).Info("push channel open")
	c.readLoop(conn)
}

func (c *Channel) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.log.WithError(err).Debug("push connection lost")
			c.closed(conn)
			return
		}

		ev, err := model.ParsePushEvent(data)
		if err != nil {
			c.log.WithError(err).Debug("dropping push message")
			continue
		}

		if !c.deliver(ev) {
			return
		}
	}
}

// deliver hands ev to the current handler unless the channel was torn
// down. It reports whether the channel is still active.
func (c *Channel) deliver(ev model.PushEvent) bool {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	active, h := c.active, c.handler
	c.mu.Unlock()

	if !active {
		return false
	}
	if h != nil {
		h(ev)
	}
	return true
}

// closed moves the channel to Closed and, while the session is active,
// schedules the next connection attempt.
func (c *Channel) closed(conn Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conn != nil && c.conn == conn {
		c.conn = nil
		conn.Close()
	}
	if c.state == StateClosed {
		return
	}
	c.setState(StateClosed)
	if !c.active {
		return
	}
	c.timer = c.clock.AfterFunc(c.delay, c.connect)
	c.log.WithField("delay", c.delay).Debug("push reconnect scheduled")
}

// setState must be called with c.mu held.
func (c *Channel) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	select {
	case c.stateCh <- s:
	default:
	}
}
