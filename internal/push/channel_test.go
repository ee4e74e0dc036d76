package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/model"
)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	done    bool
	delayed time.Duration
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f, delayed: d}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []func()
	for _, t := range c.timers {
		if !t.done && t.at <= c.now {
			t.done = true
			due = append(due, t.f)
		}
	}
	c.mu.Unlock()
	for _, f := range due {
		go f()
	}
}

func (c *fakeClock) Pending() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, t := range c.timers {
		if !t.done {
			out = append(out, t.delayed)
		}
	}
	return out
}

// wsServer is a push endpoint whose per-connection behavior is set by the
// test.
type wsServer struct {
	*httptest.Server
	connects atomic.Int32
}

func newWSServer(t *testing.T, serve func(conn *websocket.Conn)) *wsServer {
	t.Helper()
	upgrader := websocket.Upgrader{}
	s := &wsServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.connects.Add(1)
		serve(conn)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) socketURL(t *testing.T) string {
	t.Helper()
	u, err := URLFor(s.URL, "/ws")
	require.NoError(t, err)
	return u
}

// holdOpen keeps the connection until the client goes away.
func holdOpen(conn *websocket.Conn) {
	defer conn.Close()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

const waitFor = 2 * time.Second
const tick = 10 * time.Millisecond

func TestChannelDeliversEventsAndDropsMalformed(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"exploded","board_id":"alpha"}`))
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"card_updated","board_id":"alpha","timestamp":"2026-01-02T03:04:05Z"}`))
		holdOpen(conn)
	})

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	var mu sync.Mutex
	var got []model.PushEvent
	ch := New(srv.socketURL(t), WithClock(&fakeClock{}), WithLogger(logger))
	ch.SetHandler(func(ev model.PushEvent) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})
	ch.Start()
	t.Cleanup(func() { ch.Close() })

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, waitFor, tick)

	assert.Equal(t, StateOpen, ch.State())
	mu.Lock()
	assert.Equal(t, model.EventCardUpdated, got[0].Type)
	assert.Equal(t, "alpha", got[0].BoardID)
	mu.Unlock()

	dropped := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "dropping push message" {
			dropped++
		}
	}
	assert.Equal(t, 2, dropped)
}

func TestChannelUsesLatestHandler(t *testing.T) {
	send := make(chan struct{})
	srv := newWSServer(t, func(conn *websocket.Conn) {
		<-send
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"board_updated","board_id":"b1","timestamp":"2026-01-02T03:04:05Z"}`))
		holdOpen(conn)
	})

	var first, second atomic.Int32
	ch := New(srv.socketURL(t), WithClock(&fakeClock{}))
	ch.SetHandler(func(model.PushEvent) { first.Add(1) })
	ch.Start()
	t.Cleanup(func() { ch.Close() })

	require.Eventually(t, func() bool { return ch.State() == StateOpen }, waitFor, tick)
	ch.SetHandler(func(model.PushEvent) { second.Add(1) })
	close(send)

	require.Eventually(t, func() bool { return second.Load() == 1 }, waitFor, tick)
	assert.Zero(t, first.Load())
}

func TestChannelReconnectsOnceAfterDelay(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn) {
		conn.Close()
	})

	clock := &fakeClock{}
	ch := New(srv.socketURL(t), WithClock(clock))
	ch.Start()
	t.Cleanup(func() { ch.Close() })

	require.Eventually(t, func() bool {
		return ch.State() == StateClosed && len(clock.Pending()) == 1
	}, waitFor, tick)
	assert.Equal(t, []time.Duration{DefaultReconnectDelay}, clock.Pending())
	assert.EqualValues(t, 1, srv.connects.Load())

	clock.Advance(DefaultReconnectDelay - time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, srv.connects.Load(), "reconnected before the delay elapsed")

	clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return srv.connects.Load() == 2 }, waitFor, tick)

	// The second connection is also closed by the server, so exactly one
	// new attempt is pending again.
	require.Eventually(t, func() bool { return len(clock.Pending()) == 1 }, waitFor, tick)
}

func TestChannelNoReconnectAfterTeardown(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn) {
		conn.Close()
	})

	clock := &fakeClock{}
	ch := New(srv.socketURL(t), WithClock(clock))
	ch.Start()

	require.Eventually(t, func() bool {
		return ch.State() == StateClosed && len(clock.Pending()) == 1
	}, waitFor, tick)

	require.NoError(t, ch.Close())
	assert.Empty(t, clock.Pending(), "teardown must cancel the pending reconnect")

	clock.Advance(10 * DefaultReconnectDelay)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, srv.connects.Load())
	assert.Equal(t, StateClosed, ch.State())

	// Closing again is a no-op.
	require.NoError(t, ch.Close())
}

func TestChannelTeardownWhileOpen(t *testing.T) {
	srv := newWSServer(t, holdOpen)

	clock := &fakeClock{}
	var delivered atomic.Int32
	ch := New(srv.socketURL(t), WithClock(clock))
	ch.SetHandler(func(model.PushEvent) { delivered.Add(1) })
	ch.Start()

	require.Eventually(t, func() bool { return ch.State() == StateOpen }, waitFor, tick)
	require.NoError(t, ch.Close())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateClosed, ch.State())
	assert.Empty(t, clock.Pending())
	assert.Zero(t, delivered.Load())
}

// scriptedConn yields queued messages. Closing it does not unblock a
// pending read, like a socket whose close is slow to take effect.
type scriptedConn struct {
	msgs   chan []byte
	closed atomic.Bool
}

func (c *scriptedConn) ReadMessage() (int, []byte, error) {
	return websocket.TextMessage, <-c.msgs, nil
}

func (c *scriptedConn) Close() error {
	c.closed.Store(true)
	return nil
}

type scriptedDialer struct{ conn *scriptedConn }

func (d scriptedDialer) Dial(ctx context.Context, url string) (Conn, error) {
	return d.conn, nil
}

func TestChannelCloseWaitsForDeliveryAndStopsIt(t *testing.T) {
	conn := &scriptedConn{msgs: make(chan []byte, 4)}
	ch := New("ws://board.test/ws", WithDialer(scriptedDialer{conn}), WithClock(&fakeClock{}))

	entered := make(chan struct{})
	release := make(chan struct{})
	var delivered atomic.Int32
	ch.SetHandler(func(model.PushEvent) {
		if delivered.Add(1) == 1 {
			close(entered)
			<-release
		}
	})
	ch.Start()

	event := []byte(`{"type":"card_updated","board_id":"alpha"}`)
	conn.msgs <- event
	<-entered

	closeDone := make(chan struct{})
	go func() {
		assert.NoError(t, ch.Close())
		close(closeDone)
	}()

	select {
	case <-closeDone:
		t.Fatal("Close returned while a notification was being delivered")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-closeDone:
	case <-time.After(waitFor):
		t.Fatal("Close did not return after delivery finished")
	}
	assert.True(t, conn.closed.Load())

	conn.msgs <- event
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, delivered.Load(), "notification delivered after teardown")
}

func TestChannelDialFailureSchedulesReconnect(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url, err := URLFor(srv.URL, "/ws")
	require.NoError(t, err)
	srv.Close()

	clock := &fakeClock{}
	ch := New(url, WithClock(clock), WithReconnectDelay(5*time.Second))
	ch.Start()
	t.Cleanup(func() { ch.Close() })

	require.Eventually(t, func() bool {
		return ch.State() == StateClosed && len(clock.Pending()) == 1
	}, waitFor, tick)
	assert.Equal(t, []time.Duration{5 * time.Second}, clock.Pending())
}

func TestChannelReportsStateChanges(t *testing.T) {
	srv := newWSServer(t, holdOpen)

	ch := New(srv.socketURL(t), WithClock(&fakeClock{}))
	ch.Start()

	select {
	case s := <-ch.StateChanges():
		assert.Equal(t, StateOpen, s)
	case <-time.After(waitFor):
		t.Fatal("no state change reported")
	}

	require.NoError(t, ch.Close())
	select {
	case s := <-ch.StateChanges():
		assert.Equal(t, StateClosed, s)
	case <-time.After(waitFor):
		t.Fatal("no close reported")
	}
}

func TestURLFor(t *testing.T) {
	tests := []struct {
		base    string
		path    string
		want    string
		wantErr bool
	}{
		{"http://localhost:8080", "/ws", "ws://localhost:8080/ws", false},
		{"https://boards.example.com/", "ws", "wss://boards.example.com/ws", false},
		{"https://boards.example.com/app?x=1", "", "wss://boards.example.com/ws", false},
		{"ftp://boards.example.com", "/ws", "", true},
		{"localhost:8080", "/ws", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := URLFor(tt.base, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.True(t, strings.HasPrefix(StateClosed.String(), "closed"))
}
