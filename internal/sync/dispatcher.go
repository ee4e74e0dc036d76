package sync

import (
	"context"
	"io"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/nhle/taskboard/internal/model"
)

// refreshTimeout is the maximum time allowed for the refreshes triggered by
// a single push notification.
const refreshTimeout = 30 * time.Second

// PushHandler reacts to a push notification. *Engine implements it.
type PushHandler interface {
	OnPushNotification(ctx context.Context, ev model.PushEvent) error
}

// EventRecorder keeps a log of received notifications.
type EventRecorder interface {
	RecordEvent(ctx context.Context, ev model.PushEvent) error
}

// RefreshResultMsg is a tea.Msg sent after a push-triggered refresh.
type RefreshResultMsg struct {
	Event model.PushEvent
	Error error
}

// Dispatcher moves push notifications off the socket reader. Notify never
// blocks; pending notifications for the same board coalesce into one, and
// board_updated wins over card_updated.
type Dispatcher struct {
	handler  PushHandler
	recorder EventRecorder
	log      logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu        gosync.Mutex
	pending   map[string]model.PushEvent
	order     []string
	unlogged  []model.PushEvent
	running   bool
	stopped   bool
	triggerCh chan struct{}
	resultCh  chan RefreshResultMsg
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRecorder records every received notification.
func WithRecorder(r EventRecorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(l logrus.FieldLogger) DispatcherOption {
	return func(d *Dispatcher) { d.log = l }
}

// NewDispatcher creates a dispatcher delivering to h.
func NewDispatcher(h PushHandler, opts ...DispatcherOption) *Dispatcher {
	l := logrus.New()
	l.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		handler:   h,
		log:       l,
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[string]model.PushEvent),
		triggerCh: make(chan struct{}, 1),
		resultCh:  make(chan RefreshResultMsg, 16),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.WithField("component", "dispatcher")
	return d
}

// Notify queues ev for delivery. It is safe to call from the push reader.
func (d *Dispatcher) Notify(ev model.PushEvent) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.unlogged = append(d.unlogged, ev)
	prev, queued := d.pending[ev.BoardID]
	if !queued {
		d.order = append(d.order, ev.BoardID)
	}
	if queued && prev.Type == model.EventBoardUpdated {
		ev.Type = model.EventBoardUpdated
	}
	d.pending[ev.BoardID] = ev
	d.mu.Unlock()

	select {
	case d.triggerCh <- struct{}{}:
	default:
	}
}

// Start launches the delivery goroutine and returns a tea.Cmd waiting for
// the first RefreshResultMsg.
func (d *Dispatcher) Start() tea.Cmd {
	d.mu.Lock()
	if d.running || d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.mu.Unlock()

	go d.loop()
	return d.WaitForResult()
}

// Stop halts delivery and waits for an in-flight refresh to be cancelled.
// Notifications queued afterwards are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	wasRunning := d.running
	d.running = false
	d.mu.Unlock()

	d.cancel()
	close(d.stopCh)
	if wasRunning {
		<-d.doneCh
	}
}

// Results delivers a message after every push-triggered refresh. Messages
// are dropped when nobody reads them.
func (d *Dispatcher) Results() <-chan RefreshResultMsg {
	return d.resultCh
}

// WaitForResult returns a tea.Cmd that waits for the next refresh result.
// Call it again after handling a RefreshResultMsg to keep listening.
func (d *Dispatcher) WaitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case res := <-d.resultCh:
			return res
		case <-d.stopCh:
			return nil
		}
	}
}

func (d *Dispatcher) loop() {
	defer close(d.doneCh)
	for {
		select {
		case <-d.stopCh:
			return
		case <-d.triggerCh:
			d.drain()
		}
	}
}

// drain delivers everything queued so far.
func (d *Dispatcher) drain() {
	d.mu.Lock()
	events := make([]model.PushEvent, 0, len(d.order))
	for _, id := range d.order {
		events = append(events, d.pending[id])
	}
	unlogged := d.unlogged
	d.pending = make(map[string]model.PushEvent)
	d.order = nil
	d.unlogged = nil
	d.mu.Unlock()

	if d.recorder != nil {
		for _, ev := range unlogged {
			if err := d.recorder.RecordEvent(d.ctx, ev); err != nil {
				d.log.WithError(err).Warn("recording push event failed")
			}
		}
	}

	for _, ev := range events {
		if d.ctx.Err() != nil {
			return
		}
		ctx, cancel := context.WithTimeout(d.ctx, refreshTimeout)
		err := d.handler.OnPushNotification(ctx, ev)
		cancel()

		if err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"board": ev.BoardID,
				"type":  ev.Type,
			}).Warn("push-triggered refresh failed")
		}
		d.sendResult(RefreshResultMsg{Event: ev, Error: err})
	}
}

// sendResult sends without blocking.
func (d *Dispatcher) sendResult(msg RefreshResultMsg) {
	select {
	case d.resultCh <- msg:
	default:
	}
}
