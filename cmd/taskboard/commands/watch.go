package commands

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/printer"
	"github.com/nhle/taskboard/internal/push"
	appsync "github.com/nhle/taskboard/internal/sync"
)

var watchRecent int

var watchCmd = &cobra.Command{
	Use:   "watch [board]",
	Short: "Print push notifications as they arrive",
	Long: `Connect to the service's push channel and print every change
notification as it arrives, reconnecting after connection loss.

When a board ID is given, notifications for other boards are skipped.
Received notifications are recorded in the local activity log.

Examples:
  # Everything
  taskboard watch

  # One board, after showing the last 10 recorded notifications
  taskboard watch project-alpha --recent 10`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVarP(&watchRecent, "recent", "r", 0, "Show this many recorded notifications first")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := stderrLogger(cfg)
	if err != nil {
		return err
	}

	boardID := ""
	if len(args) == 1 {
		boardID = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder appsync.EventRecorder
	if cache := openCache(cfg, log); cache != nil {
		defer cache.Close()
		recorder = cache
		if watchRecent > 0 {
			recent, err := cache.RecentActivity(ctx, watchRecent)
			if err != nil {
				log.WithError(err).Warn("reading activity log")
			}
			// Oldest first, like the live stream.
			for i := len(recent) - 1; i >= 0; i-- {
				a := recent[i]
				printer.Event(cmd.OutOrStdout(),
					model.PushEvent{Type: a.Type, BoardID: a.BoardID, Timestamp: a.EventTime},
					a.ReceivedAt.Local())
			}
		}
	}

	wsURL, err := push.URLFor(cfg.Server.BaseURL, cfg.Push.Path)
	if err != nil {
		return printer.Error("invalid server URL", err.Error(),
			[]string{"Set server.base_url to an http:// or https:// URL"})
	}

	channel := push.New(wsURL,
		push.WithDialer(push.NewWebsocketDialer(push.BearerHeader(lookupToken(cfg, log)))),
		push.WithReconnectDelay(cfg.Push.ReconnectDelay()),
		push.WithLogger(log),
	)
	channel.SetHandler(eventPrinter(ctx, cmd.OutOrStdout(), boardID, recorder, log))

	go reportStates(ctx, channel.StateChanges(), log)

	channel.Start()
	log.WithField("url", wsURL).Info("watching for changes, press Ctrl+C to stop")
	<-ctx.Done()
	return channel.Close()
}

// eventPrinter returns a push handler that prints events for boardID (all
// boards when empty) and records them.
func eventPrinter(ctx context.Context, w io.Writer, boardID string, recorder appsync.EventRecorder, log logrus.FieldLogger) push.Handler {
	var mu sync.Mutex
	return func(ev model.PushEvent) {
		if boardID != "" && ev.BoardID != boardID {
			return
		}
		if recorder != nil {
			if err := recorder.RecordEvent(ctx, ev); err != nil {
				log.WithError(err).Warn("recording notification")
			}
		}
		mu.Lock()
		defer mu.Unlock()
		printer.Event(w, ev, time.Now())
	}
}

func reportStates(ctx context.Context, states <-chan push.State, log logrus.FieldLogger) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-states:
			log.WithField("state", s.String()).Info("push channel")
		}
	}
}
