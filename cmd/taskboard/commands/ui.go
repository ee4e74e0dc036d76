package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/app"
	"github.com/nhle/taskboard/internal/logging"
	"github.com/nhle/taskboard/internal/printer"
	"github.com/nhle/taskboard/internal/push"
	appsync "github.com/nhle/taskboard/internal/sync"
	"github.com/nhle/taskboard/internal/theme"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the board UI (default)",
	Long: `Open the interactive board UI.

The last viewed board is shown from the local cache while the first
refresh is in flight. Changes made by other clients arrive through the
push channel.

Logs go to log.file (default ~/.config/taskboard/taskboard.log) so they
do not disturb the screen.`,
	Args: cobra.NoArgs,
	RunE: runUI,
}

func init() {
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, closer, err := logging.ToFile(cfg.Log)
	if err != nil {
		return printer.Error("cannot open log file", err.Error(),
			[]string{"Set log.file to a writable path, or to an empty string to disable logging"})
	}
	defer closer.Close()

	token := lookupToken(cfg, log)
	client := newClient(cfg, log)

	engineOpts := []appsync.Option{appsync.WithLogger(log)}
	dispatcherOpts := []appsync.DispatcherOption{appsync.WithDispatcherLogger(log)}
	opts := app.Options{Server: cfg.Server.BaseURL, Logger: log}

	if cache := openCache(cfg, log); cache != nil {
		defer cache.Close()
		engineOpts = append(engineOpts, appsync.WithSnapshotter(cache))
		dispatcherOpts = append(dispatcherOpts, appsync.WithRecorder(cache))
		opts.Cache = cache
	}

	engine := appsync.New(client, engineOpts...)
	defer engine.Close()
	dispatcher := appsync.NewDispatcher(engine, dispatcherOpts...)
	defer dispatcher.Stop()

	wsURL, err := push.URLFor(cfg.Server.BaseURL, cfg.Push.Path)
	if err != nil {
		return printer.Error("invalid server URL", err.Error(),
			[]string{"Set server.base_url to an http:// or https:// URL"})
	}
	channel := push.New(wsURL,
		push.WithDialer(push.NewWebsocketDialer(push.BearerHeader(token))),
		push.WithReconnectDelay(cfg.Push.ReconnectDelay()),
		push.WithLogger(log),
	)
	channel.SetHandler(dispatcher.Notify)
	defer channel.Close()

	opts.Engine = engine
	opts.Dispatcher = dispatcher
	opts.Push = channel

	theme.Use(cfg.Display.Theme)
	log.WithField("server", cfg.Server.BaseURL).Info("starting ui")

	p := tea.NewProgram(app.New(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}
