package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nhle/taskboard/internal/credential"
	"github.com/nhle/taskboard/internal/gateway"
	"github.com/nhle/taskboard/internal/logging"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/printer"
	"github.com/nhle/taskboard/internal/store"
)

var (
	version string
	commit  string
	date    string

	configPath string
	v          = model.NewViper()

	// openCredentials is replaced in tests.
	openCredentials = credential.Open
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Taskboard - terminal client for a shared kanban board service",
	Long: `Taskboard is a terminal client for a kanban board service.

It shows boards as columns of cards, keeps them current through the
service's push channel, and lets you create, edit, move, archive, and
delete cards, lists, and boards.

Run without a subcommand to open the board UI.`,
	Version: version,
	RunE:    runUI,
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(ver, c, d string) {
	version = ver
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", ver, c, d)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default ~/.config/taskboard/config.yaml)")
	flags.String("server", "", "Board service base URL (overrides server.base_url)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")

	mustBind(v, "server.base_url", rootCmd, "server")
	mustBind(v, "log.level", rootCmd, "log-level")
}

func mustBind(v *viper.Viper, key string, cmd *cobra.Command, flag string) {
	if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// loadConfig returns the effective configuration: file, environment, and
// flags layered over the defaults.
func loadConfig() (*model.AppConfig, error) {
	path := configPath
	if path == "" {
		path = model.DefaultConfigPath()
	}
	cfg, err := model.LoadConfig(v, path)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{fmt.Sprintf("Fix or remove %s", path)},
		)
	}
	return cfg, nil
}

// stderrLogger returns a logger for non-interactive commands.
func stderrLogger(cfg *model.AppConfig) (*logrus.Logger, error) {
	log, err := logging.New(cfg.Log.Level, os.Stderr)
	if err != nil {
		return nil, printer.Error(
			"invalid log level",
			err.Error(),
			[]string{"Use one of: debug, info, warn, error"},
		)
	}
	return log, nil
}

// lookupToken returns the stored API token for the configured server. A
// missing or unreadable keyring means no token.
func lookupToken(cfg *model.AppConfig, log logrus.FieldLogger) string {
	creds, err := openCredentials()
	if err != nil {
		log.WithError(err).Debug("keyring unavailable, continuing without token")
		return ""
	}
	token, err := creds.Token(cfg.Server.BaseURL)
	if err != nil {
		log.WithError(err).Warn("reading API token")
		return ""
	}
	return token
}

func newClient(cfg *model.AppConfig, log logrus.FieldLogger) *gateway.Client {
	return gateway.NewClient(
		cfg.Server.BaseURL,
		cfg.Server.APIPrefix,
		gateway.WithToken(lookupToken(cfg, log)),
		gateway.WithTimeout(cfg.Server.Timeout()),
		gateway.WithLogger(log),
	)
}

// openCache opens the snapshot database, or returns nil when the cache is
// disabled or cannot be opened.
func openCache(cfg *model.AppConfig, log logrus.FieldLogger) *store.SQLiteStore {
	if !cfg.Cache.Enabled || cfg.Cache.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Cache.Path), 0o755); err != nil {
		log.WithError(err).Warn("creating cache directory, continuing without cache")
		return nil
	}
	s, err := store.NewSQLiteStore(cfg.Cache.Path)
	if err != nil {
		log.WithError(err).Warn("opening cache, continuing without cache")
		return nil
	}
	return s
}

// serviceError renders a gateway failure for the terminal.
func serviceError(cfg *model.AppConfig, action string, err error) error {
	if gateway.IsTransportError(err) {
		return printer.Error(
			"cannot reach the board service",
			fmt.Sprintf("Failed to %s at %s: %v", action, cfg.Server.BaseURL, err),
			[]string{
				"Check that the service is running",
				"Point to another server with --server http://host:8080",
			},
		)
	}
	return printer.Error(fmt.Sprintf("failed to %s", action), err.Error(), nil)
}
