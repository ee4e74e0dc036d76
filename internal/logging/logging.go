// Package logging configures the logrus logger shared by the application.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nhle/taskboard/internal/model"
)

// New returns a text logger writing to out at the given level. An empty
// level means info.
func New(level string, out io.Writer) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	l.SetLevel(lvl)
	return l, nil
}

// ToFile returns a logger appending to cfg.File, for use while the
// terminal is owned by the UI. The returned closer closes the file.
func ToFile(cfg model.LogConfig) (*logrus.Logger, io.Closer, error) {
	if cfg.File == "" {
		l, err := New(cfg.Level, io.Discard)
		return l, io.NopCloser(nil), err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	l, err := New(cfg.Level, f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	l.SetFormatter(&logrus.JSONFormatter{})
	return l, f, nil
}
