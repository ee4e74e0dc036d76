package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/model"
)

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer

	l, err := New("", &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())

	l, err = New("debug", &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	l.WithField("board", "alpha").Debug("board selected")
	assert.Contains(t, buf.String(), "board=alpha")

	_, err = New("loud", &buf)
	assert.Error(t, err)
}

func TestToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "taskboard.log")

	l, closer, err := ToFile(model.LogConfig{Level: "info", File: path})
	require.NoError(t, err)
	l.WithField("board", "alpha").Info("push open")
	l.Debug("hidden")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "push open", entry["msg"])
	assert.Equal(t, "alpha", entry["board"])
}

func TestToFileWithoutPathDiscards(t *testing.T) {
	l, closer, err := ToFile(model.LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
	assert.NoError(t, closer.Close())
}
