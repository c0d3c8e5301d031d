package logging_test

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somnetics/apnea-go/internal/logging"
)

func TestEnableFileLogging(t *testing.T) {
	logging.Init()
	t.Cleanup(func() {
		logging.SetLevel(slog.LevelInfo)
		logging.SetOutput(io.Discard, io.Discard)
	})

	// Nested path exercises log directory creation.
	path := filepath.Join(t.TempDir(), "logs", "main.log")
	closeWriter, err := logging.EnableFileLogging(path, 1)
	require.NoError(t, err)

	slog.Info("session opened", "component", "test")
	slog.Debug("suppressed at default level")
	logging.SetLevel(slog.LevelDebug)
	slog.Debug("visible after level change")

	require.NoError(t, closeWriter())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `"msg":"session opened"`)
	assert.Contains(t, content, `"msg":"visible after level change"`)
	assert.NotContains(t, content, "suppressed at default level")
}

func TestSetLevelAffectsExistingServiceLoggers(t *testing.T) {
	logging.Init()
	t.Cleanup(func() {
		logging.SetLevel(slog.LevelInfo)
		logging.SetOutput(io.Discard, io.Discard)
	})

	var buf bytes.Buffer
	logging.SetOutput(&buf, io.Discard)

	log := logging.ForService("detection")
	log.Debug("before level change")
	logging.SetLevel(slog.LevelDebug)
	log.Debug("after level change")

	content := buf.String()
	assert.NotContains(t, content, "before level change")
	assert.Contains(t, content, "after level change")
	assert.Contains(t, content, `"service":"detection"`)
}
