package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONToStdoutAndFile(t *testing.T) {
	dir := t.TempDir()
	var stdout bytes.Buffer

	logger, err := New(Config{Level: "debug", Dir: dir, FileName: "test.log", MaxSizeMB: 1, Stdout: &stdout})
	require.NoError(t, err)

	logger.Info("entry queued", "entry_id", "abc")
	require.NoError(t, logger.Close())

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &record))
	assert.Equal(t, "entry queued", record["msg"])
	assert.Equal(t, "abc", record["entry_id"])

	content, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "entry queued")
}

func TestNew_LevelFiltersRecords(t *testing.T) {
	var stdout bytes.Buffer
	logger, err := New(Config{Level: "warn", Stdout: &stdout})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stdout.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
