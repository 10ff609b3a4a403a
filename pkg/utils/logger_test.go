package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	logger, err := NewLogger(LoggerConfig{Level: "info", OutputPath: path, Format: "json"})
	require.NoError(t, err)

	logger.Info("case advanced", zap.String("case_id", "c-1"))
	logger.Debug("hidden")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"case_id":"c-1"`)
	assert.Contains(t, string(data), `"timestamp"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNewLoggerRejectsLevel(t *testing.T) {
	_, err := NewLogger(LoggerConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestKVLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	kv := NewKVLogger(zap.New(core)).Named("orchestrator")

	kv.Info("Stage recorded", "case_id", "c-1", "stage", 3)
	kv.Error("Save failed", "error", "disk full")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Stage recorded", entries[0].Message)
	assert.Equal(t, "orchestrator", entries[0].LoggerName)
	assert.Equal(t, map[string]interface{}{"case_id": "c-1", "stage": int64(3)}, entries[0].ContextMap())
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
}

func TestKVLoggerNil(t *testing.T) {
	assert.NotPanics(t, func() {
		NewKVLogger(nil).Info("ok")
	})
}
