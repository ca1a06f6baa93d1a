package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"municipality/internal/config"
)

func TestNew_Levels(t *testing.T) {
	dev, err := New("development", config.LoggingConfig{})
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zap.DebugLevel))

	prod, err := New("production", config.LoggingConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zap.InfoLevel))
	assert.True(t, prod.Core().Enabled(zap.WarnLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("production", config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := New("production", config.LoggingConfig{Level: "info", FilePath: path, MaxSize: 1, MaxBackups: 1})
	require.NoError(t, err)

	logger.Info("Request created", zap.Uint("request_id", 7))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Request created"`)
	assert.Contains(t, string(data), `"request_id":7`)
}
