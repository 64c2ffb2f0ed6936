package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLogger_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, InitLogger(path, "info"))
	t.Cleanup(func() { Logger = zap.NewNop() })

	Logger.Info("snapshot loaded", zap.Int("nodes", 3))
	require.NoError(t, Logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"snapshot loaded"`)
	assert.Contains(t, string(data), `"nodes":3`)
	assert.Contains(t, string(data), `"time":`)
}

func TestInitLogger_RejectsUnknownLevel(t *testing.T) {
	err := InitLogger("", "loud")
	assert.Error(t, err)
}

func TestInitLogger_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, InitLogger(path, "warn"))
	t.Cleanup(func() { Logger = zap.NewNop() })

	Logger.Info("ignored")
	Logger.Warn("kept")
	require.NoError(t, Logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "ignored")
	assert.Contains(t, string(data), "kept")
}
