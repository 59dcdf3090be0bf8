package common

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratsdok/internal/config"
)

func TestInitLoggerConsoleOutput(t *testing.T) {
	cfg := &config.AppConfig{Logging: config.LoggingConfig{Level: "debug", Output: []string{"stdout"}}}
	logger := InitLogger(cfg)
	require.NotNil(t, logger)

	logger.Debug().Str("component", "test").Int("n", 1).Msg("console writer works")
	assert.Equal(t, logger, GetLogger())
}

func TestInitLoggerFileOutput(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := &config.AppConfig{Logging: config.LoggingConfig{Level: "info", Output: []string{"file"}}}
	logger := InitLogger(cfg)
	require.NotNil(t, logger)
	logger.Info().Msg("file writer works")

	_, err := os.Stat("logs")
	assert.NoError(t, err, "logs directory is created for the file writer")
}

func TestGetLoggerWithoutInit(t *testing.T) {
	assert.NotNil(t, GetLogger())
}
