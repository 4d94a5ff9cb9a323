package logging_test

import (
	"testing"

	"github.com/escrow-tf/steamweb/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     logging.Config
		enabled zapcore.Level
		blocked zapcore.Level
	}{
		{"debug console", logging.Config{Level: "debug", Format: "console"}, zapcore.DebugLevel, zapcore.InvalidLevel},
		{"info json", logging.Config{Level: "info", Format: "json"}, zapcore.InfoLevel, zapcore.DebugLevel},
		{"warn", logging.Config{Level: "warn"}, zapcore.WarnLevel, zapcore.InfoLevel},
		{"empty defaults to info", logging.Config{}, zapcore.InfoLevel, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := logging.New(&tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, logger)

			assert.True(t, logger.Core().Enabled(tt.enabled))
			if tt.blocked != zapcore.InvalidLevel {
				assert.False(t, logger.Core().Enabled(tt.blocked))
			}
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := logging.New(&logging.Config{Level: "loud"})
	assert.Error(t, err)
}
