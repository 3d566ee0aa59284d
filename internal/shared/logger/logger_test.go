package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/orderlink/server/internal/shared/config"
)

func TestNew(t *testing.T) {
	t.Run("production config by default", func(t *testing.T) {
		l, err := New(&config.LogConfig{Level: "info", Format: "json"})
		require.NoError(t, err)
		require.NotNil(t, l)

		assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("console format", func(t *testing.T) {
		l, err := New(&config.LogConfig{Level: "debug", Format: "console"})
		require.NoError(t, err)

		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("text is an alias for console", func(t *testing.T) {
		l, err := New(&config.LogConfig{Level: "warn", Format: "text"})
		require.NoError(t, err)

		assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("empty level defaults to info", func(t *testing.T) {
		l, err := New(&config.LogConfig{})
		require.NoError(t, err)

		assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("unknown level is rejected", func(t *testing.T) {
		l, err := New(&config.LogConfig{Level: "verbose"})
		require.Error(t, err)
		assert.Nil(t, l)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", "debug", zapcore.DebugLevel, false},
		{"uppercase debug", "DEBUG", zapcore.DebugLevel, false},
		{"info", "info", zapcore.InfoLevel, false},
		{"empty defaults to info", "", zapcore.InfoLevel, false},
		{"warn", "warn", zapcore.WarnLevel, false},
		{"warning alias", "warning", zapcore.WarnLevel, false},
		{"error", "error", zapcore.ErrorLevel, false},
		{"unknown", "verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLevel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
