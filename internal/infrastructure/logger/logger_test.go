package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"canteen/internal/config"
)

func TestNew_ParsesLevel(t *testing.T) {
	log, err := New(config.LogConfig{Level: "debug", Service: "canteen"})
	require.NoError(t, err)

	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_FallsBackToInfo(t *testing.T) {
	log, err := New(config.LogConfig{Level: "chatty"})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestNew_Encodings(t *testing.T) {
	for _, enc := range []string{"", "json", "console"} {
		_, err := New(config.LogConfig{Level: "info", Encoding: enc})
		assert.NoError(t, err, "encoding %q", enc)
	}

	_, err := New(config.LogConfig{Level: "info", Encoding: "xml"})
	assert.Error(t, err)
}
