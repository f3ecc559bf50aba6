package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestSanitizeKVs(t *testing.T) {
	in := []interface{}{
		"client_secret", "pi_123_secret_abc",
		"stripe_signature", "t=1,v1=abc",
		"email", "jane@example.com",
		"request_id", "r-1",
		"dangling",
	}

	out := sanitizeKVs(in)

	require.Len(t, out, len(in))
	assert.Equal(t, "[REDACTED]", out[1])
	assert.Equal(t, "[REDACTED]", out[3])
	assert.Equal(t, "jane@example.com", out[5])
	assert.Equal(t, "r-1", out[7])
	assert.Equal(t, "dangling", out[8])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(" WARN "))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("loud"))
}

func TestNew(t *testing.T) {
	log, err := New("test", "debug")
	require.NoError(t, err)
	log.With("component", "test").Info("hello", "api_key", "x")

	nop := NewNop()
	nop.Error("discarded")
}
