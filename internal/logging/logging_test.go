package logging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"verbose": zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mindful.log")
	logger := NewLoggerWithConfig(LogConfig{
		Level:    "debug",
		File:     true,
		FilePath: path,
		MaxSize:  1,
	})

	LogTradeEvent(logger, "created", "abc", "2024-01-01")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"trade_id":"abc"`)
	assert.Contains(t, string(data), `"event":"created"`)
}

func TestFromContextDefaultsToNop(t *testing.T) {
	logger := FromContext(context.Background())
	assert.Equal(t, zerolog.Disabled, logger.GetLevel())

	ctx := WithLogger(context.Background(), zerolog.New(os.Stderr).Level(zerolog.WarnLevel))
	assert.Equal(t, zerolog.WarnLevel, FromContext(ctx).GetLevel())
}

func TestLogAPICallMasksCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	key := "sk-proj" + "abcdefghijklmnopqrstuvwxyz"

	LogAPICall(logger, "POST", "chat/completions:analyze", 0, errors.New("401 for key "+key))

	assert.NotContains(t, buf.String(), key)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"endpoint":"chat/completions:analyze"`)

	buf.Reset()
	LogAPICall(logger.Level(zerolog.InfoLevel), "POST", "chat/completions:chat", 0, nil)
	assert.Empty(t, buf.String())
}
