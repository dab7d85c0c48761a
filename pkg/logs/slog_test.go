package logs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_JSONWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf), WithLevel(slog.LevelWarn), WithAttrs("app", "eeudesk"))

	logger.Info("dropped")
	logger.With("item_id", "q-1").Warn("Queued write replay failed", "attempts", 2)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "Queued write replay failed", record["msg"])
	assert.Equal(t, "eeudesk", record["app"])
	assert.Equal(t, "q-1", record["item_id"])
	assert.Equal(t, float64(2), record["attempts"])
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(WithOutput(&buf), WithJSONFormat(false)).Info("hello", "k", "v")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "k=v")
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(New(WithOutput(&buf)))
	Info("through default")

	assert.Contains(t, buf.String(), "through default")
}
