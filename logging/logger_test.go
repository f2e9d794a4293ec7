package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*StoryLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.Output = buf
	return NewLogger(cfg), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestStoryLogger_ContextAttrs(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	l.WithComponent("orchestrator").WithStory("s1").WithContext("run", 3).Info("hello", "k", "v")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "hello", lines[0]["msg"])
	assert.Equal(t, "orchestrator", lines[0]["component"])
	assert.Equal(t, "s1", lines[0]["story_id"])
	assert.Equal(t, "v", lines[0]["k"])
	assert.EqualValues(t, 3, lines[0]["run"])
}

func TestStoryLogger_WithDoesNotMutateParent(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)
	_ = l.WithContext("child", true)

	l.Info("parent")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["child"]
	assert.False(t, ok)
}

func TestStoryLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "w", lines[0]["msg"])
	assert.Equal(t, "e", lines[1]["msg"])
}

func TestStoryLogger_LogStage(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	l.LogStage("get_narrative_direction", time.Millisecond, false, nil)
	l.LogStage("check_world_consistency", time.Millisecond, true, errors.New("boom"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "DEBUG", lines[0]["level"])
	assert.Equal(t, "WARN", lines[1]["level"])
	assert.Equal(t, "boom", lines[1]["error"])
}

func TestStoryLogger_LogLLMCall(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)

	l.LogLLMCall("gpt", 42, time.Second, false, errors.New("timeout"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "LLM call failed", lines[0]["msg"])
	assert.EqualValues(t, 42, lines[0]["token_count"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{"debug": LogLevelDebug, "": LogLevelInfo, "WARNING": LogLevelWarn, "error": LogLevelError}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))

	l, _ := newBufferLogger(LogLevelInfo)
	assert.Same(t, l, OrNoOp(l))
}
