package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, 0)

	l.Debug("hidden", "k", 1)
	l.Info("shown", "user_id", 42)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "user_id=42")
}

func TestLogger_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, -4)

	l.Debug("dbg")
	assert.Contains(t, buf.String(), "level=DEBUG")
}
