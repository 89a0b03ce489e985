package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Formats(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		newLogger("info", "json", &out, "").Info("hello")
		assert.Contains(t, out.String(), `"msg":"hello"`)
	})

	t.Run("text", func(t *testing.T) {
		var out bytes.Buffer
		newLogger("info", "text", &out, "").Info("hello")
		assert.Contains(t, out.String(), "msg=hello")
	})

	t.Run("unknown format falls back to text", func(t *testing.T) {
		var out bytes.Buffer
		newLogger("info", "yaml", &out, "").Info("hello")
		assert.Contains(t, out.String(), "msg=hello")
	})

	t.Run("pretty", func(t *testing.T) {
		var out bytes.Buffer
		newLogger("info", "pretty", &out, "").Info("hello")
		assert.Contains(t, out.String(), "hello")
	})
}

func TestNewLogger_Levels(t *testing.T) {
	t.Parallel()

	t.Run("debug suppressed at info level", func(t *testing.T) {
		var out bytes.Buffer
		newLogger("info", "text", &out, "").Debug("shh")
		assert.Empty(t, out.String())
	})

	t.Run("debug emitted at debug level", func(t *testing.T) {
		var out bytes.Buffer
		newLogger("debug", "text", &out, "").Debug("loud")
		assert.Contains(t, out.String(), "loud")
	})

	t.Run("unknown level defaults to info", func(t *testing.T) {
		var out bytes.Buffer
		logger := newLogger("chatty", "text", &out, "")
		logger.Debug("shh")
		logger.Info("hello")
		assert.NotContains(t, out.String(), "shh")
		assert.Contains(t, out.String(), "hello")
	})
}

func TestNewLogger_CopiesToLogFile(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	logFile := filepath.Join(t.TempDir(), "macawlab.log")
	var out bytes.Buffer

	// --- Act ---
	newLogger("info", "text", &out, logFile).Info("persisted")

	// --- Assert ---
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "persisted")
	assert.Contains(t, out.String(), "persisted")
}
