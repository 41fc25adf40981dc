// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/certmint/internal/config"
)

// The logger is a global singleton, so each test must reset it first.

func TestInitializeConsoleLogger(t *testing.T) {
	ResetForTest()
	var buf bytes.Buffer

	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "TestService",
	}, zapcore.AddSync(&buf))

	GetLogger().Info("This is a test message.")

	output := buf.String()
	assert.Contains(t, output, "INFO", "Output should contain the log level")
	assert.Contains(t, output, "This is a test message.", "Output should contain the message")
	assert.Contains(t, output, colorGreen, "Info level should be colorized green")
	assert.Contains(t, output, colorReset, "Output should contain the reset color code")
	assert.Contains(t, output, "TestService.", "Output should contain the service name")
}

func TestInitializeJSONLogger(t *testing.T) {
	ResetForTest()
	var buf bytes.Buffer

	Initialize(config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "JSONTest",
	}, zapcore.AddSync(&buf))

	GetLogger().Info("structured message")

	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry), "JSON format must emit parseable lines")
	assert.Equal(t, "structured message", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestLevelFiltering(t *testing.T) {
	ResetForTest()
	var buf bytes.Buffer

	Initialize(config.LoggerConfig{
		Level:       "warn",
		Format:      "json",
		ServiceName: "FilterTest",
	}, zapcore.AddSync(&buf))

	logger := GetLogger()
	logger.Info("should be dropped")
	logger.Warn("should appear")

	output := buf.String()
	assert.NotContains(t, output, "should be dropped")
	assert.Contains(t, output, "should appear")
}

func TestInitializeRunsOnce(t *testing.T) {
	ResetForTest()
	var first, second bytes.Buffer

	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "Once"}, zapcore.AddSync(&first))
	// A second initialization attempt must be a no-op.
	Initialize(config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "Twice"}, zapcore.AddSync(&second))

	GetLogger().Info("after double init")

	assert.Contains(t, first.String(), "after double init")
	assert.Empty(t, second.String())
}
