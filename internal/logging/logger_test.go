package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micasa/marketer/internal/config"
)

func TestTypeEnum_String(t *testing.T) {
	assert.Equal(t, "app", TypeApp.String())
	assert.Equal(t, "collect", TypeCollect.String())
	assert.Equal(t, "generate", TypeGenerate.String())
	assert.Equal(t, "publish", TypePublish.String())
	assert.Equal(t, "web", TypeWeb.String())
}

func TestNewLogProvider_CreatesLogFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, err := newLogProvider(config.LoggerConfig{Level: "info", Mode: 0644, Dir: dir}, &console)
	require.NoError(t, err)

	logger.Infof(TypeGenerate, "processed %s", "2025-12-01")
	logger.Debugf(TypeApp, "hidden at info level")
	logger.Close()

	data, err := os.ReadFile(filepath.Join(dir, "marketer.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"generate"`)
	assert.Contains(t, string(data), "processed 2025-12-01")
	assert.NotContains(t, string(data), "hidden at info level")
	assert.True(t, strings.Contains(console.String(), "processed 2025-12-01"))
}

func TestNewLogProvider_InvalidDir(t *testing.T) {
	_, err := NewLogProvider(config.LoggerConfig{Level: "info", Dir: "/nonexistent/directory/path"})
	assert.Error(t, err)
}

func TestNewLogProvider_InvalidLevel(t *testing.T) {
	_, err := NewLogProvider(config.LoggerConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Infof(TypeApp, "nothing")
	l.Close()
}
