package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x6d61/strikeforge/internal/logging"
)

func TestNew_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := logging.New(logging.Options{Level: "warn", Out: &buf})
	require.NoError(t, err)
	defer closeFn()

	logger.Info("hidden")
	logger.WithField("session", "abc").Warn("shown")

	out := strings.TrimSpace(buf.String())
	require.NotEmpty(t, out)
	assert.NotContains(t, out, "hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "abc", entry["session"])
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
}

func TestNew_TeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strikeforge.log")
	var buf bytes.Buffer
	logger, closeFn, err := logging.New(logging.Options{File: path, Out: &buf})
	require.NoError(t, err)

	logger.Info("to both")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.Contains(t, buf.String(), "to both")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := logging.New(logging.Options{Level: "loud"})
	assert.Error(t, err)
}
