package zerolog

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesKeyValues(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, "debug", false)

	log.Info("login", "email", "a@b.co", "error", errors.New("boom"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "login", line["message"])
	assert.Equal(t, "a@b.co", line["email"])
	assert.Equal(t, "boom", line["error"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, "warn", false)

	log.Debug("hidden")
	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLoggerOddArgs(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, "info", false).Named("http")

	log.Error("odd", "dangling")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "dangling", line["extra"])
	assert.Equal(t, "http", line["component"])
}
