package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitializeWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(Config{Level: "debug", Format: "json"}, &buf)
	defer InitializeDefault()

	Debug("record scored", zap.String("id", "R-1"), zap.Float64("score", 55))
	Sync()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "record scored", entry["msg"])
	assert.Equal(t, "R-1", entry["id"])
	assert.Equal(t, 55.0, entry["score"])
	assert.Contains(t, entry, "timestamp")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(Config{Level: "warn", Format: "json"}, &buf)
	defer InitializeDefault()

	Info("hidden")
	Warn("shown")
	Sync()

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(Config{Level: "loud", Format: "json"}, &buf)
	defer InitializeDefault()

	Debug("hidden")
	Info("shown")
	Sync()

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
