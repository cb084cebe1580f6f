package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "api")

	log.Info().Msg("hidden")
	log.Warn().Str("component", "database").Msg("visible")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "database", entry["component"])
	assert.Equal(t, "warn", entry["level"])
	assert.NotEmpty(t, entry["time"])
}

func TestNewWithWriter_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "loud", "ui")

	log.Debug().Msg("debug")
	assert.Empty(t, buf.String())

	log.Info().Msg("info")
	assert.Contains(t, buf.String(), `"level":"info"`)
}
