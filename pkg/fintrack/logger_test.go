package fintrack

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	logger.Debug("hidden", "k", "v")
	assert.Zero(t, buf.Len())

	logger.Warn("Failed to publish event", "type", "transaction.created", "attempt", 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "Failed to publish event", entry["message"])
	assert.Equal(t, "transaction.created", entry["type"])
	assert.Equal(t, float64(2), entry["attempt"])
}
