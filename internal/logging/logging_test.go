package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, l)

	_, err = ParseLevel("trace")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSONFormat, f)

	_, err = ParseFormat("logfmt")
	assert.Error(t, err)
}

func TestNewTextFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: WarnLevel, Output: &buf})

	log.Info().Msg("hidden")
	log.Warn().Uint64("nonce", 7).Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WRN")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "nonce=7")
	assert.Contains(t, out, "app=tokensend")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: DebugLevel, Format: JSONFormat, Output: &buf})
	log.Debug().Int("attempt", 3).Msg("polled")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "polled", rec["message"])
	assert.Equal(t, float64(3), rec["attempt"])
	assert.Equal(t, "debug", rec["level"])
	assert.Equal(t, "tokensend", rec["app"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T`, rec["time"])
}

func TestNilOutputDiscards(t *testing.T) {
	log := New(Config{})
	assert.NotPanics(t, func() { log.Error().Msg("nothing") })
}

func TestForVerbosity(t *testing.T) {
	var quiet, loud bytes.Buffer
	q := ForVerbosity(&quiet, false)
	q.Info().Msg("step")
	l := ForVerbosity(&loud, true)
	l.Debug().Msg("step")

	assert.Empty(t, quiet.String())
	assert.Contains(t, loud.String(), "DBG")
}

func TestFromSettings(t *testing.T) {
	var buf bytes.Buffer
	log, err := FromSettings(&buf, "info", "json", false)
	require.NoError(t, err)
	log.Debug().Msg("dropped")
	log.Info().Msg("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"message":"kept"`)

	buf.Reset()
	log, err = FromSettings(&buf, "error", "text", true)
	require.NoError(t, err)
	log.Debug().Msg("forced")
	assert.Contains(t, buf.String(), "forced")

	_, err = FromSettings(&buf, "loud", "text", false)
	assert.Error(t, err)
	_, err = FromSettings(&buf, "info", "xml", false)
	assert.Error(t, err)
}
