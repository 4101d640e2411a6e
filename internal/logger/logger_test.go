package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zerolog.Disabled, ParseLevel("silent"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestFor(t *testing.T) {
	var buf bytes.Buffer
	Init("info", false, &buf)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	l := For("fetch")
	l.Info().Str("camera_id", "cam-1").Msg("fetched")
	l.Debug().Msg("hidden")

	out := buf.String()
	assert.Contains(t, out, `"component":"fetch"`)
	assert.Contains(t, out, `"camera_id":"cam-1"`)
	assert.NotContains(t, out, "hidden")
}
