package log

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewErrorPrinter(&buf)
	p.Ln("Error:", "bad input")
	p.F("line %d\n", 3)
	require.Equal(t, "Error: bad input\nline 3\n", buf.String())
}

func TestNewLevels(t *testing.T) {
	for _, tc := range []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	} {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{Level: tc.level}, &buf)
			assert.Equal(t, tc.expected, logger.GetLevel())
		})
	}
}

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info"}, &buf)
	logger.Debug().Msg("hidden")
	logger.Info().Str("symbol", "VOD").Msg("calculated")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"symbol":"VOD"`)
	assert.Contains(t, buf.String(), `"message":"calculated"`)
}
