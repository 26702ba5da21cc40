package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Verbosity()
	SetOutput(&buf)
	SetVerbosity(level)
	t.Cleanup(func() {
		SetVerbosity(prev)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestVerbosityFiltersMessages(t *testing.T) {
	buf := captureOutput(t, Info)

	Errorf("boom %d", 1)
	Infof("started")
	Debugf("hidden")
	Tracef("hidden too")

	out := buf.String()
	assert.Contains(t, out, "[ERROR] boom 1")
	assert.Contains(t, out, "[INFO]  started")
	assert.NotContains(t, out, "hidden")
}

func TestTraceEnablesEverything(t *testing.T) {
	buf := captureOutput(t, Trace)

	Tracef("iter=%d", 7)

	assert.Contains(t, buf.String(), "[TRACE] iter=7")
	assert.Contains(t, buf.String(), "logger_test.go", "caller file should be reported")
	assert.True(t, Enabled(Debug))
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"error":   Error,
		"INFO":    Info,
		" debug ": Debug,
		"trace":   Trace,
		"3":       Trace,
		"0":       Error,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
	_, err = ParseLevel("9")
	assert.Error(t, err)
}

func TestSetVerbosityFromParsedLevel(t *testing.T) {
	buf := captureOutput(t, Error)

	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	SetVerbosity(lvl)

	Debugf("visible")
	Tracef("hidden")

	assert.Equal(t, Debug, Verbosity())
	assert.Contains(t, buf.String(), "[DEBUG] visible")
	assert.NotContains(t, buf.String(), "hidden")
}
