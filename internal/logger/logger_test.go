package logger

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]log.Level{
		"debug":   log.DebugLevel,
		"info":    log.InfoLevel,
		"warning": log.WarnLevel,
		"error":   log.ErrorLevel,
		"bogus":   log.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestComponentLoggersCarryFields(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter("debug", &buf)
	t.Cleanup(func() { Logger = nil })

	Repository("category").Info("created")

	out := buf.String()
	assert.Contains(t, out, "created")
	assert.Contains(t, out, "repository=category")
}

func TestGetInitializesLazily(t *testing.T) {
	Logger = nil
	t.Cleanup(func() { Logger = nil })

	assert.NotNil(t, Get())
}
