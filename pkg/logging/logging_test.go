package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_FirstTimeWins(t *testing.T) {
	ForTestsOnlyResetLogger()
	var buf bytes.Buffer
	Init(slog.LevelDebug, &buf)
	Init(slog.LevelError, &buf) // second call must be a no-op

	GetLogger().Debug("hello")
	assert.True(t, strings.Contains(buf.String(), "hello"))
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel("debug")
	require.True(t, ok)
	assert.Equal(t, slog.LevelDebug, lvl)

	_, ok = ParseLevel("not-a-level")
	assert.False(t, ok)
}

func TestGetLogger_DefaultsWithoutInit(t *testing.T) {
	ForTestsOnlyResetLogger()
	l := GetLogger()
	require.NotNil(t, l)
}
