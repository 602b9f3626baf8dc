package util

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolateEnv(t *testing.T) {
	os.Setenv("DB2I_MCP_TEST_HOST", "db01.example.com")
	defer os.Unsetenv("DB2I_MCP_TEST_HOST")

	got := InterpolateEnv("host: ${DB2I_MCP_TEST_HOST}")
	assert.Equal(t, "host: db01.example.com", got)
}

func TestInterpolateEnv_UnsetLeavesLiteral(t *testing.T) {
	os.Unsetenv("DB2I_MCP_DEFINITELY_UNSET")
	got := InterpolateEnv("host: ${DB2I_MCP_DEFINITELY_UNSET}")
	assert.Equal(t, "host: ${DB2I_MCP_DEFINITELY_UNSET}", got)
}

func TestInterpolateEnv_MultipleTokens(t *testing.T) {
	os.Setenv("A", "1")
	os.Setenv("B", "2")
	defer os.Unsetenv("A")
	defer os.Unsetenv("B")
	assert.Equal(t, "1-2", InterpolateEnv("${A}-${B}"))
}
