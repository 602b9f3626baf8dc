package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRelativePath(t *testing.T) {
	assert.True(t, IsRelativePath("tools/prod.yaml"))
	assert.False(t, IsRelativePath("/etc/tools/prod.yaml"))
	assert.False(t, IsRelativePath("../secrets.yaml"))
	assert.False(t, IsRelativePath(".."))
}

func TestIsYAMLFile(t *testing.T) {
	assert.True(t, IsYAMLFile("a.yaml"))
	assert.True(t, IsYAMLFile("A.YML"))
	assert.False(t, IsYAMLFile("a.json"))
}
