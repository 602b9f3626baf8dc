package tool

import (
	"testing"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestToolsetIndex_ForwardReverseAndSelect(t *testing.T) {
	idx := BuildToolsetIndex(map[string]*config.ToolsetDescriptor{
		"admin": {Tools: []string{"a", "b"}},
		"reader": {Tools: []string{"b", "c"}},
	})

	assert.ElementsMatch(t, []string{"a", "b"}, idx.ToolsOf("admin"))
	assert.ElementsMatch(t, []string{"admin", "reader"}, idx.ToolsetsOf("b"))

	all := []string{"a", "b", "c"}
	assert.ElementsMatch(t, all, idx.Select(all, nil))
	assert.ElementsMatch(t, []string{"a", "b"}, idx.Select(all, []string{"admin"}))

	assert.Equal(t, []string{"admin", "reader"}, idx.Names())
}
