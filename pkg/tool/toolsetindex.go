// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"sort"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/config"
)

// ToolsetIndex maintains forward (toolset -> tools) and reverse
// (tool -> toolsets) membership maps.
type ToolsetIndex struct {
	forward map[string][]string
	reverse map[string][]string
}

// BuildToolsetIndex derives the index from a MergedConfig's toolsets.
func BuildToolsetIndex(toolsets map[string]*config.ToolsetDescriptor) *ToolsetIndex {
	idx := &ToolsetIndex{
		forward: map[string][]string{},
		reverse: map[string][]string{},
	}
	for name, ts := range toolsets {
		idx.forward[name] = append([]string{}, ts.Tools...)
		for _, toolName := range ts.Tools {
			idx.reverse[toolName] = append(idx.reverse[toolName], name)
		}
	}
	return idx
}

// Names returns every toolset name in the index, sorted, for --list-toolsets.
func (idx *ToolsetIndex) Names() []string {
	names := make([]string, 0, len(idx.forward))
	for name := range idx.forward {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToolsOf returns the tool names belonging to toolset.
func (idx *ToolsetIndex) ToolsOf(toolset string) []string {
	return idx.forward[toolset]
}

// ToolsetsOf returns the toolset names a tool belongs to.
func (idx *ToolsetIndex) ToolsetsOf(tool string) []string {
	return idx.reverse[tool]
}

// Select returns the set of tool names whose membership intersects
// selected. An empty selected means "no filter": every tool name in
// allTools is returned.
func (idx *ToolsetIndex) Select(allTools []string, selected []string) []string {
	if len(selected) == 0 {
		return allTools
	}
	want := map[string]bool{}
	for _, s := range selected {
		want[s] = true
	}
	var out []string
	for _, name := range allTools {
		for _, ts := range idx.reverse[name] {
			if want[ts] {
				out = append(out, name)
				break
			}
		}
	}
	return out
}
